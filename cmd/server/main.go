package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/econex-backend/internal/audit"
	"github.com/AnshRaj112/econex-backend/internal/config"
	"github.com/AnshRaj112/econex-backend/internal/database"
	"github.com/AnshRaj112/econex-backend/internal/handlers"
	"github.com/AnshRaj112/econex-backend/internal/middleware"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/routes"
	"github.com/AnshRaj112/econex-backend/internal/services"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	log.Printf("Connecting to MongoDB...")
	log.Printf("MongoDB URI: %s", maskURI(cfg.MongoURI))
	if err := database.Connect(cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// The audit trail is optional; without Postgres transitions are simply not recorded
	var recorder audit.Recorder = audit.Nop{}
	var auditReader audit.Reader = audit.Nop{}
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Printf("⚠️  WARNING: PostgreSQL unavailable, audit trail disabled: %v", err)
	} else {
		defer database.DisconnectPostgres()
		pg := audit.NewPostgresRecorder(database.PostgresDB)
		recorder, auditReader = pg, pg
	}

	ctx := context.Background()
	if err := store.EnsureIndexes(ctx, database.DB); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB indexes: %v", err)
	} else {
		log.Println("✅ MongoDB indexes ensured")
	}

	users := store.NewUsers(database.DB)
	requests := store.NewRequests(database.DB)
	logisticsChats := store.NewLogisticsChats(database.DB)
	salesChats := store.NewSalesChats(database.DB)

	// Nobody is connected to a fresh process
	if n, err := users.ResetCollectorAvailability(ctx); err != nil {
		log.Printf("⚠️  WARNING: failed to reset collector availability: %v", err)
	} else if n > 0 {
		log.Printf("✅ Marked %d stale collectors offline", n)
	}

	registry := presence.NewMemoryRegistry(users)
	mirror := presence.NewRedisMirror(registry, database.RedisClient, cfg.InstanceID, cfg.PresenceTTL)
	rooms := realtime.NewRooms()
	outbox := realtime.NewOutbox(registry, rooms, cfg.OutboxBuffer)

	outboxCtx, stopOutbox := context.WithCancel(context.Background())
	go outbox.Run(outboxCtx)

	directory := services.NewDirectory(users, cfg.DispatchRadiusMeters, cfg.DispatchLimit)
	dispatcher := services.NewDispatcher(directory, registry, outbox, recorder)
	chats := services.NewChatRouter(logisticsChats, salesChats, requests, rooms, outbox)

	h := &handlers.Handler{
		Requests: services.NewRequestService(requests, users, logisticsChats, dispatcher, outbox, recorder),
		Chats:    chats,
		Inbox:    services.NewInboxService(logisticsChats, salesChats, requests, users),
		Audit:    auditReader,
		Presence: mirror,
	}

	auth := middleware.NewAuth(services.NewSessions(database.RedisClient), users)
	gateway := handlers.NewGateway(auth, mirror, rooms, chats, handlers.GatewayConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		MessagesPerSecond: cfg.SocketMessagesPerSecond,
		Burst:             cfg.SocketBurst,
	})

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.HostCheck(cfg.APIHost))
		log.Println("✅ Production security enabled (security headers, host check)")
	}
	r.Use(middleware.NewRateLimiter(database.RedisClient).Middleware)

	routes.SetupRoutes(r, h, gateway, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Econex backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  WARNING: HTTP shutdown: %v", err)
	}

	// Deliver whatever committed operations already queued, then let pending
	// availability writes land before the database handles close.
	outbox.Flush()
	stopOutbox()
	registry.Wait()
	log.Println("👋 Econex backend stopped")
}

// maskURI hides the password in a connection string before it is logged.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || scheme+3 > at {
		return uri
	}
	creds := uri[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return uri[:scheme+3] + creds[:colon] + ":***" + uri[at:]
	}
	return uri
}
