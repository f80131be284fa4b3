// Command seed creates demo accounts around Nairobi and prints a session token
// for each, so the API and socket gateway can be exercised without the auth service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/econex-backend/internal/config"
	"github.com/AnshRaj112/econex-backend/internal/database"
	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/services"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"github.com/AnshRaj112/econex-backend/pkg/utils"
)

type seedUser struct {
	name     string
	email    string
	role     models.Role
	lat, lng float64
}

var demo = []seedUser{
	{name: "Amina Wanjiru", email: "amina@econex.dev", role: models.RoleUser},
	{name: "Otieno Collects", email: "otieno@econex.dev", role: models.RoleCollector, lat: -1.3044, lng: 36.8172},
	{name: "Kamau Recycling", email: "kamau@econex.dev", role: models.RoleCollector, lat: -1.2414, lng: 36.8172},
	{name: "Green Buyers Ltd", email: "buyer@econex.dev", role: models.RoleBuyer},
	{name: "Econex Ops", email: "ops@econex.dev", role: models.RoleAdmin},
}

func main() {
	password := flag.String("password", "econex-demo", "password for every seeded account")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if err := database.Connect(cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.EnsureIndexes(ctx, database.DB); err != nil {
		log.Fatal("Failed to ensure indexes:", err)
	}

	hash, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	users := store.NewUsers(database.DB)
	sessions := services.NewSessions(database.RedisClient)

	for _, s := range demo {
		u, err := users.FindByEmail(ctx, s.email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			u = &models.User{Name: s.name, Email: s.email, Password: hash, Role: s.role}
			if s.role == models.RoleCollector {
				loc := models.NewGeoPoint(s.lat, s.lng)
				u.CurrentLocation = &loc
			}
			if err := users.Insert(ctx, u); err != nil {
				log.Fatalf("Failed to insert %s: %v", s.email, err)
			}
			log.Printf("✅ Created %s (%s)", s.email, s.role)
		case err != nil:
			log.Fatalf("Failed to look up %s: %v", s.email, err)
		default:
			log.Printf("%s already exists", s.email)
		}

		token, err := sessions.CreateSession(ctx, u.ID)
		if err != nil {
			log.Fatalf("Failed to create session for %s: %v", s.email, err)
		}
		fmt.Printf("%-10s %-24s id=%s token=%s\n", u.Role, u.Email, u.ID.Hex(), token)
	}
}
