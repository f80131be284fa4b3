package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const userContextKey contextKey = "econex_user"

// SessionValidator resolves a bearer token to an entity id (services.Sessions).
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (primitive.ObjectID, bool, error)
}

// UserLookup loads the entity behind a session (store.Users).
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth turns a session token into the calling entity. Tokens are issued by the
// auth subsystem; this side only reads them.
type Auth struct {
	sessions SessionValidator
	users    UserLookup
}

func NewAuth(sessions SessionValidator, users UserLookup) *Auth {
	return &Auth{sessions: sessions, users: users}
}

// Resolve returns the entity for the token carried by r, or nil when the token is
// missing, unknown or expired.
func (a *Auth) Resolve(r *http.Request) (*models.User, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	id, ok, err := a.sessions.ValidateSession(r.Context(), token)
	if err != nil || !ok {
		return nil, err
	}
	user, err := a.users.FindByID(r.Context(), id)
	if err != nil || user == nil {
		return nil, err
	}
	if !user.Role.Valid() {
		return nil, fmt.Errorf("entity %s has unknown role %q", id.Hex(), user.Role)
	}
	return user, nil
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Resolve(r)
		if err != nil {
			log.Printf("auth: session lookup failed: %v", err)
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "This action is not allowed for your role")
		})
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// IdentityFromContext is the zero Identity when no user is attached.
func IdentityFromContext(ctx context.Context) models.Identity {
	if user := UserFromContext(ctx); user != nil {
		return user.Identity()
	}
	return models.Identity{}
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// token query parameter that browser WebSocket clients have to use.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Message: message}); err != nil {
		log.Printf("auth: write response failed: %v", err)
	}
}
