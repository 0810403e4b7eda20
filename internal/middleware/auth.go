package middleware

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/op-arbiter/internal/config"
	"github.com/AdamBeresnev/op-arbiter/internal/httputil"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// InitAuth registers the OAuth providers that have credentials configured.
func InitAuth(cfg config.AuthConfig) {
	var providers []goth.Provider
	if cfg.Discord.Enabled() {
		providers = append(providers, discord.New(cfg.Discord.Key, cfg.Discord.Secret, cfg.Discord.CallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
	}
	if cfg.Google.Enabled() {
		providers = append(providers, google.New(cfg.Google.Key, cfg.Google.Secret, cfg.Google.CallbackURL, "email", "profile"))
	}
	goth.UseProviders(providers...)
}

// RequireAuth loads the arbiter of the session into the request context.
// Requests without a valid session get a 401.
func RequireAuth(sessionManager *scs.SessionManager, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr := sessionManager.GetString(r.Context(), "userID")
			if userIDStr == "" {
				httputil.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				sessionManager.Remove(r.Context(), "userID")
				httputil.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			// The arbiter's username becomes the audit actor, so a session
			// pointing at a deleted user is rejected too.
			user, err := userStore.GetUser(r.Context(), userID)
			if err != nil {
				sessionManager.Remove(r.Context(), "userID")
				httputil.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, users.UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}

// Actor names the arbiter acting in ctx, for audit entries.
func Actor(ctx context.Context) string {
	if user := GetAuthenticatedUser(ctx); user != nil {
		return user.Username
	}
	return ""
}
