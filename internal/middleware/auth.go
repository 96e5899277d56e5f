package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

type ctxKey int

const userKey ctxKey = iota

const subjectCacheSize = 4096

// SessionValidator resolves a bearer token to an identity subject.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (subject string, ok bool, err error)
}

// UserResolver maps a subject to the local user, creating it on first use.
type UserResolver interface {
	GetOrCreateBySubject(ctx context.Context, subject string) (*models.User, error)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Message: message})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// UserFromContext returns the user RequireUser attached.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

// WithUser attaches u to ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Auth authenticates journal users. Subjects already seen are kept in an
// in-process LRU so steady traffic skips the users table.
type Auth struct {
	sessions SessionValidator
	users    UserResolver
	known    *lru.Cache[string, models.User]
}

func NewAuth(sessions SessionValidator, users UserResolver) (*Auth, error) {
	known, err := lru.New[string, models.User](subjectCacheSize)
	if err != nil {
		return nil, err
	}
	return &Auth{sessions: sessions, users: users, known: known}, nil
}

// RequireUser answers 401 unless the request carries a live session.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		subject, ok, err := a.sessions.ValidateSession(r.Context(), token)
		if err != nil {
			logger.Error("session lookup failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "Session service unavailable")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		user, cached := a.known.Get(subject)
		if !cached {
			u, err := a.users.GetOrCreateBySubject(r.Context(), subject)
			if err != nil {
				logger.Error("user lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Failed to load user")
				return
			}
			user = *u
			a.known.Add(subject, user)
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user)))
	})
}

// RequireOperator checks the bearer token against an argon2id hash. An
// empty hash disables every operator route.
func RequireOperator(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if tokenHash == "" || token == "" {
				writeError(w, http.StatusUnauthorized, "Operator authentication required")
				return
			}
			ok, err := utils.VerifyToken(token, tokenHash)
			if err != nil {
				logger.Error("operator token hash unusable", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Operator authentication required")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "Invalid operator token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
