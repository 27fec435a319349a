package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/mediasrv/internal/adapter/http/middleware"
	"github.com/bnema/mediasrv/internal/adapter/http/ratelimit"
	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/service"
)

type AuthService interface {
	Authenticate(username, password string) (*domain.User, error)
	IssueToken(user *domain.User) string
	ValidateToken(token string) (*domain.User, error)
}

type userKey struct{}

// UserFromContext returns the user set by AuthMiddleware.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(*domain.User)
	return u, ok
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func AuthMiddleware(authSvc AuthService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mediasrv"`)
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := authSvc.ValidateToken(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mediasrv", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

const maxLoginBody = 4 << 10

func LoginHandler(authSvc AuthService, limiter *ratelimit.Limiter, behindProxy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := middleware.ClientIP(r, behindProxy)

		if ok, wait := limiter.Allow(clientID); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			logger.Warn.Printf("login: rate limited client=%s wait=%s", logger.SanitizeForLog(clientID), wait)
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid login body")
			return
		}

		user, err := authSvc.Authenticate(req.Username, req.Password)
		if err != nil {
			delay := limiter.Failure(clientID)
			logger.Warn.Printf("login: failed user=%s client=%s backoff=%s",
				logger.SanitizeForLog(req.Username), logger.SanitizeForLog(clientID), delay)
			if errors.Is(err, service.ErrInvalidCreds) {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			writeServiceError(w, err)
			return
		}

		limiter.Success(clientID)
		logger.Info.Printf("login: user=%s", logger.SanitizeForLog(user.Username))
		writeJSON(w, http.StatusOK, loginResponse{Token: authSvc.IssueToken(user)})
	}
}
