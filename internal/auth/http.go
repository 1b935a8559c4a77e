package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
)

const (
	tokenLimitPerMin = 5
	limitWindow      = 60 * time.Second
	defaultTokenTTL  = 15 * time.Minute
)

// Server issues admin access tokens.
type Server struct {
	Log      *zap.Logger
	Admin    *Admin
	JWT      *TokenMaker
	TokenTTL time.Duration

	// TrustForwardedFor keys the token rate limit on X-Forwarded-For.
	TrustForwardedFor bool
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	limiter := kit.NewIPRateLimiter(tokenLimitPerMin, limitWindow)
	limiter.TrustForwardedFor = s.TrustForwardedFor
	r.With(limiter.Middleware).Post("/token", s.handleToken)

	return r
}

type tokenReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := kit.DecodeJSON(w, r, &req, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "username/password required", nil)
		return
	}

	if err := s.Admin.Verify(req.Username, req.Password); err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	tok, err := s.JWT.New(s.Admin.Username, RoleAdmin, ttl)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("token issue", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok, ExpiresIn: int(ttl.Seconds())})
}
