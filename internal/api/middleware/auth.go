package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const defaultAuthHeader = "X-Moltbot-Key"

// Auth checks the shared secret the CMS sends with every webhook.
type Auth struct {
	header string
	token  []byte
	hash   []byte
}

// NewAuth creates a new Auth middleware. A bcrypt hash takes precedence over
// a plain token when both are configured.
func NewAuth(cfg config.AuthConfig) *Auth {
	header := strings.TrimSpace(cfg.Header)
	if header == "" {
		header = defaultAuthHeader
	}
	a := &Auth{header: header}
	if cfg.TokenHash != "" {
		a.hash = []byte(cfg.TokenHash)
	} else {
		a.token = []byte(cfg.Token)
	}
	return a
}

// Authenticate rejects requests whose secret header is missing or wrong.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimSpace(r.Header.Get(a.header))
		if presented == "" || !a.matches([]byte(presented)) {
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) matches(presented []byte) bool {
	if a.hash != nil {
		return bcrypt.CompareHashAndPassword(a.hash, presented) == nil
	}
	if len(a.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.token, presented) == 1
}
