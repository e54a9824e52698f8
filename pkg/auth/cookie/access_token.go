package cookie

import (
	"net/http"
	"time"

	"github.com/hammer-mt/FireFlask/pkg/config"
)

// AccessTokenName is the httpOnly cookie carrying the access JWT for browser
// navigations (OAuth redirects) that cannot attach an Authorization header.
const AccessTokenName = "fireflask_session"

// SetAccessToken writes the JWT cookie with the given lifetime.
func SetAccessToken(w http.ResponseWriter, cfg config.SessionConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAccessToken expires the JWT cookie.
func ClearAccessToken(w http.ResponseWriter, cfg config.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AccessTokenFromRequest returns the cookie value or "".
func AccessTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(AccessTokenName)
	if err != nil {
		return ""
	}
	return c.Value
}
