package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/api/validators"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// RateLimiter counts hits per scope inside a fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface (login, register, reset) per
// client IP and per submitted email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
// A zero limit disables that dimension.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

type throttleCheck struct {
	kind  string
	key   string
	limit int
}

func (p AuthRateLimitPolicy) scope(c throttleCheck) string {
	return fmt.Sprintf("%s:%s:%s", p.name, c.kind, c.key)
}

// AuthRateLimit enforces the policy before next runs. Emails are hashed before
// they reach the counter store and the body is replayed for the handler.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var checks []throttleCheck
			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				checks = append(checks, throttleCheck{kind: "ip", key: ip, limit: policy.ipLimit})
			}
			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := extractEmail(body); email != "" {
					checks = append(checks, throttleCheck{kind: "email", key: hashValue(email), limit: policy.emailLimit})
				} else if logg != nil {
					logg.Debug(ctx, "auth.rate_limit.no_email")
				}
			}

			for _, check := range checks {
				allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(check), int64(check.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					respondRateLimited(ctx, logg, w, policy, check, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, check throttleCheck, count int64) {
	if logg != nil {
		keyField := "ip"
		if check.kind == "email" {
			keyField = "email_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"scope":          check.kind,
			keyField:         check.key,
			"attempts":       count,
			"limit":          check.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts; please try again later"))
}

// clientIP prefers the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the socket peer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
