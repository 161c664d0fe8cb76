package httpx

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/target/hookline/internal/adapters/oidc"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// IDTokenVerifier validates scheduler ID tokens.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (oidc.Claims, error)
}

// CronAuthOptions configures CronAuth.
type CronAuthOptions struct {
	// Secret is accepted as a bearer token or in MarkerHeader.
	Secret       string
	MarkerHeader string
	// Verifier, when set, accepts bearer tokens that are valid ID tokens.
	Verifier IDTokenVerifier
	Logger   *slog.Logger
}

// CronAuth returns a middleware that admits scheduler requests carrying the
// shared secret or a verified ID token. Everything else gets 401 and never
// reaches next. With neither a secret nor a verifier configured every
// request is rejected.
func CronAuth(opts CronAuthOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	marker := opts.MarkerHeader
	if marker == "" {
		marker = "X-Cron-Secret"
	}
	if opts.Secret == "" && opts.Verifier == nil {
		logger.Warn("cron endpoints have no credentials configured; all calls will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := authenticateCron(r, opts, marker, logger)
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "unauthorized",
					Err:     errors.New("valid cron credentials required"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetCronCallerInContext(r.Context(), caller)))
		})
	}
}

func authenticateCron(r *http.Request, opts CronAuthOptions, marker string, logger *slog.Logger) (CronCaller, bool) {
	if v := r.Header.Get(marker); v != "" && secretMatches(opts.Secret, v) {
		return CronCaller{Method: "marker"}, true
	}

	token, ok := bearerToken(r)
	if !ok {
		return CronCaller{}, false
	}
	if secretMatches(opts.Secret, token) {
		return CronCaller{Method: "bearer"}, true
	}
	if opts.Verifier == nil {
		return CronCaller{}, false
	}
	claims, err := opts.Verifier.Verify(r.Context(), token)
	if err != nil {
		logger.WarnContext(r.Context(), "cron id token rejected", "path", r.URL.Path, "error", err)
		return CronCaller{}, false
	}
	return CronCaller{Method: "oidc", Subject: firstNonEmpty(claims.Email, claims.Subject)}, true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// secretMatches compares digests so the comparison time does not depend on
// the candidate length.
func secretMatches(secret, candidate string) bool {
	if secret == "" || candidate == "" {
		return false
	}
	a := sha256.Sum256([]byte(secret))
	b := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
