package httpx

import "context"

// cronCallerKey is an unexported context key type to avoid collisions across packages.
type cronCallerKey struct{}

// CronCaller describes how a cron request authenticated.
type CronCaller struct {
	// Method is one of "bearer", "marker" or "oidc".
	Method  string
	Subject string
}

// SetCronCallerInContext returns a child context that carries caller.
func SetCronCallerInContext(ctx context.Context, caller CronCaller) context.Context {
	return context.WithValue(ctx, cronCallerKey{}, caller)
}

// CronCallerFromContext returns the authenticated caller and whether one was set.
func CronCallerFromContext(ctx context.Context) (CronCaller, bool) {
	c, ok := ctx.Value(cronCallerKey{}).(CronCaller)
	return c, ok
}
