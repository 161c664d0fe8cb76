package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/oidc"
	httpx "github.com/target/hookline/internal/http"
)

// buildCronAuth assembles the credentials accepted on /cron endpoints. OIDC
// discovery runs once here so a bad issuer fails startup.
func buildCronAuth(ctx context.Context, cfg config.CronConfig, logger *slog.Logger) (httpx.CronAuthOptions, error) {
	opts := httpx.CronAuthOptions{
		Secret:       cfg.Secret,
		MarkerHeader: cfg.MarkerHeader,
		Logger:       logger,
	}
	if cfg.OIDCEnabled() {
		verifier, err := oidc.NewTokenVerifier(ctx, oidc.TokenVerifierConfig{
			Issuer:          cfg.OIDCIssuer,
			Audience:        cfg.OIDCAudience,
			AllowedSubjects: cfg.OIDCSubjects,
		})
		if err != nil {
			return httpx.CronAuthOptions{}, fmt.Errorf("cron oidc verifier: %w", err)
		}
		opts.Verifier = verifier
	}
	if opts.Secret == "" && opts.Verifier == nil {
		logger.Warn("no cron credentials configured; /cron endpoints will reject every request")
	}
	return opts, nil
}
