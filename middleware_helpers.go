package auth

import (
	"context"

	"github.com/goliatone/go-auth-service/middleware/jwtware"
)

// GateConfig builds the jwtware configuration that stores an Identity in
// router locals and in the request context.
func GateConfig(cfg Config, tokens TokenService, logger Logger) jwtware.Config {
	return jwtware.Config{
		TokenInspector:  tokens,
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AuthScheme:      cfg.GetAuthScheme(),
		IdentityBuilder: IdentityBuilderAdapter,
		ContextEnricher: ContextEnricherAdapter,
		Logger:          normalizeLogger(logger),
	}
}

// IdentityBuilderAdapter returns the Identity stored in locals for subject
func IdentityBuilderAdapter(subject string) any {
	return NewIdentity(subject)
}

// ContextEnricherAdapter stores the Identity for subject in the standard context
func ContextEnricherAdapter(c context.Context, subject string) context.Context {
	return WithIdentity(c, NewIdentity(subject))
}
