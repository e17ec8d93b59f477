package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrJWTExpired            = errors.New("token is expired")
)

// TokenInspector decodes tokens without import cycles.
// This mirrors the SubjectOf and IsExpired methods of the auth TokenService.
type TokenInspector interface {
	SubjectOf(token string) (string, error)
	IsExpired(token string) (bool, error)
}

// Logger mirrors the debug level of the auth Logger
type Logger interface {
	Debug(msg string, args ...any)
}

type Config struct {
	Filter         func(router.Context) bool
	// SuccessHandler runs after an identity was attached, before the next handler
	SuccessHandler router.HandlerFunc
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	// TokenInspector is required for token validation
	TokenInspector TokenInspector

	// IdentityBuilder turns a verified subject into the value stored in
	// locals under ContextKey. Defaults to the subject string.
	IdentityBuilder func(subject string) any

	// ContextEnricher is an optional function to propagate the subject to the
	// request user context.
	ContextEnricher func(c context.Context, subject string) context.Context

	// Logger receives rejected token reasons at debug level
	Logger Logger
}

// New returns the request gate. It never fails the request: a missing,
// malformed or expired token continues the chain without identity.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return hf(ctx)
			}

			raw, err := ExtractRawTokenFromContext(ctx, extractors)
			if err != nil {
				return hf(ctx)
			}

			subject, err := Inspect(cfg.TokenInspector, raw)
			if err != nil {
				cfg.Logger.Debug("request gate rejected token", "error", err)
				return hf(ctx)
			}

			ctx.Locals(cfg.ContextKey, cfg.IdentityBuilder(subject))

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), subject))
			}

			if cfg.SuccessHandler != nil {
				if err := cfg.SuccessHandler(ctx); err != nil {
					return err
				}
			}

			return hf(ctx)
		}
	}
}

// Inspect returns the subject of a raw token that has a valid signature and
// has not expired.
func Inspect(inspector TokenInspector, raw string) (string, error) {
	subject, err := inspector.SubjectOf(raw)
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", ErrJWTMissingOrMalformed
	}

	expired, err := inspector.IsExpired(raw)
	if err != nil {
		return "", err
	}
	if expired {
		return "", ErrJWTExpired
	}

	return subject, nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenInspector == nil {
		panic("AUTH: JWT middleware configuration: TokenInspector is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.IdentityBuilder == nil {
		cfg.IdentityBuilder = func(subject string) any {
			return subject
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	return cfg
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
// The header must start with the exact scheme followed by a single space.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	prefix := authScheme + " "
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		if len(a) > len(prefix) && strings.HasPrefix(a, prefix) {
			if token := strings.TrimSpace(a[len(prefix):]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
