package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the HS256 key size requirement in bytes
const MinSigningKeyLength = 32

// DefaultTokenExpiration is the token lifetime in hours
const DefaultTokenExpiration = 10

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             Clock
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithClock overrides the time source used to issue and check tokens
func WithClock(clock Clock) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenService creates a new TokenService instance. The signing key is
// copied so later changes to the caller slice do not affect issued tokens.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger, opts ...TokenServiceOption) (TokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}

	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	ts := &TokenServiceImpl{
		signingKey:      key,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          normalizeLogger(logger),
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds a TokenService from Config values
func NewTokenServiceFromConfig(cfg Config, logger Logger, opts ...TokenServiceOption) (TokenService, error) {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
		opts...,
	)
}

// Generate creates a signed token for subject expiring tokenExpiration hours from now
func (ts *TokenServiceImpl) Generate(subject string) (string, error) {
	if subject == "" {
		return "", goerrors.New("subject must not be empty", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl())),
		},
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// SubjectOf verifies the signature and returns the subject claim.
// Expiry is not checked here, see IsExpired.
func (ts *TokenServiceImpl) SubjectOf(tokenString string) (string, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, ts.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", ts.malformed(err)
	}

	if claims.Subject() == "" {
		return "", ErrTokenMalformed
	}

	return claims.Subject(), nil
}

// IsExpired reports whether the token expiry has passed. Expiry is an
// outcome, not an error: only other decode failures return an error.
// Tokens without an expiry are treated as expired.
func (ts *TokenServiceImpl) IsExpired(tokenString string) (bool, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, ts.keyFunc, ts.parserOptions()...)
	if err == nil {
		return false, nil
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return true, nil
	}

	if errors.Is(err, jwt.ErrTokenRequiredClaimMissing) && claims.ExpiresAt == nil {
		return true, nil
	}

	return false, ts.malformed(err)
}

// ValidateToken is true iff the token subject matches and it has not expired
func (ts *TokenServiceImpl) ValidateToken(tokenString, subject string) bool {
	got, err := ts.SubjectOf(tokenString)
	if err != nil || got != subject {
		return false
	}

	expired, err := ts.IsExpired(tokenString)
	return err == nil && !expired
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keyFunc, ts.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ts.malformed(err)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenServiceImpl) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		ts.logger.Debug("token uses unexpected signing method", "alg", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return ts.signingKey, nil
}

func (ts *TokenServiceImpl) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		opts = append(opts, jwt.WithAudience(ts.audience...))
	}
	return opts
}

// malformed keeps both the sentinel and the parser error in the chain
func (ts *TokenServiceImpl) malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
}

func (ts *TokenServiceImpl) ttl() time.Duration {
	return time.Duration(ts.tokenExpiration) * time.Hour
}
