package auth

import (
	"context"
	"database/sql"
	"iter"
	"time"

	"github.com/uptrace/bun"
)

// Logger is the structured logger used across the package.
// Arguments are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator holds the login and registration flows
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, msg RegisterUserMessage) (*User, error)
	ListAll(ctx context.Context) iter.Seq2[*User, error]
}

// UserStore is the persistence collaborator for user records.
// FindByUsername returns a record not found error when no user matches.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	FindAll(ctx context.Context) iter.Seq2[*User, error]
}

// TxUserStore is a UserStore whose lookups and writes can share a transaction
type TxUserStore interface {
	UserStore
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
}

// TokenIssuer signs identity tokens for a subject
type TokenIssuer interface {
	Generate(subject string) (string, error)
}

// TokenService issues and inspects identity tokens
type TokenService interface {
	TokenIssuer
	SubjectOf(token string) (string, error)
	IsExpired(token string) (bool, error)
	ValidateToken(token, subject string) bool
	Validate(token string) (AuthClaims, error)
}

// PasswordAuthenticator hashes passwords and checks them against stored hashes
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	Matches(password, hash string) bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetBcryptCost() int
}

// Clock returns the current time. Tests swap it to move across the token window.
type Clock func() time.Time
