package auth

import (
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrClientNotFound is returned when a login references an unknown username
var ErrClientNotFound = goerrors.New("the client does not exist", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("CLIENT_NOT_FOUND")

// ErrInvalidCredentials is returned when the password does not match
var ErrInvalidCredentials = goerrors.New("the credentials are incorrect", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INVALID_CREDENTIALS")

// ErrUserAlreadyExists is returned by registration when the username is taken.
// It shares the invalid credentials kind (and status) but has its own text code.
var ErrUserAlreadyExists = goerrors.New("user already exists", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("USER_ALREADY_EXISTS")

// ErrTokenExpired is returned when the token expiry is not in the future
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed is returned for tokens that can not be decoded or verified
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrWeakSigningKey is returned when the signing secret is too short for HS256
var ErrWeakSigningKey = goerrors.New("signing key must be at least 32 bytes", goerrors.CategoryBadInput).
	WithTextCode("WEAK_SIGNING_KEY")

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("EMPTY_PASSWORD")

// ErrMismatchedHashAndPassword wraps the bcrypt mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("PASSWORD_MISMATCH")

// ErrSequenceConsumed is yielded when a user listing is ranged over twice
var ErrSequenceConsumed = goerrors.New("user sequence already consumed", goerrors.CategoryOperation).
	WithTextCode("SEQUENCE_CONSUMED")

// ErrUnableToFindIdentity is returned when the request carries no identity
var ErrUnableToFindIdentity = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("AUTHENTICATION_REQUIRED")

// IsInvalidCredentials reports errors of the invalid credentials kind,
// which includes duplicate registrations.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUserAlreadyExists)
}

// IsRecordNotFound reports whether a store lookup came back empty
func IsRecordNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, ErrTokenExpired.TextCode)
}

// IsMalformedError will check for tokens that could not be decoded or verified
func IsMalformedError(err error) bool {
	return hasTextCode(err, ErrTokenMalformed.TextCode)
}

func hasTextCode(err error, code string) bool {
	for err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == code {
			return true
		}
		err = richErr.Unwrap()
	}
	return false
}

// IsUniqueViolation reports whether a store error came from a unique
// constraint, for the SQLite and Postgres drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

const pgUniqueViolation = "23505"
