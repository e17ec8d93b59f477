package auth

import (
	"context"
	"database/sql"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the Bun backed UserStore
type Users interface {
	repository.Repository[*User]
	TxUserStore
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now Clock
}

var (
	_ Users                        = (*users)(nil)
	_ TxUserStore                  = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock sets the clock used for created_at
func WithUsersClock(clock Clock) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

// NewUsersRepository returns a UserStore backed by db. Users are looked up
// by their username identifier.
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}
	return repoUsers
}

// RunInTx runs f inside a database transaction
func (a *users) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return a.db.RunInTx(ctx, opts, f)
	}
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.FindByUsernameTx(ctx, a.db, username)
}

func (a *users) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	username = strings.TrimSpace(username)

	record, err := a.GetByIdentifierTx(ctx, tx, username)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"username": username})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find user by username").
			WithMetadata(map[string]any{"username": username})
	}

	return record, nil
}

func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	return a.SaveTx(ctx, a.db, user)
}

// SaveTx inserts user. A unique violation on username maps to ErrUserAlreadyExists.
func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user must not be nil", goerrors.CategoryBadInput)
	}

	prepareUserDefaults(user, a.now)

	saved, err := a.CreateTx(ctx, tx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save user").
			WithMetadata(map[string]any{"username": user.Username})
	}

	return saved, nil
}

// FindAll returns a lazy single pass sequence over every user, ordered by
// creation. The rows cursor is opened on first iteration and closed when the
// range loop ends.
func (a *users) FindAll(ctx context.Context) iter.Seq2[*User, error] {
	var consumed atomic.Bool

	return func(yield func(*User, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, ErrSequenceConsumed)
			return
		}

		rows, err := a.db.NewSelect().
			Model((*User)(nil)).
			OrderExpr("?TableAlias.created_at ASC, ?TableAlias.username ASC").
			Rows(ctx)
		if err != nil {
			yield(nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			record := &User{}
			if err := a.db.ScanRow(ctx, rows, record); err != nil {
				yield(nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to scan user"))
				return
			}
			if !yield(record, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to iterate users"))
		}
	}
}

func prepareUserDefaults(record *User, now Clock) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.CreatedAt == nil {
		n := now().UTC()
		record.CreatedAt = &n
	}
}
