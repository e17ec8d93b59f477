package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the registration payload
type RegisterUserMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	DateBorn Date   `json:"dateBorn"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the payload fields
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username,
			validation.Required.Error("username is required"),
			validation.Length(1, 255),
		),
		validation.Field(&e.Password,
			validation.Required.Error("password is required"),
			validation.Length(1, 72).Error("password must be at most 72 bytes"),
		),
		validation.Field(&e.Email,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("email must be a valid email address"),
		),
		validation.Field(&e.DateBorn,
			validation.Required.Error("date of birth is required"),
			validation.By(notInFuture),
		),
	)
}

func notInFuture(value any) error {
	d, ok := value.(Date)
	if !ok || d.IsZero() {
		return nil
	}
	if d.After(time.Now()) {
		return validation.NewError("validation_date_future", "date of birth must not be in the future")
	}
	return nil
}

// RegisterUserHandler creates user records
type RegisterUserHandler struct {
	store     UserStore
	passwords PasswordAuthenticator
	logger    Logger
}

// NewRegisterUserHandler returns a handler persisting through store
func NewRegisterUserHandler(store UserStore, passwords PasswordAuthenticator, logger Logger) *RegisterUserHandler {
	return &RegisterUserHandler{
		store:     store,
		passwords: passwords,
		logger:    normalizeLogger(logger),
	}
}

var _ command.Commander[RegisterUserMessage] = (*RegisterUserHandler)(nil)

// Execute registers the user described by event
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

// Handle registers the user described by event and returns the stored record
func (h *RegisterUserHandler) Handle(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Username = strings.TrimSpace(event.Username)
	event.Email = strings.TrimSpace(event.Email)

	if err := event.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid registration payload")
	}

	if err := usernameAvailable(h.store.FindByUsername(ctx, event.Username)); err != nil {
		return nil, err
	}

	hash, err := h.passwords.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		ID:           uuid.New(),
		Username:     event.Username,
		PasswordHash: hash,
		Email:        event.Email,
		DateBorn:     event.DateBorn,
	}

	saved, err := h.save(ctx, user)
	if err != nil {
		if IsInvalidCredentials(err) {
			return nil, ErrUserAlreadyExists
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}

	h.logger.Debug("user registered", "username", saved.Username, "id", saved.ID)

	return saved, nil
}

// save stores user. Transactional stores repeat the username check inside
// the same transaction as the insert, since hashing ran in between.
func (h *RegisterUserHandler) save(ctx context.Context, user *User) (*User, error) {
	txStore, ok := h.store.(TxUserStore)
	if !ok {
		return h.store.Save(ctx, user)
	}

	var saved *User
	err := txStore.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := usernameAvailable(txStore.FindByUsernameTx(ctx, tx, user.Username)); err != nil {
			return err
		}
		var err error
		saved, err = txStore.SaveTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func usernameAvailable(existing *User, err error) error {
	switch {
	case err == nil && existing != nil:
		return ErrUserAlreadyExists
	case err != nil && !IsRecordNotFound(err):
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user")
	}
	return nil
}
