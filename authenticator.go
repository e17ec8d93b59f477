package auth

import (
	"context"
	"iter"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Auther runs the login and registration flows
type Auther struct {
	store        UserStore
	tokens       TokenIssuer
	passwords    PasswordAuthenticator
	register     *RegisterUserHandler
	logger       Logger
	activitySink ActivitySink
	now          Clock
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. The token issuer holds the
// signing key, it is built once at startup and shared.
func NewAuthenticator(store UserStore, tokens TokenIssuer, passwords PasswordAuthenticator) *Auther {
	logger := defLogger()
	return &Auther{
		store:        store,
		tokens:       tokens,
		passwords:    passwords,
		register:     NewRegisterUserHandler(store, passwords, logger),
		logger:       logger,
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.register = NewRegisterUserHandler(s.store, s.passwords, s.logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithActivityClock sets the clock used to stamp activity events
func (s *Auther) WithActivityClock(clock Clock) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login checks the credential pair and returns a token for the username
func (s *Auther) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during login")
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if IsRecordNotFound(err) {
			s.logger.Debug("login unknown username", "username", username)
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"username": username,
				"error":    ErrClientNotFound.TextCode,
			})
			return "", ErrClientNotFound
		}
		s.logger.Error("login find user error", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}

	if user == nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"username": username,
			"error":    ErrClientNotFound.TextCode,
		})
		return "", ErrClientNotFound
	}

	if !s.passwords.Matches(password, user.PasswordHash) {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"username": username,
			"error":    ErrInvalidCredentials.TextCode,
		})
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		s.logger.Error("login token generation error", "error", err)
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, actorFromUser(user), user.ID.String(), map[string]any{
		"username": username,
	})

	return token, nil
}

// Register stores a new user. Duplicate usernames fail with ErrUserAlreadyExists.
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	user, err := s.register.Handle(ctx, msg)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventUserRegistered, actorFromUser(user), user.ID.String(), map[string]any{
		"username": user.Username,
	})

	return user, nil
}

// ListAll returns every user as a lazy single pass sequence
func (s *Auther) ListAll(ctx context.Context) iter.Seq2[*User, error] {
	return s.store.FindAll(ctx)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
