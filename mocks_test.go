package auth_test

import (
	"context"
	"iter"
	"slices"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-service"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *auth.User) *auth.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	saved, _ := args.Get(0).(*auth.User)
	return saved, args.Error(1)
}

func (m *MockUserStore) FindAll(ctx context.Context) iter.Seq2[*auth.User, error] {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*auth.User)
	return func(yield func(*auth.User, error) bool) {
		for _, u := range slices.Clone(users) {
			if !yield(u, nil) {
				return
			}
		}
	}
}

// MockPasswordAuthenticator implements auth.PasswordAuthenticator
type MockPasswordAuthenticator struct {
	mock.Mock
}

func (m *MockPasswordAuthenticator) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordAuthenticator) Matches(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

// MockLogger implements auth.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

func newQuietLogger() *MockLogger {
	logger := new(MockLogger)
	logger.On("Debug", mock.Anything, mock.Anything).Maybe()
	logger.On("Info", mock.Anything, mock.Anything).Maybe()
	logger.On("Warn", mock.Anything, mock.Anything).Maybe()
	logger.On("Error", mock.Anything, mock.Anything).Maybe()
	return logger
}

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string    { return m.Called().String(0) }
func (m *MockConfig) GetSigningMethod() string { return m.Called().String(0) }
func (m *MockConfig) GetContextKey() string    { return m.Called().String(0) }
func (m *MockConfig) GetTokenExpiration() int  { return m.Called().Int(0) }
func (m *MockConfig) GetTokenLookup() string   { return m.Called().String(0) }
func (m *MockConfig) GetAuthScheme() string    { return m.Called().String(0) }
func (m *MockConfig) GetIssuer() string        { return m.Called().String(0) }
func (m *MockConfig) GetBcryptCost() int       { return m.Called().Int(0) }
func (m *MockConfig) GetAudience() []string {
	aud, _ := m.Called().Get(0).([]string)
	return aud
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return(testSigningKey).Maybe()
	cfg.On("GetSigningMethod").Return("HS256").Maybe()
	cfg.On("GetContextKey").Return("user").Maybe()
	cfg.On("GetTokenExpiration").Return(10).Maybe()
	cfg.On("GetTokenLookup").Return("header:Authorization").Maybe()
	cfg.On("GetAuthScheme").Return("Bearer").Maybe()
	cfg.On("GetIssuer").Return("").Maybe()
	cfg.On("GetAudience").Return([]string{}).Maybe()
	cfg.On("GetBcryptCost").Return(4).Maybe()
	return cfg
}
