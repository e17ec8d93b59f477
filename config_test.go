package auth_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", testSigningKey)

	cfg, err := auth.LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, testSigningKey, cfg.GetSigningKey())
	assert.Equal(t, "HS256", cfg.GetSigningMethod())
	assert.Equal(t, 10, cfg.GetTokenExpiration())
	assert.Equal(t, 12, cfg.GetBcryptCost())
	assert.Equal(t, "user", cfg.GetContextKey())
	assert.Equal(t, "header:Authorization", cfg.GetTokenLookup())
	assert.Equal(t, "Bearer", cfg.GetAuthScheme())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "file:auth.db?cache=shared", cfg.DatabaseURL)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.GetIssuer())
	assert.Empty(t, cfg.GetAudience())
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", testSigningKey)
	t.Setenv("AUTH_TOKEN_EXPIRATION", "2")
	t.Setenv("AUTH_ISSUER", "authsvc")
	t.Setenv("AUTH_AUDIENCE", "api, web")
	t.Setenv("AUTH_BCRYPT_COST", "6")
	t.Setenv("AUTH_HTTP_ADDR", ":9090")
	t.Setenv("AUTH_DEBUG", "true")

	cfg, err := auth.LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.GetTokenExpiration())
	assert.Equal(t, "authsvc", cfg.GetIssuer())
	assert.Equal(t, []string{"api", "web"}, cfg.GetAudience())
	assert.Equal(t, 6, cfg.GetBcryptCost())
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.True(t, cfg.Debug)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"signing_key: "+testSigningKey+"\n"+
			"http_addr: \":7070\"\n"+
			"token_expiration: 3\n",
	), 0o600))

	t.Setenv("AUTH_TOKEN_EXPIRATION", "4")

	cfg, err := auth.LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, testSigningKey, cfg.GetSigningKey())
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 4, cfg.GetTokenExpiration(), "environment wins over file")
}

func TestLoadSettings_Validation(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "")
	_, err := auth.LoadSettings("")
	assert.Error(t, err)

	t.Setenv("AUTH_SIGNING_KEY", "too-short")
	_, err = auth.LoadSettings("")
	assert.Error(t, err)

	t.Setenv("AUTH_SIGNING_KEY", testSigningKey)
	t.Setenv("AUTH_BCRYPT_COST", "40")
	_, err = auth.LoadSettings("")
	assert.Error(t, err)

	_, err = auth.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
