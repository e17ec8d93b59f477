package command

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
)

const testSigningKey = "cli-signing-key-0123456789abcdefgh"

// useTempDatabase points the configuration at a fresh SQLite file
func useTempDatabase(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SIGNING_KEY", testSigningKey)
	t.Setenv("AUTH_DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "auth.db"))
	t.Setenv("AUTH_BCRYPT_COST", "4")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := RootCommand()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func openService(t *testing.T) *service {
	t.Helper()

	cfg, err := auth.LoadSettings("")
	require.NoError(t, err)

	svc, err := newService(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func TestUsersCreateAndList(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "", "migrate")
	require.NoError(t, err)

	out, err := execute(t, "pw123\r\n", "users", "create", "alice", "--email", "a@x.com", "--born", "1990-01-01")
	require.NoError(t, err)

	created := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &created), out)
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "1990-01-01", created["dateBorn"])
	assert.NotContains(t, out, "password")

	// a final line without newline is still a password
	_, err = execute(t, "hunter2", "user", "create", "bob", "--email", "b@x.com", "--born", "1985-05-20")
	require.NoError(t, err)

	out, err = execute(t, "", "users", "list")
	require.NoError(t, err)

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := map[string]any{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		assert.NotContains(t, line, "passwordHash")
		names = append(names, line["username"].(string))
	}
	require.NoError(t, scanner.Err())
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	svc := openService(t)
	ctx := context.Background()

	_, err = svc.auther.Login(ctx, "alice", "pw123")
	assert.NoError(t, err, "line ending must be stripped from the password")

	_, err = svc.auther.Login(ctx, "alice", "pw123\r")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.auther.Login(ctx, "bob", "hunter2")
	assert.NoError(t, err)
}

func TestUsersCreateErrors(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "", "migrate")
	require.NoError(t, err)

	_, err = execute(t, "", "users", "create", "alice", "--email", "a@x.com", "--born", "1990-01-01")
	assert.Error(t, err, "empty stdin has no password")

	_, err = execute(t, "pw\n", "users", "create", "alice", "--email", "a@x.com", "--born", "01/01/1990")
	assert.Error(t, err)

	_, err = execute(t, "pw\n", "users", "create", "alice", "--email", "a@x.com", "--born", "1990-01-01")
	require.NoError(t, err)

	_, err = execute(t, "pw\n", "users", "create", "alice", "--email", "a@x.com", "--born", "1990-01-01")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestNewHTTPServer(t *testing.T) {
	useTempDatabase(t)

	svc := openService(t)
	require.NoError(t, svc.migrate(context.Background()))

	srv, err := newHTTPServer(svc)
	require.NoError(t, err)
	app := fiberApp(srv)

	call := func(method, path, body, token string) (int, []byte) {
		t.Helper()
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		}
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, raw
	}

	status, _ := call(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, raw := call(http.MethodPost, "/auth/register",
		`{"username":"carol","password":"pw123","email":"c@x.com","dateBorn":"1992-02-02"}`, "")
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(http.MethodPost, "/auth/login", `{"username":"carol","password":"pw123"}`, "")
	require.Equal(t, http.StatusOK, status, string(raw))

	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Token)

	status, _ = call(http.MethodGet, "/auth", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = call(http.MethodGet, "/auth", "", login.Token)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"username":"carol"`)
}
