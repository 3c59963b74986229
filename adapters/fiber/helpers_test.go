package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/crypto"
	"github.com/lborres/tipsapi/pkg/metrics"
	"github.com/lborres/tipsapi/services"
	"github.com/lborres/tipsapi/services/servicetest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "fiber-adapter-test-secret-0123456789"

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}

type fixture struct {
	app      *fiber.App
	adapter  *Adapter
	storage  *servicetest.FakeStorage
	sessions *services.SessionManager
	codec    *crypto.JWTCodec
	hasher   core.PasswordHasher
	metrics  *metrics.Metrics
}

type fixtureOption func(*Options)

func withExtractor(e TokenExtractor) fixtureOption {
	return func(o *Options) { o.Extractor = e }
}

func withAuthLimit(max int) fixtureOption {
	return func(o *Options) { o.AuthLimit = RateLimit{Max: max} }
}

func withDatabase(p Pinger) fixtureOption {
	return func(o *Options) { o.Database = p }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	storage := servicetest.NewFakeStorage()
	codec, err := crypto.NewJWTCodec(testSecret, "tipsapi")
	require.NoError(t, err)
	hasher := crypto.NewBcrypt(bcrypt.MinCost)
	m := metrics.New()

	sessions, err := services.NewSessionManager(core.DefaultSessionConfig(), storage, codec, hasher, m, nil)
	require.NoError(t, err)
	accounts := services.NewAuthService(storage, hasher, core.DefaultQueryTimeout, nil)
	tipsters := services.NewTipsterService(storage, core.DefaultQueryTimeout, nil)
	matches := services.NewMatchService(storage, core.DefaultQueryTimeout, nil)

	app := NewApp(ServerOptions{AppName: "tipsapi-test", Metrics: m})

	o := Options{
		Version:   "test",
		Sessions:  sessions,
		Accounts:  accounts,
		Tipsters:  tipsters,
		Matches:   matches,
		AuthLimit: RateLimit{Max: 100},
		Metrics:   m,
	}
	for _, opt := range opts {
		opt(&o)
	}

	adapter, err := New(app, o)
	require.NoError(t, err)

	registry, err := services.NewEndpointRegistry()
	require.NoError(t, err)
	require.NoError(t, adapter.RegisterRoutes(registry))

	return &fixture{
		app:      app,
		adapter:  adapter,
		storage:  storage,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		metrics:  m,
	}
}

func (f *fixture) seedUser(t *testing.T, username, password string, role core.Role) *core.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	email := username + "@example.com"
	return f.storage.SeedUser(&core.User{Username: username, Email: &email, PasswordHash: hash, Role: role})
}

// login logs in through the HTTP surface and returns the issued token.
func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// do sends a request with an optional JSON body and session cookie, and
// decodes the JSON response.
func (f *fixture) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	return doRequest(t, f.app, method, path, body, func(r *http.Request) {
		if token != "" {
			r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
		}
	})
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, mutate func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}
