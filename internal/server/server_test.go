package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pollhub/internal/config"
	"pollhub/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "correct-horse"

type testEnv struct {
	t   *testing.T
	cfg *config.Config
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

// newTestEnv builds the full application on an in-memory database without Redis.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := &config.Config{
		Env:                "test",
		Port:               "0",
		DBDriver:           "sqlite",
		SessionSecret:      "test-session-secret-0123456789abcdef",
		SessionTTLHours:    1,
		MediaDir:           t.TempDir(),
		AvatarMaxSizeBytes: 2 * 1024 * 1024,
		DefaultLocale:      "ru",
	}
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewSQLiteDB(t)
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	return &testEnv{t: t, cfg: cfg, srv: srv, app: srv.NewApp(), db: db}
}

// browser keeps cookies between requests like a user agent would.
type browser struct {
	env     *testEnv
	cookies map[string]string
}

func (e *testEnv) browser() *browser {
	return &browser{env: e, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.env.t.Helper()
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := b.env.app.Test(req, -1)
	require.NoError(b.env.t, err)

	for _, ck := range resp.Cookies() {
		expired := !ck.Expires.IsZero() && ck.Expires.Before(time.Now())
		if ck.Value == "" || ck.MaxAge < 0 || expired {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (b *browser) get(target string) *http.Response {
	b.env.t.Helper()
	return b.do(httptest.NewRequest(fiber.MethodGet, target, nil))
}

// csrfToken loads a page so the CSRF cookie is present and returns its value.
func (b *browser) csrfToken() string {
	b.env.t.Helper()
	if token, ok := b.cookies[csrfCookieName]; ok {
		return token
	}
	resp := b.get("/accounts/login")
	_ = resp.Body.Close()
	token := b.cookies[csrfCookieName]
	require.NotEmpty(b.env.t, token, "csrf cookie not issued")
	return token
}

func (b *browser) postForm(target string, values url.Values) *http.Response {
	b.env.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set(csrfFormField, b.csrfToken())
	req := httptest.NewRequest(fiber.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) postMultipart(target string, fields map[string]string, files ...testutil.Upload) *http.Response {
	b.env.t.Helper()
	withToken := map[string]string{csrfFormField: b.csrfToken()}
	for k, v := range fields {
		withToken[k] = v
	}
	body, contentType := testutil.MultipartBody(b.env.t, withToken, files...)
	req := httptest.NewRequest(fiber.MethodPost, target, body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	return b.do(req)
}

// register signs a new user up through the form and leaves the browser logged in.
func (b *browser) register(username string) *http.Response {
	b.env.t.Helper()
	return b.postMultipart("/accounts/register", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        testPassword,
		"password_repeat": testPassword,
	}, testutil.Upload{Field: "avatar", Filename: "me.png", Content: testutil.TinyPNG(b.env.t, 16, 16)})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
