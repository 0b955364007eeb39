package server

import (
	"embed"
	"io/fs"
	"net/http"

	"pollhub/internal/messages"
	"pollhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed views
var viewsFS embed.FS

const baseLayout = "layouts/base"

// Locals key holding the negotiated locale.
const localLocale = "locale"

// localeCookie remembers an explicit ?lang= choice.
const localeCookie = "lang"

// newViewEngine parses the embedded templates and registers the t helper
// that resolves catalog keys.
func newViewEngine(catalog *messages.Catalog) *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("t", func(locale, key string, args ...any) string {
		return catalog.Get(locale, messages.Key(key), args...)
	})
	return engine
}

// LocaleMiddleware picks the request locale from ?lang=, the lang cookie or
// Accept-Language, in that order. An explicit supported ?lang= is remembered.
func (s *Server) LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		preferred := c.Query("lang")
		if preferred != "" && s.catalog.Supported(preferred) {
			c.Cookie(&fiber.Cookie{
				Name:     localeCookie,
				Value:    preferred,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		} else {
			preferred = c.Cookies(localeCookie)
		}
		c.Locals(localLocale, s.catalog.Negotiate(preferred, c.Get(fiber.HeaderAcceptLanguage)))
		return c.Next()
	}
}

func (s *Server) locale(c *fiber.Ctx) string {
	if l, ok := c.Locals(localLocale).(string); ok && l != "" {
		return l
	}
	return s.catalog.Fallback()
}

// text resolves a catalog key in the request locale.
func (s *Server) text(c *fiber.Ctx, key messages.Key, args ...any) string {
	return s.catalog.Get(s.locale(c), key, args...)
}

// render executes a page inside the base layout. Viewer, locale and CSRF
// token are always available to templates.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Viewer"] = middleware.ViewerFrom(c)
	data["Locale"] = s.locale(c)
	data["CSRF"] = csrfTokenFrom(c)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string][]string{}
	}
	return c.Status(status).Render(name, data, baseLayout)
}
