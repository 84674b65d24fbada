package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/middleware"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

// CookieSettings holds the attributes shared by both token cookies.  They
// are always HttpOnly and SameSite=Strict.
type CookieSettings struct {
	Secure bool
	Domain string
	Path   string
}

func (s CookieSettings) write(c echo.Context, name, value string, maxAge int, expires time.Time) {
	path := s.Path
	if path == "" {
		path = "/"
	}
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s CookieSettings) set(c echo.Context, name string, tok utils.Token) {
	maxAge := int(time.Until(tok.Exp).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	s.write(c, name, tok.Value, maxAge, tok.Exp)
}

func (s CookieSettings) setPair(c echo.Context, pair utils.TokenPair) {
	s.set(c, middleware.AccessCookie, pair.Access)
	s.set(c, middleware.RefreshCookie, pair.Refresh)
}

func (s CookieSettings) clear(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		s.write(c, name, "", -1, time.Unix(0, 0))
	}
}
