package httpapi

import (
	"net/http"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/labstack/echo/v4"
)

const sessionIDKey = "session_id"

type SessionResolver interface {
	ResolveOrCreateSession(token string) (sessionID string, created bool)
}

// sessionMiddleware reads the anonymous session cookie and issues a new one
// when it is missing or malformed.
func sessionMiddleware(resolver SessionResolver, cfg config.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			if cookie, err := c.Cookie(cfg.CookieName); err == nil {
				token = cookie.Value
			}
			sessionID, created := resolver.ResolveOrCreateSession(token)
			if created {
				c.SetCookie(
					&http.Cookie{
						Name:     cfg.CookieName,
						Value:    sessionID,
						Path:     "/",
						MaxAge:   int(cfg.MaxAge.Seconds()),
						Secure:   cfg.SecureCookie,
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					},
				)
			}
			c.Set(sessionIDKey, sessionID)
			return next(c)
		}
	}
}

func sessionFromContext(c echo.Context) string {
	sessionID, _ := c.Get(sessionIDKey).(string)
	return sessionID
}
