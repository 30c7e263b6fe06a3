package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/errors"
)

const (
	SessionIDKey      = "cart_session_id"
	SessionHeader     = "X-Cart-Session"
	HookTokenHeader   = "X-Hook-Token"
	maxSessionIDBytes = 255
)

// CartSessionMiddleware keeps an anonymous cart session on every storefront
// request, minting a cookie when the client has none.
type CartSessionMiddleware struct {
	cookieName string
	maxAge     time.Duration
	secure     bool
}

func NewCartSessionMiddleware(cookieName string, maxAge time.Duration, secure bool) *CartSessionMiddleware {
	return &CartSessionMiddleware{
		cookieName: cookieName,
		maxAge:     maxAge,
		secure:     secure,
	}
}

func (m *CartSessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		sessionID, _ := c.Cookie(m.cookieName)
		if sessionID == "" {
			sessionID = c.GetHeader(SessionHeader)
		}
		if len(sessionID) > maxSessionIDBytes {
			log.Warn("Oversized cart session id replaced", map[string]interface{}{
				"length": len(sessionID),
			})
			sessionID = ""
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			log.Debug("Minted cart session", map[string]interface{}{
				"session_id": sessionID,
			})
		}

		// Refresh on every request so active shoppers keep their session.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(m.cookieName, sessionID, int(m.maxAge.Seconds()), "/", "", m.secure, true)
		c.Set(SessionIDKey, sessionID)

		c.Next()
	}
}

// GetIdentity returns the identity derived for this request by the auth and
// session middlewares.
func GetIdentity(c *gin.Context) model.Identity {
	userID, _ := GetUserID(c)
	return model.Identity{
		UserID:    userID,
		SessionID: c.GetString(SessionIDKey),
	}
}

// RequireHookToken guards server-to-server hooks with a shared token. An
// empty configured token rejects every call.
func RequireHookToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		given := c.GetHeader(HookTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			log.Warn("Hook call rejected", map[string]interface{}{
				"path":       c.Request.URL.Path,
				"configured": token != "",
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.CaptureHookForbidden, "Invalid hook token")
			c.Abort()
			return
		}
		c.Next()
	}
}
