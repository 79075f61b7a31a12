package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localhub-app/LocalHub/internal/pkg/session"
	"github.com/localhub-app/LocalHub/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a per-request UserContext.
// Identity issuance (login) lives in a separate service; this app only
// consumes the session it leaves behind.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return setAnonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return setAnonymous(c)
	}

	uid, ok := userID.(uint)
	if !ok || uid == 0 {
		return setAnonymous(c)
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     uid,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	return c.Next()
}

func setAnonymous(c *fiber.Ctx) error {
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}
