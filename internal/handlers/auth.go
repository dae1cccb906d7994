package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/model"
)

type UserService interface {
	EnsureUser(profile *model.ProviderProfile) (*model.User, error)
}

type SessionService interface {
	Issue(userID model.UserID) (string, error)
}

// AuthCallback is the landing point for the upstream OAuth layer. The
// handshake itself happens out of process; what arrives here is the already
// verified provider profile, which gets a local user and a session cookie.
func AuthCallback(config *boot.Config, userService UserService, sessions SessionService) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile := &model.ProviderProfile{}
		if err := c.Bind(profile); err != nil {
			return respondError(c, model.ErrorValidation)
		}

		user, err := userService.EnsureUser(profile)
		if err != nil {
			return respondError(c, err)
		}

		token, err := sessions.Issue(user.ID)
		if err != nil {
			return respondError(c, model.ErrorUnavailable)
		}

		c.SetCookie(&http.Cookie{
			Name:     SessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   config.IsProduction(),
			MaxAge:   int((time.Duration(config.Session.TTL) * time.Hour).Seconds()),
		})

		return c.JSON(http.StatusOK, user)
	}
}

func Logout() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetCookie(&http.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
		return c.NoContent(http.StatusNoContent)
	}
}

func Me(resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}
		if user == nil {
			return c.JSON(http.StatusUnauthorized, errorBody("login_required"))
		}
		return c.JSON(http.StatusOK, user)
	}
}
