package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"link.mbb.feedback/internal/model"
)

const SessionCookieName = "__session"

type IdentityResolver interface {
	Resolve(credential string) (*model.User, error)
}

// currentUser resolves the visitor from the session cookie. A missing or
// invalid cookie is an anonymous visitor, not an error.
func currentUser(c echo.Context, resolver IdentityResolver) (*model.User, error) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return resolver.Resolve(cookie.Value)
}

// respondError maps the service error taxonomy onto HTTP. Unavailability is
// kept distinct from denial so an outage never masquerades as a wrong
// answer.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrorNotFound):
		return c.JSON(http.StatusNotFound, errorBody("not_found"))
	case errors.Is(err, model.ErrorChallengeRequired):
		return c.JSON(http.StatusUnauthorized, errorBody("challenge_required"))
	case errors.Is(err, model.ErrorDenied):
		return c.JSON(http.StatusForbidden, errorBody("denied"))
	case errors.Is(err, model.ErrorForbidden):
		return c.JSON(http.StatusForbidden, errorBody("forbidden"))
	case errors.Is(err, model.ErrorValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"code": "invalid_request", "error": err.Error()})
	case errors.Is(err, model.ErrorUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorBody("unavailable"))
	default:
		return err
	}
}

func errorBody(code string) map[string]string {
	return map[string]string{"code": code}
}
