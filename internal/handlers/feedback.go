package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/model"
	"link.mbb.feedback/internal/service/feedback"
)

type FeedbackService interface {
	Create(sender *model.User, params *model.CreateFeedbackParams) (*model.Feedback, error)
	Visit(token string, visitor *model.User) (*feedback.View, error)
	SubmitChallenge(token string, visitor *model.User, answer string) (*feedback.View, error)
	Delete(id model.FeedbackID, requesterID model.UserID) error
	Sent(userID model.UserID) ([]*model.Feedback, error)
	Received(userID model.UserID) ([]*model.Feedback, error)
}

func CreateFeedback(config *boot.Config, feedbackService FeedbackService, resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		sender, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}
		if sender == nil {
			return c.JSON(http.StatusUnauthorized, errorBody("login_required"))
		}

		params := &model.CreateFeedbackParams{}
		if err := c.Bind(params); err != nil {
			return respondError(c, model.ErrorValidation)
		}

		created, err := feedbackService.Create(sender, params)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusCreated, map[string]interface{}{
			"feedback": created,
			"link":     config.BaseURL + "/feedback/" + created.LinkToken,
		})
	}
}

func VisitFeedback(feedbackService FeedbackService, resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		visitor, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}

		view, err := feedbackService.Visit(c.Param("token"), visitor)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func UnlockFeedback(feedbackService FeedbackService, resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		visitor, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}

		params := struct {
			Answer string `json:"answer" form:"answer"`
		}{}
		if err := c.Bind(&params); err != nil {
			return respondError(c, model.ErrorValidation)
		}

		view, err := feedbackService.SubmitChallenge(c.Param("token"), visitor, params.Answer)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func DeleteFeedback(feedbackService FeedbackService, resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		requester, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}
		if requester == nil {
			return c.JSON(http.StatusUnauthorized, errorBody("login_required"))
		}

		if err := feedbackService.Delete(model.FeedbackID(c.Param("id")), requester.ID); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func Dashboard(feedbackService FeedbackService, resolver IdentityResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, resolver)
		if err != nil {
			return respondError(c, err)
		}
		if user == nil {
			return c.JSON(http.StatusUnauthorized, errorBody("login_required"))
		}

		sent, err := feedbackService.Sent(user.ID)
		if err != nil {
			return respondError(c, err)
		}
		received, err := feedbackService.Received(user.ID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"sent":     sent,
			"received": received,
		})
	}
}
