// Package feedback orchestrates the lifecycle of a gated message: creation,
// link-token allocation, access evaluation, recipient linking and soft
// deletion. The access rules themselves live in service/access; this package
// applies their outcome against the store.
package feedback

import (
	"errors"
	"fmt"
	"time"

	"link.mbb.feedback/internal/model"
	"link.mbb.feedback/internal/service/access"
	"link.mbb.feedback/internal/service/secret"
)

type Store interface {
	CreateFeedback(feedback *model.Feedback) error
	FeedbackByToken(token string) (*model.Feedback, error)
	FeedbackByID(id model.FeedbackID) (*model.Feedback, error)
	LinkRecipientIfUnset(id model.FeedbackID, userID model.UserID) (bool, error)
	SoftDeleteFeedback(id model.FeedbackID, requesterID model.UserID) (bool, error)
	SentFeedback(userID model.UserID) ([]*model.Feedback, error)
	ReceivedFeedback(userID model.UserID) ([]*model.Feedback, error)
}

type TokenAllocator interface {
	Allocate() (string, error)
}

type Engine interface {
	Decide(feedback *model.Feedback, visitor *model.User, answer *string) (access.Decision, error)
}

// View is what a visitor gets back for a token: either the revealed content
// or the challenge descriptor, never both.
type View struct {
	ID               model.FeedbackID `json:"id"`
	LinkToken        string           `json:"linkToken"`
	AuthMethod       model.AuthMethod `json:"authMethod"`
	Question         string           `json:"question,omitempty"`
	DecorationPreset string           `json:"decorationPreset"`
	Revealed         bool             `json:"revealed"`
	Message          string           `json:"message,omitempty"`
	Stickers         string           `json:"stickers,omitempty"`
}

type service struct {
	store  Store
	tokens TokenAllocator
	engine Engine
}

func New(store Store, tokens TokenAllocator, engine Engine) *service {
	return &service{store: store, tokens: tokens, engine: engine}
}

// Create persists a new message. Content and gating choice are fixed here;
// the recipient is explicitly unlinked until an email-method visitor earns
// the link.
func (s *service) Create(sender *model.User, params *model.CreateFeedbackParams) (*model.Feedback, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	token, err := s.tokens.Allocate()
	if err != nil {
		return nil, fmt.Errorf("allocating link token: %w", err)
	}

	preset := params.DecorationPreset
	if preset == "" {
		preset = "default"
	}

	feedback := &model.Feedback{
		ID:               model.FeedbackID(model.CreateID()),
		CreatedAt:        time.Now().UTC(),
		SenderID:         sender.ID,
		RecipientID:      nil,
		AuthMethod:       params.AuthMethod,
		Message:          params.Message,
		DecorationPreset: preset,
		Stickers:         params.Stickers,
		LinkToken:        token,
	}

	switch params.AuthMethod {
	case model.AuthMethodEmail:
		feedback.RecipientEmail = params.RecipientEmail
	case model.AuthMethodQuestion:
		feedback.Question = params.Question
		feedback.AnswerDigest = secret.Digest(params.Answer)
	}

	if err := s.store.CreateFeedback(feedback); err != nil {
		return nil, fmt.Errorf("%w: storing feedback: %v", model.ErrorUnavailable, err)
	}
	return feedback, nil
}

// Visit evaluates a plain visit (no challenge credential). A grant reveals
// the content and, for a first matching email-method visitor, binds them as
// the permanent recipient. Anything else returns the challenge descriptor.
func (s *service) Visit(token string, visitor *model.User) (*View, error) {
	feedback, err := s.loadByToken(token)
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.Decide(feedback, visitor, nil)
	if err != nil {
		return nil, err
	}

	if decision.Outcome != access.OutcomeGranted {
		return challengeView(feedback), nil
	}

	if err := s.applyLink(feedback, visitor, decision); err != nil {
		return nil, err
	}
	return revealedView(feedback), nil
}

// SubmitChallenge re-evaluates with a submitted answer. For the email method
// the answer is ignored; identity resolution is the credential.
func (s *service) SubmitChallenge(token string, visitor *model.User, answer string) (*View, error) {
	feedback, err := s.loadByToken(token)
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.Decide(feedback, visitor, &answer)
	if err != nil {
		return nil, err
	}

	switch decision.Outcome {
	case access.OutcomeGranted:
		if err := s.applyLink(feedback, visitor, decision); err != nil {
			return nil, err
		}
		return revealedView(feedback), nil
	case access.OutcomeChallengeRequired:
		return nil, model.ErrorChallengeRequired
	default:
		return nil, model.ErrorDenied
	}
}

// Delete soft-deletes a message. Only the sender may; the row stays behind
// but every read path treats it as gone.
func (s *service) Delete(id model.FeedbackID, requesterID model.UserID) error {
	feedback, err := s.store.FeedbackByID(id)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return model.ErrorNotFound
		}
		return fmt.Errorf("%w: fetching feedback: %v", model.ErrorUnavailable, err)
	}
	if feedback.SenderID != requesterID {
		return model.ErrorForbidden
	}

	deleted, err := s.store.SoftDeleteFeedback(id, requesterID)
	if err != nil {
		return fmt.Errorf("%w: deleting feedback: %v", model.ErrorUnavailable, err)
	}
	if !deleted {
		return model.ErrorNotFound
	}
	return nil
}

func (s *service) Sent(userID model.UserID) ([]*model.Feedback, error) {
	feedback, err := s.store.SentFeedback(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sent feedback: %v", model.ErrorUnavailable, err)
	}
	return feedback, nil
}

func (s *service) Received(userID model.UserID) ([]*model.Feedback, error) {
	feedback, err := s.store.ReceivedFeedback(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing received feedback: %v", model.ErrorUnavailable, err)
	}
	return feedback, nil
}

func (s *service) loadByToken(token string) (*model.Feedback, error) {
	feedback, err := s.store.FeedbackByToken(token)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: fetching feedback: %v", model.ErrorUnavailable, err)
	}
	return feedback, nil
}

// applyLink performs the one irreversible mutation: binding the first
// matching email-method visitor as the permanent recipient. The store's
// conditional update closes the duplicate-tab race; losing the race is fine,
// the visitor is still granted.
func (s *service) applyLink(feedback *model.Feedback, visitor *model.User, decision access.Decision) error {
	if !decision.LinkRecipient || visitor == nil {
		return nil
	}
	if _, err := s.store.LinkRecipientIfUnset(feedback.ID, visitor.ID); err != nil {
		return fmt.Errorf("%w: linking recipient: %v", model.ErrorUnavailable, err)
	}
	return nil
}

func validate(params *model.CreateFeedbackParams) error {
	if params.Message == "" {
		return fmt.Errorf("%w: message is required", model.ErrorValidation)
	}
	switch params.AuthMethod {
	case model.AuthMethodEmail:
		if params.RecipientEmail == "" {
			return fmt.Errorf("%w: recipient email is required", model.ErrorValidation)
		}
	case model.AuthMethodQuestion:
		if params.Question == "" {
			return fmt.Errorf("%w: question is required", model.ErrorValidation)
		}
		if params.Answer == "" {
			return fmt.Errorf("%w: answer is required", model.ErrorValidation)
		}
	default:
		return fmt.Errorf("%w: unknown auth method %q", model.ErrorValidation, params.AuthMethod)
	}
	return nil
}

func challengeView(feedback *model.Feedback) *View {
	view := &View{
		ID:               feedback.ID,
		LinkToken:        feedback.LinkToken,
		AuthMethod:       feedback.AuthMethod,
		DecorationPreset: feedback.DecorationPreset,
	}
	if feedback.AuthMethod == model.AuthMethodQuestion {
		view.Question = feedback.Question
	}
	return view
}

func revealedView(feedback *model.Feedback) *View {
	return &View{
		ID:               feedback.ID,
		LinkToken:        feedback.LinkToken,
		AuthMethod:       feedback.AuthMethod,
		DecorationPreset: feedback.DecorationPreset,
		Revealed:         true,
		Message:          feedback.Message,
		Stickers:         feedback.Stickers,
	}
}
