// Package access decides, for one (message, visitor, credential) triple,
// whether the protected content may be revealed and whether the visitor
// should be bound as the message's permanent recipient. It performs no
// mutations itself; linking is signalled to the caller and applied by the
// store's conditional update.
package access

import (
	"errors"
	"fmt"
	"strings"

	"link.mbb.feedback/internal/model"
)

type Outcome int

const (
	OutcomeDenied Outcome = iota
	OutcomeGranted
	// OutcomeChallengeRequired is a denial that tells the caller no
	// credential was submitted yet. It exists so the UI can show the
	// challenge form; it reveals nothing more than OutcomeDenied does.
	OutcomeChallengeRequired
)

type Decision struct {
	Outcome Outcome
	// LinkRecipient signals that the visitor should be bound as the
	// permanent recipient. Only ever true on an email-method grant while
	// the message is still unlinked.
	LinkRecipient bool
}

type Verifier interface {
	Verify(secret string, digest string) bool
}

type RecipientEmails interface {
	EmailForUser(userID model.UserID) (string, error)
}

type engine struct {
	emails   RecipientEmails
	verifier Verifier
}

func NewEngine(emails RecipientEmails, verifier Verifier) *engine {
	return &engine{emails: emails, verifier: verifier}
}

// Decide evaluates one access attempt. answer is nil when no challenge
// credential was submitted. A soft-deleted message surfaces as
// model.ErrorNotFound, never as a denial. All denials are generic: the
// caller learns nothing about which check failed.
func (e *engine) Decide(feedback *model.Feedback, visitor *model.User, answer *string) (Decision, error) {
	if feedback.DeletedAt != nil {
		return Decision{}, model.ErrorNotFound
	}

	if visitor != nil && visitor.ID == feedback.SenderID {
		return Decision{Outcome: OutcomeGranted}, nil
	}
	if visitor != nil && feedback.RecipientID != nil && visitor.ID == *feedback.RecipientID {
		return Decision{Outcome: OutcomeGranted}, nil
	}

	switch feedback.AuthMethod {
	case model.AuthMethodEmail:
		return e.decideEmail(feedback, visitor)
	case model.AuthMethodQuestion:
		return e.decideQuestion(feedback, answer)
	default:
		return Decision{Outcome: OutcomeDenied}, nil
	}
}

// decideEmail grants when the visitor's verified email matches the target.
// Identity resolution is the credential; a typed-in email is never consulted.
func (e *engine) decideEmail(feedback *model.Feedback, visitor *model.User) (Decision, error) {
	target := feedback.RecipientEmail
	if target == "" && feedback.RecipientID != nil {
		// Linked by id but the denormalized email was never populated;
		// fall back to the linked recipient's own email.
		email, err := e.emails.EmailForUser(*feedback.RecipientID)
		if err != nil {
			if errors.Is(err, model.ErrorNotFound) {
				return Decision{Outcome: OutcomeDenied}, nil
			}
			return Decision{}, fmt.Errorf("%w: resolving recipient email: %v", model.ErrorUnavailable, err)
		}
		target = email
	}

	if visitor == nil || target == "" || !strings.EqualFold(visitor.Email, target) {
		return Decision{Outcome: OutcomeDenied}, nil
	}

	return Decision{
		Outcome:       OutcomeGranted,
		LinkRecipient: feedback.RecipientID == nil,
	}, nil
}

// decideQuestion grants on knowledge of the answer alone; no identity is
// linked for this method.
func (e *engine) decideQuestion(feedback *model.Feedback, answer *string) (Decision, error) {
	if answer == nil {
		return Decision{Outcome: OutcomeChallengeRequired}, nil
	}
	if !e.verifier.Verify(*answer, feedback.AnswerDigest) {
		return Decision{Outcome: OutcomeDenied}, nil
	}
	return Decision{Outcome: OutcomeGranted}, nil
}
