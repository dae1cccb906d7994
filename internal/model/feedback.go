package model

import "time"

type FeedbackID string

// AuthMethod selects the gating strategy for a feedback message. The set is
// closed; stored values must stay stable.
type AuthMethod string

const (
	AuthMethodEmail    AuthMethod = "email"
	AuthMethodQuestion AuthMethod = "question"
)

type CreateFeedbackParams struct {
	RecipientEmail   string     `json:"recipientEmail"`
	AuthMethod       AuthMethod `json:"authMethod"`
	Question         string     `json:"question"`
	Answer           string     `json:"answer"`
	Message          string     `json:"message"`
	DecorationPreset string     `json:"decorationPreset"`
	Stickers         string     `json:"stickers"`
}

type Feedback struct {
	ID               FeedbackID `db:"ID" json:"id"`
	CreatedAt        time.Time  `db:"CreatedAt" json:"createdAt"`
	DeletedAt        *time.Time `db:"DeletedAt" json:"-"`
	SenderID         UserID     `db:"SenderID" json:"senderId"`
	RecipientID      *UserID    `db:"RecipientID" json:"recipientId"`
	RecipientEmail   string     `db:"RecipientEmail" json:"-"`
	AuthMethod       AuthMethod `db:"AuthMethod" json:"authMethod"`
	Question         string     `db:"Question" json:"question"`
	AnswerDigest     string     `db:"AnswerDigest" json:"-"`
	Message          string     `db:"Message" json:"-"`
	DecorationPreset string     `db:"DecorationPreset" json:"decorationPreset"`
	Stickers         string     `db:"Stickers" json:"-"`
	LinkToken        string     `db:"LinkToken" json:"linkToken"`
}
