package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/model"
	"link.mbb.feedback/internal/service/access"
	"link.mbb.feedback/internal/service/secret"
	"link.mbb.feedback/internal/service/token"
	"link.mbb.feedback/internal/store"
)

type testStore interface {
	Store
	CreateUser(user *model.User) error
}

type fixture struct {
	service  *service
	store    testStore
	sender   *model.User
	visitors map[string]*model.User
}

func newFixture(t *testing.T) *fixture {
	config := &boot.Config{DataDir: t.TempDir()}
	config.Database.Path = "test.db"

	datastore, err := store.New(config)
	if err != nil {
		t.Fatalf("creating store: %+v", err)
	}
	t.Cleanup(func() { datastore.Close() })

	engine := access.NewEngine(datastore, secret.NewVerifier())
	service := New(datastore, token.NewAllocator(datastore), engine)

	f := &fixture{
		service:  service,
		store:    datastore,
		visitors: map[string]*model.User{},
	}
	f.sender = f.addUser(t, "sender", "sender@example.com")
	return f
}

func (f *fixture) addUser(t *testing.T, id model.UserID, email string) *model.User {
	user := &model.User{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		Name:          string(id),
		Username:      string(id),
		Email:         email,
		EmailVerified: true,
	}
	if err := f.store.CreateUser(user); err != nil {
		t.Fatalf("creating user: %+v", err)
	}
	f.visitors[string(id)] = user
	return user
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	t.Run("Email Method", func(t *testing.T) {
		created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
			AuthMethod:     model.AuthMethodEmail,
			RecipientEmail: "a@example.com",
			Message:        "nice work",
		})
		assert.Nil(err)
		assert.NotEmpty(created.LinkToken)
		assert.NotEqual(string(created.ID), created.LinkToken)
		assert.Nil(created.RecipientID)
		assert.Equal("default", created.DecorationPreset)
	})

	t.Run("Question Method Stores Digest Only", func(t *testing.T) {
		created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
			AuthMethod: model.AuthMethodQuestion,
			Question:   "color?",
			Answer:     "Blue ",
			Message:    "guess me",
		})
		assert.Nil(err)
		assert.Equal(secret.Digest("blue"), created.AnswerDigest)
		assert.NotContains(created.AnswerDigest, "Blue")
	})

	t.Run("Validation", func(t *testing.T) {
		cases := []*model.CreateFeedbackParams{
			{AuthMethod: model.AuthMethodEmail, RecipientEmail: "a@example.com"},
			{AuthMethod: model.AuthMethodEmail, Message: "hi"},
			{AuthMethod: model.AuthMethodQuestion, Message: "hi", Answer: "x"},
			{AuthMethod: model.AuthMethodQuestion, Message: "hi", Question: "q"},
			{AuthMethod: "pigeon", Message: "hi"},
		}
		for _, params := range cases {
			_, err := f.service.Create(f.sender, params)
			assert.ErrorIs(err, model.ErrorValidation)
		}
	})
}

func TestQuestionFlow(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
		AuthMethod: model.AuthMethodQuestion,
		Question:   "color?",
		Answer:     "Blue ",
		Message:    "secret message",
	})
	assert.Nil(err)

	t.Run("Visit Shows Challenge", func(t *testing.T) {
		view, err := f.service.Visit(created.LinkToken, nil)
		assert.Nil(err)
		assert.False(view.Revealed)
		assert.Equal("color?", view.Question)
		assert.Empty(view.Message)
	})

	t.Run("Normalized Answer Unlocks", func(t *testing.T) {
		view, err := f.service.SubmitChallenge(created.LinkToken, nil, "  blue")
		assert.Nil(err)
		assert.True(view.Revealed)
		assert.Equal("secret message", view.Message)
	})

	t.Run("Wrong Answer Denied", func(t *testing.T) {
		_, err := f.service.SubmitChallenge(created.LinkToken, nil, "red")
		assert.ErrorIs(err, model.ErrorDenied)
	})

	t.Run("Knowledge Does Not Link", func(t *testing.T) {
		visitor := f.addUser(t, "knower", "k@example.com")
		view, err := f.service.SubmitChallenge(created.LinkToken, visitor, "blue")
		assert.Nil(err)
		assert.True(view.Revealed)

		stored, err := f.store.FeedbackByToken(created.LinkToken)
		assert.Nil(err)
		assert.Nil(stored.RecipientID)
	})

	t.Run("Sender Sees Without Answer", func(t *testing.T) {
		view, err := f.service.Visit(created.LinkToken, f.sender)
		assert.Nil(err)
		assert.True(view.Revealed)
	})
}

func TestEmailFlow(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
		AuthMethod:     model.AuthMethodEmail,
		RecipientEmail: "a@example.com",
		Message:        "for your eyes",
	})
	assert.Nil(err)

	t.Run("Anonymous Gets Challenge", func(t *testing.T) {
		view, err := f.service.Visit(created.LinkToken, nil)
		assert.Nil(err)
		assert.False(view.Revealed)
		assert.Equal(model.AuthMethodEmail, view.AuthMethod)
		assert.Empty(view.Message)
	})

	t.Run("Wrong Email Gets Challenge", func(t *testing.T) {
		stranger := f.addUser(t, "stranger", "other@example.com")
		view, err := f.service.Visit(created.LinkToken, stranger)
		assert.Nil(err)
		assert.False(view.Revealed)
	})

	t.Run("Matching Email Reveals And Links", func(t *testing.T) {
		viewer := f.addUser(t, "viewer", "A@Example.com")
		view, err := f.service.Visit(created.LinkToken, viewer)
		assert.Nil(err)
		assert.True(view.Revealed)
		assert.Equal("for your eyes", view.Message)

		stored, err := f.store.FeedbackByToken(created.LinkToken)
		assert.Nil(err)
		assert.NotNil(stored.RecipientID)
		assert.EqualValues("viewer", *stored.RecipientID)
	})

	t.Run("Second Matching Identity Does Not Relink", func(t *testing.T) {
		twin := f.addUser(t, "twin", "a@example.com")
		view, err := f.service.Visit(created.LinkToken, twin)
		assert.Nil(err)
		assert.True(view.Revealed)

		stored, err := f.store.FeedbackByToken(created.LinkToken)
		assert.Nil(err)
		assert.EqualValues("viewer", *stored.RecipientID)
	})

	t.Run("Linked Recipient Keeps Access After Email Change", func(t *testing.T) {
		viewer := f.visitors["viewer"]
		changed := *viewer
		changed.Email = "new@example.com"

		view, err := f.service.Visit(created.LinkToken, &changed)
		assert.Nil(err)
		assert.True(view.Revealed)
	})
}

func TestDelete(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
		AuthMethod:     model.AuthMethodEmail,
		RecipientEmail: "a@example.com",
		Message:        "short lived",
	})
	assert.Nil(err)

	t.Run("Non Sender Forbidden", func(t *testing.T) {
		err := f.service.Delete(created.ID, "stranger")
		assert.ErrorIs(err, model.ErrorForbidden)
	})

	t.Run("Sender Deletes", func(t *testing.T) {
		assert.Nil(f.service.Delete(created.ID, f.sender.ID))
	})

	t.Run("Deleted Is Not Found For Everyone", func(t *testing.T) {
		_, err := f.service.Visit(created.LinkToken, f.sender)
		assert.ErrorIs(err, model.ErrorNotFound)

		_, err = f.service.Visit(created.LinkToken, nil)
		assert.ErrorIs(err, model.ErrorNotFound)

		_, err = f.service.SubmitChallenge(created.LinkToken, nil, "anything")
		assert.ErrorIs(err, model.ErrorNotFound)
	})

	t.Run("Missing Is Not Found", func(t *testing.T) {
		err := f.service.Delete("ghost", f.sender.ID)
		assert.ErrorIs(err, model.ErrorNotFound)
	})
}

func TestDashboards(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	created, err := f.service.Create(f.sender, &model.CreateFeedbackParams{
		AuthMethod:     model.AuthMethodEmail,
		RecipientEmail: "a@example.com",
		Message:        "hello",
	})
	assert.Nil(err)

	viewer := f.addUser(t, "viewer", "a@example.com")
	_, err = f.service.Visit(created.LinkToken, viewer)
	assert.Nil(err)

	sent, err := f.service.Sent(f.sender.ID)
	assert.Nil(err)
	assert.Len(sent, 1)

	received, err := f.service.Received(viewer.ID)
	assert.Nil(err)
	assert.Len(received, 1)
	assert.Equal(created.ID, received[0].ID)
}
