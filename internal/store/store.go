package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/model"
)

type store struct {
	db *sqlx.DB
}

func New(config *boot.Config) (*store, error) {
	dbName := path.Join(config.DataDirectory(), config.Database.Path)

	isCreating := false
	_, err := os.Stat(dbName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			isCreating = true
		}
	}

	db, err := sqlx.Connect("sqlite3", "file:"+dbName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	datastore := &store{db}
	if isCreating {
		err = datastore.createTables()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	return datastore, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) createTables() error {
	_, err := s.db.Exec(`create table users(
		ID            text not null primary key,
		CreatedAt     DATETIME not null,
		Name          text not null,
		Username      text not null unique,
		Email         text not null,
		EmailVerified boolean not null default false,
		ProfilePic    text not null default '',
		Bio           text not null default ''
	)`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = s.db.Exec(`create table oauth_accounts(
		Provider          text not null,
		ProviderAccountID text not null,
		UserID            text not null references users(ID),
		primary key (Provider, ProviderAccountID)
	)`)
	if err != nil {
		return fmt.Errorf("creating oauth_accounts table: %w", err)
	}

	_, err = s.db.Exec(`create table feedback(
		ID               text not null primary key,
		CreatedAt        DATETIME not null,
		DeletedAt        DATETIME null,
		SenderID         text not null references users(ID),
		RecipientID      text null,
		RecipientEmail   text not null default '',
		AuthMethod       text not null,
		Question         text not null default '',
		AnswerDigest     text not null default '',
		Message          text not null,
		DecorationPreset text not null default 'default',
		Stickers         text not null default '',
		LinkToken        text not null unique
	)`)
	if err != nil {
		return fmt.Errorf("creating feedback table: %w", err)
	}

	return nil
}

func (s *store) CreateUser(user *model.User) error {
	res, err := s.db.NamedExec(`insert into users
		(ID, CreatedAt, Name, Username, Email, EmailVerified, ProfilePic, Bio)
		values(:ID, :CreatedAt, :Name, :Username, :Email, :EmailVerified, :ProfilePic, :Bio)`, user)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	if rows, err := res.RowsAffected(); rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	} else if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	return nil
}

func (s *store) FetchUser(userID model.UserID) (*model.User, error) {
	user := &model.User{}
	err := s.db.Get(user, `select * from users where ID = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (s *store) EmailForUser(userID model.UserID) (string, error) {
	var email string
	err := s.db.Get(&email, `select Email from users where ID = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrorNotFound
		}
		return "", fmt.Errorf("fetching user email: %w", err)
	}
	return email, nil
}

func (s *store) UserForAccount(provider string, providerAccountID string) (*model.User, error) {
	user := &model.User{}
	err := s.db.Get(user, `select u.* from users u
		join oauth_accounts a on a.UserID = u.ID
		where a.Provider = ? and a.ProviderAccountID = ?`, provider, providerAccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("fetching user for account: %w", err)
	}
	return user, nil
}

func (s *store) LinkAccount(provider string, providerAccountID string, userID model.UserID) error {
	_, err := s.db.Exec(`insert into oauth_accounts (Provider, ProviderAccountID, UserID) values(?, ?, ?)`,
		provider, providerAccountID, userID)
	if err != nil {
		return fmt.Errorf("inserting oauth account: %w", err)
	}
	return nil
}

func (s *store) CreateFeedback(feedback *model.Feedback) error {
	res, err := s.db.NamedExec(`insert into feedback
		(ID, CreatedAt, SenderID, RecipientID, RecipientEmail, AuthMethod,
		 Question, AnswerDigest, Message, DecorationPreset, Stickers, LinkToken)
		values(:ID, :CreatedAt, :SenderID, :RecipientID, :RecipientEmail, :AuthMethod,
		 :Question, :AnswerDigest, :Message, :DecorationPreset, :Stickers, :LinkToken)`, feedback)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	if rows, err := res.RowsAffected(); rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	} else if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	return nil
}

// FeedbackByToken behaves identically for missing and soft-deleted rows.
func (s *store) FeedbackByToken(token string) (*model.Feedback, error) {
	feedback := &model.Feedback{}
	err := s.db.Get(feedback, `select * from feedback where LinkToken = ? and DeletedAt is null`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("fetching feedback by token: %w", err)
	}
	return feedback, nil
}

func (s *store) FeedbackByID(id model.FeedbackID) (*model.Feedback, error) {
	feedback := &model.Feedback{}
	err := s.db.Get(feedback, `select * from feedback where ID = ? and DeletedAt is null`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("fetching feedback: %w", err)
	}
	return feedback, nil
}

// TokenExists checks all rows including soft-deleted ones, so a retired
// token is never reissued.
func (s *store) TokenExists(token string) (bool, error) {
	var count int
	err := s.db.Get(&count, `select count(*) from feedback where LinkToken = ?`, token)
	if err != nil {
		return false, fmt.Errorf("checking token: %w", err)
	}
	return count > 0, nil
}

// LinkRecipientIfUnset binds userID as the permanent recipient, but only if
// no recipient is bound yet. The guard lives in the statement itself so two
// concurrent visits cannot both claim the link.
func (s *store) LinkRecipientIfUnset(id model.FeedbackID, userID model.UserID) (bool, error) {
	res, err := s.db.Exec(`update feedback set RecipientID = ?
		where ID = ? and RecipientID is null and DeletedAt is null`, userID, id)
	if err != nil {
		return false, fmt.Errorf("linking recipient: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows == 1, nil
}

// SoftDeleteFeedback only succeeds when requesterID authored the message.
func (s *store) SoftDeleteFeedback(id model.FeedbackID, requesterID model.UserID) (bool, error) {
	res, err := s.db.Exec(`update feedback set DeletedAt = ?
		where ID = ? and SenderID = ? and DeletedAt is null`, time.Now().UTC(), id, requesterID)
	if err != nil {
		return false, fmt.Errorf("deleting feedback: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *store) SentFeedback(userID model.UserID) ([]*model.Feedback, error) {
	feedback := []*model.Feedback{}
	err := s.db.Select(&feedback, `select * from feedback
		where SenderID = ? and DeletedAt is null
		order by CreatedAt desc`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sent feedback: %w", err)
	}
	return feedback, nil
}

func (s *store) ReceivedFeedback(userID model.UserID) ([]*model.Feedback, error) {
	feedback := []*model.Feedback{}
	err := s.db.Select(&feedback, `select * from feedback
		where RecipientID = ? and DeletedAt is null
		order by CreatedAt desc`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing received feedback: %w", err)
	}
	return feedback, nil
}
