// Package directory is the contact store behind the mention suggestion
// panel.
//
// Contacts live in SQLite (modernc.org/sqlite, no cgo). Every row carries
// a folded search key so that lookups ignore case and accents and match
// any word prefix of the name, first and last name, Slack handles and
// e-mail.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mention"
)

// Errors returned by the store.
var (
	ErrNotFound       = errors.New("contact not found")
	ErrInvalidContact = errors.New("invalid contact")
)

// MemoryPath opens a private in-memory database.
const MemoryPath = "file::memory:"

// DefaultLimit caps search results when no limit is given.
const DefaultLimit = 8

// Contact is a person who can be mentioned.
type Contact struct {
	ID             int64    `yaml:"-"`
	UserID         string   `yaml:"user_id"`
	Name           string   `yaml:"name"`
	FirstName      string   `yaml:"first_name"`
	LastName       string   `yaml:"last_name"`
	SlackUsername  string   `yaml:"slack_username"`
	SlackUsernames []string `yaml:"slack_usernames"`
	Email          string   `yaml:"email"`
	AvatarURL      string   `yaml:"avatar_url"`
}

// Details converts c to the metadata written on a committed mention.
func (c Contact) Details() mention.Details {
	return mention.Details{
		Name:           c.Name,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		SlackUsername:  c.SlackUsername,
		SlackUsernames: append([]string(nil), c.SlackUsernames...),
		UserID:         c.UserID,
		Email:          c.Email,
		AvatarURL:      c.AvatarURL,
	}
}

func (c Contact) validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidContact)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name for %s", ErrInvalidContact, c.UserID)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL,
	first_name      TEXT NOT NULL DEFAULT '',
	last_name       TEXT NOT NULL DEFAULT '',
	slack_username  TEXT NOT NULL DEFAULT '',
	slack_usernames TEXT NOT NULL DEFAULT '[]',
	email           TEXT NOT NULL DEFAULT '',
	avatar_url      TEXT NOT NULL DEFAULT '',
	search_key      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
`

const upsertSQL = `
INSERT INTO contacts (user_id, name, first_name, last_name, slack_username,
	slack_usernames, email, avatar_url, search_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	name = excluded.name,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	slack_username = excluded.slack_username,
	slack_usernames = excluded.slack_usernames,
	email = excluded.email,
	avatar_url = excluded.avatar_url,
	search_key = excluded.search_key`

const columns = `id, user_id, name, first_name, last_name, slack_username, slack_usernames, email, avatar_url`

var _ Source = (*Store)(nil)

// Store is a SQLite-backed contact directory. It is safe for concurrent
// use.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens or creates the directory at path. MemoryPath gives a
// throwaway in-memory store.
func Open(ctx context.Context, path string, log *logging.Logger) (*Store, error) {
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory folder: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure directory: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, log: logging.OrNop(log).WithComponent("directory")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts c, or updates the contact with the same UserID, and returns
// its row id.
func (s *Store) Put(ctx context.Context, c Contact) (int64, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	handles, err := encodeHandles(c.SlackUsernames)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, upsertSQL+` RETURNING id`,
		c.UserID, c.Name, c.FirstName, c.LastName, c.SlackUsername,
		handles, c.Email, c.AvatarURL, searchKey(c),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("put contact %s: %w", c.UserID, err)
	}
	return id, nil
}

// Get returns the contact with the given user id.
func (s *Store) Get(ctx context.Context, userID string) (Contact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM contacts WHERE user_id = ?`, userID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, fmt.Errorf("%s: %w", userID, ErrNotFound)
	}
	return c, err
}

// Delete removes the contact with the given user id.
func (s *Store) Delete(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete contact %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", userID, ErrNotFound)
	}
	return nil
}

// Count returns the number of contacts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// Search returns up to limit contacts with a word starting with query,
// ordered by name. An empty query lists contacts from the top. A limit of
// zero or less uses DefaultLimit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := Fold(query)

	var (
		rows *sql.Rows
		err  error
	)
	if q == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+columns+` FROM contacts ORDER BY name COLLATE NOCASE, id LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+columns+` FROM contacts WHERE search_key LIKE ? ESCAPE '\'
			ORDER BY name COLLATE NOCASE, id LIMIT ?`, likePattern(q), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	s.log.Debug("search", "query", query, "results", len(out))
	return out, nil
}

// Import reads a JSON array of contact objects and stores them in one
// transaction. Keys are snake_case field names (user_id, name, first_name,
// last_name, slack_username, slack_usernames, email, avatar_url). It
// returns the number of contacts stored.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("%w: malformed JSON", ErrInvalidContact)
	}
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		return 0, fmt.Errorf("%w: expected an array of contacts", ErrInvalidContact)
	}

	var contacts []Contact
	for i, item := range list.Array() {
		if !item.IsObject() {
			return 0, fmt.Errorf("%w: entry %d is not an object", ErrInvalidContact, i)
		}
		c := Contact{
			UserID:        item.Get("user_id").String(),
			Name:          item.Get("name").String(),
			FirstName:     item.Get("first_name").String(),
			LastName:      item.Get("last_name").String(),
			SlackUsername: item.Get("slack_username").String(),
			Email:         item.Get("email").String(),
			AvatarURL:     item.Get("avatar_url").String(),
		}
		for _, h := range item.Get("slack_usernames").Array() {
			c.SlackUsernames = append(c.SlackUsernames, h.String())
		}
		if err := c.validate(); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		contacts = append(contacts, c)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, c := range contacts {
		handles, err := encodeHandles(c.SlackUsernames)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, c.UserID, c.Name, c.FirstName, c.LastName,
			c.SlackUsername, handles, c.Email, c.AvatarURL, searchKey(c)); err != nil {
			return 0, fmt.Errorf("import %s: %w", c.UserID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.log.Info("contacts imported", "count", len(contacts))
	return len(contacts), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (Contact, error) {
	var (
		c       Contact
		handles string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.FirstName, &c.LastName,
		&c.SlackUsername, &handles, &c.Email, &c.AvatarURL)
	if err != nil {
		return Contact{}, err
	}
	for _, h := range gjson.Parse(handles).Array() {
		c.SlackUsernames = append(c.SlackUsernames, h.String())
	}
	return c, nil
}

// encodeHandles stores the Slack handle list as a JSON array.
func encodeHandles(handles []string) (string, error) {
	out := "[]"
	for _, h := range handles {
		var err error
		if out, err = sjson.Set(out, "-1", h); err != nil {
			return "", fmt.Errorf("encode slack usernames: %w", err)
		}
	}
	return out, nil
}
