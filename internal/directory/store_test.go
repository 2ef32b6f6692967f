package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var people = []Contact{
	{UserID: "u1", Name: "Ada Lovelace", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", SlackUsername: "ada"},
	{UserID: "u2", Name: "Alan Turing", FirstName: "Alan", LastName: "Turing", SlackUsernames: []string{"turing", "bombe"}},
	{UserID: "u3", Name: "José Núñez", FirstName: "José", LastName: "Núñez", Email: "jn@example.com"},
	{UserID: "u4", Name: "Grace Hopper", FirstName: "Grace", LastName: "Hopper", AvatarURL: "https://example.com/g.png"},
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	for _, c := range people {
		_, err := s.Put(context.Background(), c)
		require.NoError(t, err)
	}
	return s
}

func names(cs []Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ada", "ada"},
		{"José Núñez", "jose nunez"},
		{"  GRACE\t hopper ", "grace hopper"},
		{"Straße", "strasse"},
		{"ｆｕｌｌ", "full"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestSearch(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"a", 0, []string{"Ada Lovelace", "Alan Turing"}},
		{"A", 0, []string{"Ada Lovelace", "Alan Turing"}},
		{"love", 0, []string{"Ada Lovelace"}},
		{"nun", 0, []string{"José Núñez"}},
		{"JOSÉ", 0, []string{"José Núñez"}},
		{"bombe", 0, []string{"Alan Turing"}},
		{"jn", 0, []string{"José Núñez"}},
		{"ing", 0, nil},
		{"%", 0, nil},
		{"_", 0, nil},
		{"", 2, []string{"Ada Lovelace", "Alan Turing"}},
		{"", 0, []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "José Núñez"}},
	}
	for _, tt := range tests {
		got, err := s.Search(ctx, tt.query, tt.limit)
		require.NoError(t, err, "query %q", tt.query)
		if tt.want == nil {
			assert.Empty(t, got, "query %q", tt.query)
			continue
		}
		assert.Equal(t, tt.want, names(got), "query %q", tt.query)
	}
}

func TestPut_Upserts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	before, err := s.Get(ctx, "u4")
	require.NoError(t, err)

	id, err := s.Put(ctx, Contact{UserID: "u4", Name: "Grace Brewster Hopper", LastName: "Hopper"})
	require.NoError(t, err)
	assert.Equal(t, before.ID, id)

	after, err := s.Get(ctx, "u4")
	require.NoError(t, err)
	assert.Equal(t, "Grace Brewster Hopper", after.Name)
	assert.Empty(t, after.AvatarURL)

	got, err := s.Search(ctx, "brew", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace Brewster Hopper"}, names(got))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(people), n)
}

func TestPut_Invalid(t *testing.T) {
	s := openStore(t)
	_, err := s.Put(context.Background(), Contact{UserID: "x"})
	assert.ErrorIs(t, err, ErrInvalidContact)
	_, err = s.Put(context.Background(), Contact{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrInvalidContact)
}

func TestGet_RoundTripsHandles(t *testing.T) {
	s := openStore(t)
	c, err := s.Get(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"turing", "bombe"}, c.SlackUsernames)

	d := c.Details()
	assert.Equal(t, "u2", d.UserID)
	assert.Equal(t, []string{"turing", "bombe"}, d.SlackUsernames)
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "u1"))
	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "u1"), ErrNotFound)
}

func TestImport(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	n, err := s.Import(ctx, []byte(`[
		{"user_id": "u5", "name": "Katherine Johnson", "slack_usernames": ["kj"]},
		{"user_id": "u1", "name": "Augusta Ada King", "email": "ada@example.com"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(people)+1, total)

	got, err := s.Search(ctx, "kj", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Katherine Johnson"}, names(got))

	ada, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Augusta Ada King", ada.Name)
}

func TestImport_Invalid(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, src := range []string{
		`not json`,
		`{"user_id": "u9", "name": "Solo"}`,
		`[1, 2]`,
		`[{"user_id": "u9"}]`,
	} {
		_, err := s.Import(ctx, []byte(src))
		assert.ErrorIs(t, err, ErrInvalidContact, "input %s", src)
	}

	// A bad entry stores nothing.
	_, err := s.Import(ctx, []byte(`[{"user_id": "u8", "name": "Ok"}, {"name": "No id"}]`))
	require.Error(t, err)
	_, err = s.Get(ctx, "u8")
	assert.ErrorIs(t, err, ErrNotFound)
}
