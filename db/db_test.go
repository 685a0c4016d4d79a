package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return &Store{DB: database}, mock
}

func TestUpsertPrefix(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO prefix(guild_id, prefix, updated_at)`)).
		WithArgs("discord:1", "!").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertPrefix(context.Background(), "discord:1", "!"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrefix(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT prefix FROM prefix WHERE guild_id=$1`)).
		WithArgs("discord:1").
		WillReturnRows(sqlmock.NewRows([]string{"prefix"}).AddRow("$"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT prefix FROM prefix WHERE guild_id=$1`)).
		WithArgs("discord:2").
		WillReturnError(sql.ErrNoRows)

	p, ok, err := s.GetPrefix(context.Background(), "discord:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "$", p)

	_, ok, err = s.GetPrefix(context.Background(), "discord:2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPrefixes(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT guild_id, prefix FROM prefix`)).
		WillReturnRows(sqlmock.NewRows([]string{"guild_id", "prefix"}).AddRow("discord:1", "!").AddRow("discord:2", "?"))

	got, err := s.ListPrefixes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"discord:1": "!", "discord:2": "?"}, got)
}

func TestOsuUsernameRoundTrip(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO osu_user(user_id, osu_username, updated_at)`)).
		WithArgs("twitch:9", "cookiezi").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT osu_username FROM osu_user WHERE user_id=$1`)).
		WithArgs("twitch:9").
		WillReturnRows(sqlmock.NewRows([]string{"osu_username"}).AddRow("cookiezi"))

	ctx := context.Background()
	require.NoError(t, s.UpsertOsuUsername(ctx, "twitch:9", "cookiezi"))
	name, ok, err := s.GetOsuUsername(ctx, "twitch:9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cookiezi", name)
}

func TestSkin(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO replay_config(user_id, skin_id, updated_at)`)).
		WithArgs("discord:5", 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT skin_id FROM replay_config WHERE user_id=$1`)).
		WithArgs("discord:6").
		WillReturnError(errors.New("connection reset"))

	ctx := context.Background()
	require.NoError(t, s.UpsertSkin(ctx, "discord:5", 42))
	_, _, err := s.GetSkin(ctx, "discord:6")
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres migration test")
	}
	database, err := Connect(context.Background(), dsn)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database))
	require.NoError(t, RunMigrations(database), "second run must be a no-op")

	s := &Store{DB: database}
	ctx := context.Background()
	require.NoError(t, s.UpsertPrefix(ctx, "test:guild", "!"))
	require.NoError(t, s.UpsertPrefix(ctx, "test:guild", "?"))
	p, ok, err := s.GetPrefix(ctx, "test:guild")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "?", p)
}
