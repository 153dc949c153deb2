package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"bizcard/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactCols = []string{
	"id", "user_id", "card_id", "name", "email", "phone", "company", "position", "notes", "tags",
	"scanned_at", "location", "created_at", "updated_at",
}

func TestContactRepo_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(contactCols).
		AddRow("c-2", "u-1", int64(4), "Bo", "bo@acme.io", nil, "Acme", nil, nil, []byte(`["vip"]`), now, nil, now, now).
		AddRow("c-1", "u-1", nil, "Al", nil, nil, nil, nil, nil, nil, now.Add(-time.Hour), "Oslo", now, now)
	mock.ExpectQuery(`(?s)FROM contacts\s+WHERE user_id = \$1\s+ORDER BY scanned_at DESC`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := NewContactRepo(db).ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-2", got[0].ID)
	require.NotNil(t, got[0].CardID)
	assert.Equal(t, int64(4), *got[0].CardID)
	assert.Equal(t, []string{"vip"}, got[0].Tags)
	assert.Nil(t, got[1].CardID)
	require.NotNil(t, got[1].Location)
	assert.Equal(t, "Oslo", *got[1].Location)
	assert.Equal(t, []string{}, got[1].Tags)
}

func TestContactRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)INSERT INTO contacts .*RETURNING`).
		WithArgs("c-1", "u-1", nil, "Al", "al@x.io", nil, nil, nil, nil, `["a","b"]`, now, nil).
		WillReturnRows(sqlmock.NewRows(contactCols).
			AddRow("c-1", "u-1", nil, "Al", "al@x.io", nil, nil, nil, nil, []byte(`["a","b"]`), now, nil, now, now))

	got, err := NewContactRepo(db).Create(context.Background(), &model.Contact{
		ID: "c-1", UserID: "u-1", Name: "Al", Email: "al@x.io", Tags: []string{"a", "b", "a"}, ScannedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_Update_OwnerScoped(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`(?s)UPDATE contacts.*WHERE id = \$10 AND user_id = \$11`).
		WithArgs(nil, "Al", nil, nil, nil, nil, nil, `[]`, nil, "c-1", "u-other").
		WillReturnError(sql.ErrNoRows)

	_, err := NewContactRepo(db).Update(context.Background(), &model.Contact{ID: "c-1", UserID: "u-other", Name: "Al"})
	assert.ErrorIs(t, err, ErrContactNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)

	mock.ExpectExec(`DELETE FROM contacts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("c-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "c-1", "u-1"))

	mock.ExpectExec(`DELETE FROM contacts`).
		WithArgs("c-1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "c-1", "u-2"), ErrContactNotFound)
}
