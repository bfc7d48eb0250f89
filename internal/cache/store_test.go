package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newStoreWithDB(db, nil), mock
}

func TestLookupReturnsValidEntry(t *testing.T) {
	s, mock := newMockStore(t)
	future := time.Now().Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "address", "host", "priority", "domain", "expiration_date", "ttl", "record_type"}).
		AddRow(1, "93.184.216.34", nil, nil, "example.com", future, 300, 1)
	mock.ExpectQuery("SELECT .* FROM entries WHERE domain = \\? COLLATE NOCASE LIMIT 1").
		WithArgs("example.com").
		WillReturnRows(rows)

	e, err := s.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", e.Domain)
	assert.True(t, e.Address.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupMissReturnsErrMiss(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM entries WHERE domain = \\? COLLATE NOCASE LIMIT 1").
		WithArgs("nowhere.test").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Lookup(context.Background(), "nowhere.test")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLookupEvictsExpiredRow(t *testing.T) {
	s, mock := newMockStore(t)
	past := time.Now().Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "address", "host", "priority", "domain", "expiration_date", "ttl", "record_type"}).
		AddRow(7, "10.0.0.1", nil, nil, "stale.example", past, 60, 1)
	mock.ExpectQuery("SELECT .* FROM entries WHERE domain = \\? COLLATE NOCASE LIMIT 1").
		WithArgs("stale.example").
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM entries WHERE id = \\?").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := s.Lookup(context.Background(), "stale.example")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAWritesExpectedColumns(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO entries").
		WithArgs("93.184.216.34", "example.com", sqlmock.AnyArg(), uint32(300), uint16(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.InsertA(context.Background(), "example.com", []byte{93, 184, 216, 34}, 300)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupAllReturnsEveryRow(t *testing.T) {
	s, mock := newMockStore(t)
	future := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "address", "host", "priority", "domain", "expiration_date", "ttl", "record_type"}).
		AddRow(1, "1.2.3.4", nil, nil, "example.com", future, 60, 1).
		AddRow(2, "5.6.7.8", nil, nil, "example.com", future, 60, 1)
	mock.ExpectQuery("SELECT .* FROM entries WHERE domain = \\? COLLATE NOCASE$").
		WithArgs("example.com").
		WillReturnRows(rows)

	entries, err := s.LookupAll(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
