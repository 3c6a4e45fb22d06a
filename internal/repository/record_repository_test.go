package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiseti/reporting-api/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var recordCols = []string{"id", "type", "title", "description", "status", "latitude", "longitude", "user_id", "created_at"}

func TestCreateStartsInDraft(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO records (type, title, description, status, latitude, longitude, user_id) VALUES (?,?,?,?,?,?,?)")).
		WithArgs("red-flag", "Bribery", "Officer demanded a bribe", "draft", nil, nil, uint64(7)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM records WHERE id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	rec, err := repo.Create(context.Background(), 7, model.TypeRedFlag, "Bribery", "Officer demanded a bribe", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.ID)
	assert.Equal(t, model.StatusDraft, rec.Status)
	assert.Equal(t, uint64(7), rec.UserID)
	assert.Empty(t, rec.Media)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery("SELECT .+ FROM records WHERE id=\\? LIMIT 1").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldsTxPartialPatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE records SET title=?, latitude=? WHERE id=?")).
		WithArgs("New title", 1.25, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	title := "New title"
	lat := 1.25
	err = repo.UpdateFieldsTx(context.Background(), tx, 4, RecordPatch{Title: &title, Latitude: &lat})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldsTxEmptyPatchIsNoop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.UpdateFieldsTx(context.Background(), tx, 4, RecordPatch{}))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTxCascadesMedia(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM media WHERE record_id=?")).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE id=?")).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.DeleteTx(context.Background(), tx, 5))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaginationMath(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM records")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows(recordCols)
	for i := 1; i <= 10; i++ {
		rows.AddRow(i, "red-flag", "t", "d", "draft", nil, nil, 1, time.Now().UTC())
	}
	mock.ExpectQuery("SELECT .+ FROM records ORDER BY id LIMIT \\? OFFSET \\?").
		WithArgs(10, 0).
		WillReturnRows(rows)

	mrows := sqlmock.NewRows([]string{"id", "image_url", "video_url", "record_id"}).
		AddRow(1, "http://img/1.png", nil, 1)
	mock.ExpectQuery("SELECT .+ FROM media WHERE record_id IN").
		WillReturnRows(mrows)

	records, total, pages, err := repo.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.Equal(t, 25, total)
	assert.Equal(t, 3, pages)
	require.Len(t, records[0].Media, 1)
	assert.Equal(t, "http://img/1.png", *records[0].Media[0].ImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPageBeyondEnd(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM records")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("SELECT .+ FROM records ORDER BY id LIMIT \\? OFFSET \\?").
		WithArgs(10, 30).
		WillReturnRows(sqlmock.NewRows(recordCols))

	records, total, pages, err := repo.List(context.Background(), 4, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 25, total)
	assert.Equal(t, 3, pages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Non-positive paging values fall back to page 1 / per_page 10.
func TestListClampsPagingValues(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM records")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT .+ FROM records ORDER BY id LIMIT \\? OFFSET \\?").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(recordCols))

	records, total, pages, err := repo.List(context.Background(), -3, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, pages)
	assert.NoError(t, mock.ExpectationsWereMet())
}
