package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deleteSQL = `DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`
	insertSQL = `INSERT\s+INTO\s+refresh_tokens`
)

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewSQLStore(db, repomanager.NewPostgresRepositoryManager()), mock
}

func TestSQLStore_ReplaceCommits(t *testing.T) {
	s, mock := newSQLStore(t)
	exp := time.Date(2026, 10, 22, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(deleteSQL).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertSQL).
		WithArgs(sqlmock.AnyArg(), "u-1", "new", exp).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(exp.Add(-time.Hour)))
	mock.ExpectCommit()

	next := &models.RefreshToken{UserID: "u-1", Token: "new", ExpiresAt: exp}
	require.NoError(t, s.Replace(context.Background(), "old", next))
	assert.NotEmpty(t, next.ID)
}

func TestSQLStore_ReplaceLostRace(t *testing.T) {
	s, mock := newSQLStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(deleteSQL).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), "old", &models.RefreshToken{UserID: "u-1", Token: "new"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLStore_ReplaceInsertFailureRollsBack(t *testing.T) {
	s, mock := newSQLStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(deleteSQL).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertSQL).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), "old", &models.RefreshToken{UserID: "u-1", Token: "new"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "unique violation")
}

func TestSQLStore_DelegatesToRepository(t *testing.T) {
	s, mock := newSQLStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(insertSQL).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))
	mock.ExpectQuery(`FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
			AddRow("id-1", "u-1", "tok", ts.Add(time.Hour), ts))
	mock.ExpectExec(deleteSQL).WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE\s+user_id`).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`WHERE\s+expires_at`).WithArgs(ts).WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, s.Save(ctx, &models.RefreshToken{UserID: "u-1", Token: "tok", ExpiresAt: ts.Add(time.Hour)}))

	got, err := s.Find(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)

	require.NoError(t, s.Delete(ctx, "tok"))

	n, err := s.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	n, err = s.DeleteExpired(ctx, ts)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
