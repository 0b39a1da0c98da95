package tokenstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
)

// SQLStore keeps refresh tokens in the refresh_tokens table.
type SQLStore struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, repos repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, repos: repos}
}

func (s *SQLStore) Save(ctx context.Context, token *models.RefreshToken) error {
	return s.repos.RefreshTokens(s.db).Create(ctx, token)
}

func (s *SQLStore) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	return s.repos.RefreshTokens(s.db).Find(ctx, token)
}

func (s *SQLStore) Delete(ctx context.Context, token string) error {
	return s.repos.RefreshTokens(s.db).Delete(ctx, token)
}

// Replace deletes and inserts in one transaction. A concurrent rotation of
// the same token blocks on the row lock and then deletes zero rows.
func (s *SQLStore) Replace(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.RefreshTokens(tx)
		if err := repo.Delete(ctx, oldToken); err != nil {
			return err
		}
		return repo.Create(ctx, next)
	})
}

func (s *SQLStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return s.repos.RefreshTokens(s.db).DeleteByUser(ctx, userID)
}

func (s *SQLStore) DeleteByUserTx(ctx context.Context, tx dbx.DBTX, userID string) (int64, error) {
	return s.repos.RefreshTokens(tx).DeleteByUser(ctx, userID)
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repos.RefreshTokens(s.db).DeleteExpired(ctx, now)
}
