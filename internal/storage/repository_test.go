package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kudo/internal/db"
	"kudo/internal/domain"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 45, 123456789, time.UTC)

func setupRepository(t *testing.T, opts ...Option) (*Repository, *db.Gateway) {
	t.Helper()
	gw, err := db.Open(db.DialectSQLite, filepath.Join(t.TempDir(), "kudo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	require.NoError(t, gw.EnsureMigrated(context.Background()))

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewRepository(gw, opts...), gw
}

func countRows(t *testing.T, gw *db.Gateway, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gw.Query(context.Background()).Model(model).Count(&n).Error)
	return n
}

func mustCreateUser(t *testing.T, r *Repository, login, password string) *domain.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, login, password))
	user, err := r.GetUserByLogin(ctx, login)
	require.NoError(t, err)
	return user
}

func mustCreateCategory(t *testing.T, r *Repository, login, name string, typ domain.TransactionType) domain.Category {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.CreateCategory(ctx, login, name, typ))
	categories, err := r.GetCategoriesByUser(ctx, login, typ)
	require.NoError(t, err)
	for _, c := range categories {
		if c.Name == name {
			return c
		}
	}
	require.FailNow(t, "category not listed", name)
	return domain.Category{}
}
