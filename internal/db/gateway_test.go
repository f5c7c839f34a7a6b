package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kudo/internal/domain"
	"kudo/internal/errs"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := Open(DialectSQLite, filepath.Join(t.TempDir(), "kudo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	require.NoError(t, gw.EnsureMigrated(context.Background()))
	return gw
}

func newUser(login string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Login:        login,
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func countRows(t *testing.T, gw *Gateway, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gw.Query(context.Background()).Model(model).Count(&n).Error)
	return n
}

func TestOpenRejectsBadInput(t *testing.T) {
	_, err := Open(DialectSQLite, "")
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)

	_, err = Open("oracle", "whatever")
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
}

func TestEnsureMigratedIsIdempotent(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	bundled, err := loadMigrations(DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(len(bundled)), countRows(t, gw, &SchemaMigration{}))

	require.NoError(t, gw.EnsureMigrated(ctx))
	assert.Equal(t, int64(len(bundled)), countRows(t, gw, &SchemaMigration{}))

	for _, model := range domain.Models() {
		assert.True(t, gw.Query(ctx).Migrator().HasTable(model))
	}
}

func TestEnsureMigratedToleratesChecksumDrift(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Query(ctx).Model(&SchemaMigration{}).Where("version = ?", 1).
		Update("checksum", "0000000000000000").Error)
	require.NoError(t, gw.EnsureMigrated(ctx))
	assert.Equal(t, int64(1), countRows(t, gw, &SchemaMigration{}))
}

func TestEnsureDeletedDropsSchema(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.EnsureDeleted(ctx))
	migrator := gw.Query(ctx).Migrator()
	for _, model := range domain.Models() {
		assert.False(t, migrator.HasTable(model))
	}
	assert.False(t, migrator.HasTable(&SchemaMigration{}))

	// A dropped store can be rebuilt
	require.NoError(t, gw.EnsureMigrated(ctx))
	assert.True(t, migrator.HasTable(&domain.User{}))
}

func TestSaveAllWritesChangeSet(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	user := newUser("alice")
	category := &domain.Category{UserID: user.ID, Name: "Fruits", TransactionType: domain.Expense}
	gw.Add(user)
	gw.Add(category)
	assert.Equal(t, 2, gw.Pending())

	affected, err := gw.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Zero(t, gw.Pending())
	assert.NotEqual(t, uuid.Nil, category.ID) // Assigned by the create hook

	category.Name = "Vegetables"
	gw.Update(category)
	_, err = gw.SaveAll(ctx)
	require.NoError(t, err)

	var stored domain.Category
	require.NoError(t, gw.Query(ctx).Where("id = ?", category.ID).Take(&stored).Error)
	assert.Equal(t, "Vegetables", stored.Name)

	gw.Remove(category)
	affected, err = gw.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Zero(t, countRows(t, gw, &domain.Category{}))
}

func TestSaveAllEmptyQueue(t *testing.T) {
	gw := setupGateway(t)
	affected, err := gw.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestSaveAllIsAtomic(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	gw.Add(newUser("alice"))
	gw.Add(newUser("ALICE")) // Same login under the primary collation
	_, err := gw.SaveAll(ctx)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Zero(t, gw.Pending())
	assert.Zero(t, countRows(t, gw, &domain.User{}))
}

func TestSaveAllCancelled(t *testing.T) {
	gw := setupGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw.Add(newUser("alice"))
	_, err := gw.SaveAll(ctx)
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.Zero(t, gw.Pending())
	assert.Zero(t, countRows(t, gw, &domain.User{}))
}

func TestSaveAllEnforcesUserReference(t *testing.T) {
	gw := setupGateway(t)
	gw.Add(&domain.Category{UserID: uuid.New(), Name: "Orphan", TransactionType: domain.Expense})
	_, err := gw.SaveAll(context.Background())
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
}

func TestSaveAllTruncatesLongStrings(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	user := newUser("alice")
	long := strings.Repeat("a", 30) + strings.Repeat("б", 10) // 40 characters
	short := strings.Repeat("x", 10)
	first := &domain.Category{UserID: user.ID, Name: long, TransactionType: domain.Expense}
	second := &domain.Category{UserID: user.ID, Name: short, TransactionType: domain.Income}
	gw.Add(user)
	gw.Add(first)
	gw.Add(second)
	_, err := gw.SaveAll(ctx)
	require.NoError(t, err)

	var stored domain.Category
	require.NoError(t, gw.Query(ctx).Where("id = ?", first.ID).Take(&stored).Error)
	assert.Equal(t, string([]rune(long)[:32]), stored.Name)
	assert.Equal(t, 32, len([]rune(stored.Name)))

	var unchanged domain.Category // Fresh destination: gorm adds a loaded primary key to the lookup
	require.NoError(t, gw.Query(ctx).Where("id = ?", second.ID).Take(&unchanged).Error)
	assert.Equal(t, short, unchanged.Name)
}

func TestTruncate(t *testing.T) {
	gw := setupGateway(t)

	user := newUser(strings.Repeat("z", 40))
	require.NoError(t, gw.Truncate(user))
	assert.Equal(t, strings.Repeat("z", 32), user.Login)

	// Types without limits are left alone
	value := "untouched"
	require.NoError(t, gw.Truncate(&value))
	assert.Equal(t, "untouched", value)

	assert.Equal(t, "", truncate("", 4))
	assert.Equal(t, "абв", truncate("абвгд", 3))
	assert.Equal(t, "ab", truncate("ab", 3))
}

func TestInTransaction(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := gw.InTransaction(ctx, func(tx *Gateway) error {
		tx.Add(newUser("alice"))
		if _, err := tx.SaveAll(ctx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	assert.Zero(t, countRows(t, gw, &domain.User{}))

	err = gw.InTransaction(ctx, func(tx *Gateway) error {
		assert.NoError(t, tx.Close()) // Transaction-bound gateways do not own the pool
		tx.Add(newUser("bob"))
		_, err := tx.SaveAll(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, gw, &domain.User{}))
}

func TestInTransactionCancelled(t *testing.T) {
	gw := setupGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := gw.InTransaction(ctx, func(*Gateway) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.False(t, called)
}

func TestLoginLookupUsesPrimaryCollation(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	gw.Add(newUser("Alice"))
	_, err := gw.SaveAll(ctx)
	require.NoError(t, err)

	for _, login := range []string{"alice", "ALICE", "Alice"} {
		var users []domain.User
		require.NoError(t, gw.Query(ctx).Where("login = ?", login).Find(&users).Error)
		assert.Len(t, users, 1, login)
	}
}

func TestAmountsKeepPrecision(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	user := newUser("alice")
	amount := decimal.RequireFromString("-12345678901234567890.123456789")
	tr := &domain.FinancialTransaction{
		UserID:          user.ID,
		CategoryID:      uuid.New(), // No foreign key on categories
		TransactionType: domain.Expense,
		Amount:          amount,
		CreatedAt:       time.Now().UTC(),
	}
	gw.Add(user)
	gw.Add(tr)
	_, err := gw.SaveAll(ctx)
	require.NoError(t, err)

	var stored domain.FinancialTransaction
	require.NoError(t, gw.Query(ctx).Where("id = ?", tr.ID).Take(&stored).Error)
	assert.True(t, amount.Equal(stored.Amount), stored.Amount.String())
}

func TestSQLErrorsLogAsWarnings(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.WarnLevel)
	sqlLog := newLogger(logger)
	statement := func() (string, int64) { return `INSERT INTO "Categories" ...`, 0 }

	sqlLog.Trace(context.Background(), time.Now(), statement, errors.New("FOREIGN KEY constraint failed"))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "FOREIGN KEY constraint failed")

	hook.Reset()
	sqlLog.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	sqlLog.Trace(context.Background(), time.Now(), statement, nil)
	assert.Empty(t, hook.AllEntries())
}

func TestComparePrimary(t *testing.T) {
	assert.Zero(t, ComparePrimary("Alice", "alice"))
	assert.Zero(t, ComparePrimary("café", "CAFE"))
	assert.Negative(t, ComparePrimary("apple", "Banana"))
	assert.Positive(t, ComparePrimary("b", "A"))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want error
	}{
		{"context canceled", ctx, context.Canceled, errs.ErrCancelled},
		{"deadline", ctx, context.DeadlineExceeded, errs.ErrCancelled},
		{"cancelled context", cancelled, errors.New("interrupted"), errs.ErrCancelled},
		{"postgres unique", ctx, &pgconn.PgError{Code: "23505"}, errs.ErrConflict},
		{"postgres other", ctx, &pgconn.PgError{Code: "23503"}, errs.ErrStoreUnavailable},
		{"mysql duplicate", ctx, &mysqldriver.MySQLError{Number: 1062}, errs.ErrConflict},
		{"sqlite unique", ctx, sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, errs.ErrConflict},
		{"sqlite primary key", ctx, sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, errs.ErrConflict},
		{"gorm duplicate", ctx, gorm.ErrDuplicatedKey, errs.ErrConflict},
		{"record not found", ctx, gorm.ErrRecordNotFound, errs.ErrNotFound},
		{"other", ctx, errors.New("connection reset"), errs.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ctx, tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, Classify(ctx, nil))
	kinded := errors.Join(errs.ErrValidation, errors.New("bad"))
	assert.Equal(t, kinded, Classify(ctx, kinded))
}

func TestLoadMigrations(t *testing.T) {
	for _, dialect := range []string{DialectSQLite, DialectPostgres, DialectMySQL} {
		t.Run(dialect, func(t *testing.T) {
			migrations, err := loadMigrations(dialect)
			require.NoError(t, err)
			require.NotEmpty(t, migrations)
			assert.Equal(t, 1, migrations[0].version)
			assert.Equal(t, "init", migrations[0].name)
			assert.Len(t, migrations[0].checksum, 16)
			for _, m := range migrations {
				for _, stmt := range m.statements {
					assert.NotEmpty(t, strings.TrimSpace(stmt))
					assert.False(t, strings.HasSuffix(stmt, ";"))
				}
			}
		})
	}

	_, err := loadMigrations("oracle")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (
    id INT -- trailing comments stay
);

-- between
CREATE INDEX i ON a (id);
SELECT 1`
	got := splitStatements(script)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE a (\n    id INT -- trailing comments stay\n)", got[0])
	assert.Equal(t, "CREATE INDEX i ON a (id)", got[1])
	assert.Equal(t, "SELECT 1", got[2])
}
