package db

import (
	"context" // Cancellation for every round trip
	"fmt"     // Error wrapping
	"sync"    // Lazily built metadata
	"time"    // Logger thresholds and clock

	"kudo/internal/errs" // Error taxonomy

	"github.com/sirupsen/logrus"     // Structured logging
	gormmysql "gorm.io/driver/mysql" // MySQL dialect
	"gorm.io/driver/postgres"        // PostgreSQL dialect (pgx)
	"gorm.io/driver/sqlite"          // SQLite dialect (mattn/go-sqlite3)
	"gorm.io/gorm"                   // ORM
	gormlogger "gorm.io/gorm/logger" // SQL logging bridge
)

// Supported drivers
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// Gateway owns the connection to the durable store, the schema lifecycle and the
// pending change set. A Gateway is not safe for concurrent use: serialize calls
// per instance or open one Gateway per unit of work.
type Gateway struct {
	db      *gorm.DB  // Session, or the open transaction for transaction-bound gateways
	dialect string    // One of the Dialect* constants
	meta    *metadata // Schema-derived metadata, shared with transaction-bound children
	pending []change  // Changes queued since the last SaveAll
	root    bool      // Only the root gateway closes the connection
}

// metadata is computed once per root Gateway and read-only afterwards
type metadata struct {
	once       sync.Once
	maxLengths maxLengthTable
	err        error
}

// Open connects to the store identified by dsn using the named driver
func Open(driver, dsn string) (*Gateway, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty connection string", errs.ErrStoreUnavailable)
	}
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}
	// Connect; gorm pings on open so an unreachable store fails here
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newLogger(logrus.StandardLogger()),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", errs.ErrStoreUnavailable, driver, err)
	}
	if driver == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
		}
		sqlDB.SetMaxOpenConns(1) // Single writer; keeps transactions on one connection
	}
	logrus.WithField("driver", driver).Debug("Database connection opened")
	return &Gateway{db: db, dialect: driver, meta: &metadata{}, root: true}, nil
}

// dialectorFor picks the gorm dialect for driver
func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DialectPostgres:
		return postgres.Open(dsn), nil
	case DialectMySQL:
		return gormmysql.Open(dsn), nil
	case DialectSQLite:
		return sqlite.New(sqlite.Config{DriverName: sqliteDriverName, DSN: dsn}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", errs.ErrStoreUnavailable, driver)
	}
}

// warnWriter emits gorm's log lines as logrus warnings; gorm only writes
// errors and slow statements at the configured level
type warnWriter struct {
	logger *logrus.Logger
}

func (w warnWriter) Printf(format string, args ...any) {
	w.logger.Warnf(format, args...)
}

// newLogger routes gorm's SQL log through logger
func newLogger(logger *logrus.Logger) gormlogger.Interface {
	return gormlogger.New(warnWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond, // Report slow statements
		LogLevel:                  gormlogger.Warn,        // Errors and slow queries only
		IgnoreRecordNotFoundError: true,                   // Absent rows are a normal outcome
	})
}

// Dialect returns the driver name the gateway was opened with
func (g *Gateway) Dialect() string {
	return g.dialect
}

// Query returns a context-bound session for reads
func (g *Gateway) Query(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// InTransaction runs fn inside one database transaction. fn receives a Gateway
// bound to the transaction; the transaction commits only when fn returns nil and
// rolls back on error or panic.
func (g *Gateway) InTransaction(ctx context.Context, fn func(tx *Gateway) error) error {
	if err := ctx.Err(); err != nil {
		return Classify(ctx, err)
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gateway{db: tx, dialect: g.dialect, meta: g.meta})
	})
	return Classify(ctx, err)
}

// Close releases the connection pool. Transaction-bound gateways do nothing.
func (g *Gateway) Close() error {
	if !g.root {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
