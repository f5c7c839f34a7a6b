package db

import (
	"database/sql" // Driver registration
	"sync"         // Collator guard

	"github.com/mattn/go-sqlite3" // SQLite driver with connection hooks
	"golang.org/x/text/collate"   // Unicode collation
	"golang.org/x/text/language"  // Collation locale
)

const (
	sqliteDriverName = "sqlite3_kudo" // mattn driver with the collation hook installed
	PrimaryCollation = "KUDO_PRIMARY" // Case, diacritic and width insensitive comparison
)

// primaryCollator compares at primary strength. collate.Collator keeps internal
// buffers, so calls are serialized.
var primaryCollator = struct {
	sync.Mutex
	c *collate.Collator
}{c: collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)}

// ComparePrimary orders a and b the way the KUDO_PRIMARY collation does
func ComparePrimary(a, b string) int {
	primaryCollator.Lock()
	defer primaryCollator.Unlock()
	return primaryCollator.c.CompareString(a, b)
}

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterCollation(PrimaryCollation, ComparePrimary); err != nil {
				return err
			}
			_, err := conn.Exec("PRAGMA foreign_keys = ON", nil) // Enforce user references
			return err
		},
	})
}
