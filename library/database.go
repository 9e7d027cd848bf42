package library

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Slot names for the persisted collections. Each slot holds one
// JSON-serialized array of records, overwritten whole on every mutation.
const (
	slotBooks   = "lib_books"
	slotMembers = "lib_members"
	slotLoans   = "lib_loans"
	slotReports = "lib_reports_history"
)

// Counter names for ID assignment.
const (
	counterBooks   = "books"
	counterMembers = "members"
	counterLoans   = "loans"
)

// MaxReportHistory caps the report-history slot; the oldest entries beyond
// it are evicted so the mirrored spreadsheet stays small.
const MaxReportHistory = 50

// Store persists the three record collections plus the report history in a
// SQLite database, one slot per collection.
type Store struct {
	db *sql.DB

	getStmt *sql.Stmt
	putStmt *sql.Stmt
}

// NewStore opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	if s.putStmt != nil {
		s.putStmt.Close()
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collections (
            name TEXT PRIMARY KEY,
            data TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS counters (
            name TEXT PRIMARY KEY,
            value INTEGER NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *Store) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(`SELECT data FROM collections WHERE name=?`); err != nil {
		return err
	}
	if s.putStmt, err = s.db.Prepare(`INSERT INTO collections(name,data) VALUES(?,?)
        ON CONFLICT(name) DO UPDATE SET data=excluded.data`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// readSlot unmarshals the named slot into v. It reports whether the slot
// existed.
func (s *Store) readSlot(name string, v any) (bool, error) {
	var data string
	err := s.getStmt.QueryRow(name).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("decode slot %s: %w", name, err)
	}
	return true, nil
}

// writeSlot overwrites the named slot with the JSON serialization of v.
func (s *Store) writeSlot(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", name, err)
	}
	if _, err := s.putStmt.Exec(name, string(data)); err != nil {
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// Books returns the persisted catalog, or the seed catalog when the slot
// has never been written.
func (s *Store) Books() ([]Book, error) {
	var books []Book
	ok, err := s.readSlot(slotBooks, &books)
	if err != nil {
		return nil, err
	}
	if !ok {
		return SeedBooks(), nil
	}
	return books, nil
}

// SaveBooks overwrites the catalog slot.
func (s *Store) SaveBooks(books []Book) error { return s.writeSlot(slotBooks, books) }

// Members returns the persisted roster, or the seed roster when empty.
func (s *Store) Members() ([]Member, error) {
	var members []Member
	ok, err := s.readSlot(slotMembers, &members)
	if err != nil {
		return nil, err
	}
	if !ok {
		return SeedMembers(), nil
	}
	return members, nil
}

// SaveMembers overwrites the roster slot.
func (s *Store) SaveMembers(members []Member) error { return s.writeSlot(slotMembers, members) }

// Loans returns the persisted loans, or the seed loans when empty.
func (s *Store) Loans() ([]Loan, error) {
	var loans []Loan
	ok, err := s.readSlot(slotLoans, &loans)
	if err != nil {
		return nil, err
	}
	if !ok {
		return SeedLoans(), nil
	}
	return loans, nil
}

// SaveLoans overwrites the loans slot.
func (s *Store) SaveLoans(loans []Loan) error { return s.writeSlot(slotLoans, loans) }

// Reports returns the persisted report history, newest first.
func (s *Store) Reports() ([]Report, error) {
	var reports []Report
	if _, err := s.readSlot(slotReports, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// AppendReport prepends r to the history, evicts entries beyond
// MaxReportHistory, persists the slot, and returns the updated history.
func (s *Store) AppendReport(r Report) ([]Report, error) {
	reports, err := s.Reports()
	if err != nil {
		return nil, err
	}
	updated := append([]Report{r}, reports...)
	if len(updated) > MaxReportHistory {
		updated = updated[:MaxReportHistory]
	}
	if err := s.writeSlot(slotReports, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ---------------------------------------------------------------------------
// ID counters
// ---------------------------------------------------------------------------

// NextID increments and returns the named monotonic counter.
func (s *Store) NextID(name string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var value int64
	err = tx.QueryRow(`SELECT value FROM counters WHERE name=?`, name).Scan(&value)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	value++

	if _, err := tx.Exec(`INSERT INTO counters(name,value) VALUES(?,?)
        ON CONFLICT(name) DO UPDATE SET value=excluded.value`, name, value); err != nil {
		return 0, err
	}
	return value, tx.Commit()
}

// EnsureCounter raises the named counter to at least min. Used after a seed
// import or a remote pull so freshly minted IDs cannot collide with records
// that arrived from elsewhere.
func (s *Store) EnsureCounter(name string, min int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var value int64
	err = tx.QueryRow(`SELECT value FROM counters WHERE name=?`, name).Scan(&value)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if value >= min {
		return tx.Commit()
	}

	if _, err := tx.Exec(`INSERT INTO counters(name,value) VALUES(?,?)
        ON CONFLICT(name) DO UPDATE SET value=excluded.value`, name, min); err != nil {
		return err
	}
	return tx.Commit()
}
