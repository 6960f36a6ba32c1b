// Package recording stores decoded packets and counter snapshots of capture
// sessions in SQLite databases.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned when an entry has a field that cannot be
// stored in a column.
var ErrInvalidEntry = errors.New("entry is invalid")

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// Filename returns the database file of a recording. An empty name gives a
// unique one.
func Filename(name string) string {
	if name == "" {
		name = "usbsniff_" + xid.New().String()
	}

	if strings.HasSuffix(name, ".sqlite3") {
		return name
	}

	return name + ".sqlite3"
}

// New creates a recorder that writes a new database file. It refuses to
// overwrite an existing file. Buffered entries are flushed when the program
// exits through atexit.
func New(name string) (DataRecorder, error) {
	filename := Filename(name)

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	w := NewWithDB(db)
	w.(*sqliteWriter).filename = filename

	return w, nil
}

// NewWithDB creates a recorder that writes into an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	columns    []string
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	filename   string
	tables     map[string]*table
	order      []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() || !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s of %s", ErrInvalidEntry,
				field.Name, t.Name())
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	n := structs.Names(sampleEntry)
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(n, ", \n\t") + "\n" + `);`

	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		columns:    n,
	}
	w.order = append(w.order, tableName)

	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	t, exists := w.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return fmt.Errorf("%w: %T does not match table %s",
			ErrInvalidEntry, entry, tableName)
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		return w.Flush()
	}

	return nil
}

func (w *sqliteWriter) ListTables() []string {
	return append([]string(nil), w.order...)
}

func (w *sqliteWriter) Flush() error {
	if w.entryCount == 0 || w.closed {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return err
	}

	for _, name := range w.order {
		if err := w.flushTable(tx, name, w.tables[name]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	w.entryCount = 0

	return nil
}

func (w *sqliteWriter) flushTable(tx *sql.Tx, name string, t *table) error {
	if len(t.entries) == 0 {
		return nil
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")

	stmt, err := tx.Prepare("INSERT INTO " + name + " VALUES (" + marks + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", name, err)
		}
	}

	t.entries = nil

	return nil
}

func (w *sqliteWriter) Close() error {
	if w.closed {
		return nil
	}

	if err := w.Flush(); err != nil {
		return err
	}

	w.closed = true

	return w.DB.Close()
}
