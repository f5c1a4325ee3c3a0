// Package sqlitestore persists ledger state in a single SQLite database
// file. Collections map to one table each; every Persist replaces the
// table's rows with the given snapshot inside one transaction, so readers
// never observe a half-written snapshot.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3" // driver import

	"github.com/openshelf/lending-ledger-go/lending"
)

//go:embed schema.sql
var schemaSQL string

const (
	tableBooks     = "books"
	tableLoans     = "loans"
	tableBorrowers = "borrowers"

	logMsgRowsRead        = "state rows read"
	logMsgRowsWritten     = "state rows written"
	logMsgCloseRowsFailed = "failed to close database rows"
	logAttrError          = "error"
	logAttrTable          = "table"
	logAttrEntries        = "entries"
	logAttrDurationMS     = "duration_ms"

	insertBookSQL = `INSERT INTO books
		(id, title, author, tags, publisher, isbn, pages, language, cover_url, description,
		 available, times_issued, rating, reviews, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectBooksSQL = `SELECT id, title, author, tags, publisher, isbn, pages, language, cover_url, description,
		 available, times_issued, rating, reviews, created_at
		FROM books ORDER BY rowid`

	insertLoanSQL = `INSERT INTO loans
		(id, book_id, borrower_id, issued_at, due_at, returned_at, returned)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectLoansSQL = `SELECT id, book_id, borrower_id, issued_at, due_at, returned_at, returned
		FROM loans ORDER BY rowid`

	insertBorrowerSQL = `INSERT INTO borrowers
		(id, name, email, favorites, joined_at)
		VALUES (?, ?, ?, ?, ?)`
	selectBorrowersSQL = `SELECT id, name, email, favorites, joined_at
		FROM borrowers ORDER BY rowid`
)

// Failure classes returned by the Store. The Ledger wraps them into its
// persistence failure on whichever operation triggered the call.
var (
	ErrOpeningDatabaseFailed = errors.New("opening sqlite database failed")
	ErrApplyingSchemaFailed  = errors.New("applying sqlite schema failed")
	ErrQueryingStateFailed   = errors.New("querying state rows failed")
	ErrScanningRowFailed     = errors.New("scanning state row failed")
	ErrPersistingStateFailed = errors.New("replacing state rows failed")
	ErrEncodingColumnFailed  = errors.New("encoding json column failed")
	ErrDecodingColumnFailed  = errors.New("decoding json column failed")
)

// Store is a SQLite-backed lending.DurableStore.
type Store struct {
	db     *sql.DB
	logger lending.Logger
}

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store. Row counts and write timings
// are reported at debug level.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// Open creates or opens the SQLite database at path and applies the schema.
// The parent directory is created when missing, so first runs succeed. The
// connection pool is capped at a single connection; SQLite allows one writer
// at a time and a second connection would only trade errors for busy waits.
func Open(path string, options ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, lending.ErrEmptyDatabasePath
	}

	store := &Store{}
	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Join(ErrOpeningDatabaseFailed, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL keeps readers unblocked while a snapshot is being replaced.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrApplyingSchemaFailed, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrApplyingSchemaFailed, err)
	}

	store.db = db

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCatalog reads all catalog rows, empty when never persisted.
func (s *Store) LoadCatalog(ctx context.Context) ([]lending.Book, error) {
	rows, err := s.db.QueryContext(ctx, selectBooksSQL)
	if err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}
	defer s.closeRows(rows)

	var books []lending.Book

	for rows.Next() {
		var (
			book    lending.Book
			tags    string
			reviews string
		)

		err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &tags, &book.Publisher, &book.ISBN,
			&book.Pages, &book.Language, &book.CoverURL, &book.Description,
			&book.Available, &book.TimesIssued, &book.Rating, &reviews, &book.CreatedAt)
		if err != nil {
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if err := decodeColumn(tags, &book.Tags); err != nil {
			return nil, err
		}

		if err := decodeColumn(reviews, &book.Reviews); err != nil {
			return nil, err
		}

		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}

	s.logDebug(logMsgRowsRead, logAttrTable, tableBooks, logAttrEntries, len(books))

	return books, nil
}

// PersistCatalog replaces the catalog table with the given snapshot.
func (s *Store) PersistCatalog(ctx context.Context, books []lending.Book) error {
	return s.replaceTable(ctx, tableBooks, len(books), func(tx *sql.Tx) error {
		for _, book := range books {
			tags, err := encodeColumn(book.Tags)
			if err != nil {
				return err
			}

			reviews, err := encodeColumn(book.Reviews)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, insertBookSQL,
				book.ID, book.Title, book.Author, tags, book.Publisher, book.ISBN,
				book.Pages, book.Language, book.CoverURL, book.Description,
				book.Available, book.TimesIssued, book.Rating, reviews, book.CreatedAt)
			if err != nil {
				return errors.Join(ErrPersistingStateFailed, err)
			}
		}

		return nil
	})
}

// LoadLedger reads all loan rows in append order, empty when never persisted.
func (s *Store) LoadLedger(ctx context.Context) ([]lending.LoanRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectLoansSQL)
	if err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}
	defer s.closeRows(rows)

	var records []lending.LoanRecord

	for rows.Next() {
		var (
			record     lending.LoanRecord
			returnedAt sql.NullTime
		)

		err := rows.Scan(
			&record.ID, &record.BookID, &record.BorrowerID,
			&record.IssuedAt, &record.DueAt, &returnedAt, &record.Returned)
		if err != nil {
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if returnedAt.Valid {
			at := returnedAt.Time
			record.ReturnedAt = &at
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}

	s.logDebug(logMsgRowsRead, logAttrTable, tableLoans, logAttrEntries, len(records))

	return records, nil
}

// PersistLedger replaces the loans table with the given snapshot.
func (s *Store) PersistLedger(ctx context.Context, records []lending.LoanRecord) error {
	return s.replaceTable(ctx, tableLoans, len(records), func(tx *sql.Tx) error {
		for _, record := range records {
			var returnedAt sql.NullTime
			if record.ReturnedAt != nil {
				returnedAt = sql.NullTime{Time: *record.ReturnedAt, Valid: true}
			}

			_, err := tx.ExecContext(ctx, insertLoanSQL,
				record.ID, record.BookID, record.BorrowerID,
				record.IssuedAt, record.DueAt, returnedAt, record.Returned)
			if err != nil {
				return errors.Join(ErrPersistingStateFailed, err)
			}
		}

		return nil
	})
}

// LoadProfiles reads all borrower rows, empty when never persisted.
func (s *Store) LoadProfiles(ctx context.Context) ([]lending.BorrowerProfile, error) {
	rows, err := s.db.QueryContext(ctx, selectBorrowersSQL)
	if err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}
	defer s.closeRows(rows)

	var profiles []lending.BorrowerProfile

	for rows.Next() {
		var (
			profile   lending.BorrowerProfile
			favorites string
		)

		err := rows.Scan(&profile.ID, &profile.Name, &profile.Email, &favorites, &profile.JoinedAt)
		if err != nil {
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if err := decodeColumn(favorites, &profile.Favorites); err != nil {
			return nil, err
		}

		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryingStateFailed, err)
	}

	s.logDebug(logMsgRowsRead, logAttrTable, tableBorrowers, logAttrEntries, len(profiles))

	return profiles, nil
}

// PersistProfiles replaces the borrowers table with the given snapshot.
func (s *Store) PersistProfiles(ctx context.Context, profiles []lending.BorrowerProfile) error {
	return s.replaceTable(ctx, tableBorrowers, len(profiles), func(tx *sql.Tx) error {
		for _, profile := range profiles {
			favorites, err := encodeColumn(profile.Favorites)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, insertBorrowerSQL,
				profile.ID, profile.Name, profile.Email, favorites, profile.JoinedAt)
			if err != nil {
				return errors.Join(ErrPersistingStateFailed, err)
			}
		}

		return nil
	})
}

// replaceTable runs one snapshot replacement transaction: delete all rows,
// then let insert refill the table.
func (s *Store) replaceTable(ctx context.Context, table string, entries int, insert func(tx *sql.Tx) error) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(ErrPersistingStateFailed, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Rollback()
		return errors.Join(ErrPersistingStateFailed, err)
	}

	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(ErrPersistingStateFailed, err)
	}

	s.logDebug(logMsgRowsWritten,
		logAttrTable, table,
		logAttrEntries, entries,
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return nil
}

// encodeColumn serializes a slice-valued field into its JSON text column.
func encodeColumn(value any) (string, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(value)
	if err != nil {
		return "", errors.Join(ErrEncodingColumnFailed, err)
	}

	return string(data), nil
}

// decodeColumn restores a slice-valued field from its JSON text column. An
// empty column reads as the zero value, matching rows written before the
// column existed.
func decodeColumn(data string, target any) error {
	if data == "" {
		return nil
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(data), target); err != nil {
		return errors.Join(ErrDecodingColumnFailed, err)
	}

	return nil
}

// closeRows closes rows and logs a failure, there is nothing else to do
// with it at that point.
func (s *Store) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logError(logMsgCloseRowsFailed, err)
	}
}

// logDebug logs at debug level if a logger is configured.
func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(message string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
