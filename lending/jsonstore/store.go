// Package jsonstore persists ledger state as JSON files, one file per
// collection, inside a single data directory. It is the zero-setup
// DurableStore implementation, suited for demos, tests, and single-process
// deployments where a database would be overkill.
//
// Writes are atomic per collection: each Persist marshals the full snapshot
// into a temporary file and renames it over the live file, so a crash
// mid-write never leaves a torn file behind.
package jsonstore

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/lending-ledger-go/lending"
)

const (
	catalogFile  = "books.json"
	ledgerFile   = "loans.json"
	profilesFile = "borrowers.json"

	defaultFilePerm = os.FileMode(0o644)
	dataDirPerm     = os.FileMode(0o755)

	logMsgFileRead    = "state file read"
	logMsgFileWritten = "state file written"
	logAttrFile       = "file"
	logAttrEntries    = "entries"
	logAttrBytes      = "bytes"
	logAttrDurationMS = "duration_ms"
)

// Failure classes returned by the Store. The Ledger wraps them into its
// persistence failure on whichever operation triggered the call.
var (
	ErrReadingStateFileFailed  = errors.New("reading state file failed")
	ErrDecodingStateFileFailed = errors.New("decoding state file failed")
	ErrEncodingStateFailed     = errors.New("encoding state failed")
	ErrWritingStateFileFailed  = errors.New("writing state file failed")
)

// Store is a file-backed lending.DurableStore. It holds no state besides its
// configuration; every call goes to the filesystem.
type Store struct {
	dir      string
	filePerm os.FileMode
	logger   lending.Logger
}

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store. Reads and writes are reported at
// debug level with file names, entry counts, and write timings; failures are
// returned to the caller, never logged.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithFilePerm sets the permission bits applied to the collection files.
func WithFilePerm(perm os.FileMode) Option {
	return func(s *Store) error {
		s.filePerm = perm
		return nil
	}
}

// New creates a Store rooted at dir, creating the directory when missing.
func New(dir string, options ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, lending.ErrEmptyDataDirectory
	}

	store := &Store{
		dir:      dir,
		filePerm: defaultFilePerm,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		return nil, errors.Join(ErrWritingStateFileFailed, err)
	}

	return store, nil
}

// LoadCatalog reads the catalog collection, empty when never persisted.
func (s *Store) LoadCatalog(ctx context.Context) ([]lending.Book, error) {
	var books []lending.Book
	if err := s.readCollection(ctx, catalogFile, &books); err != nil {
		return nil, err
	}

	s.logDebug(logMsgFileRead, logAttrFile, catalogFile, logAttrEntries, len(books))

	return books, nil
}

// PersistCatalog replaces the catalog collection with the given snapshot.
func (s *Store) PersistCatalog(ctx context.Context, books []lending.Book) error {
	if books == nil {
		books = []lending.Book{}
	}

	return s.writeCollection(ctx, catalogFile, books)
}

// LoadLedger reads the loan record collection, empty when never persisted.
func (s *Store) LoadLedger(ctx context.Context) ([]lending.LoanRecord, error) {
	var records []lending.LoanRecord
	if err := s.readCollection(ctx, ledgerFile, &records); err != nil {
		return nil, err
	}

	s.logDebug(logMsgFileRead, logAttrFile, ledgerFile, logAttrEntries, len(records))

	return records, nil
}

// PersistLedger replaces the loan record collection with the given snapshot.
func (s *Store) PersistLedger(ctx context.Context, records []lending.LoanRecord) error {
	if records == nil {
		records = []lending.LoanRecord{}
	}

	return s.writeCollection(ctx, ledgerFile, records)
}

// LoadProfiles reads the borrower collection, empty when never persisted.
func (s *Store) LoadProfiles(ctx context.Context) ([]lending.BorrowerProfile, error) {
	var profiles []lending.BorrowerProfile
	if err := s.readCollection(ctx, profilesFile, &profiles); err != nil {
		return nil, err
	}

	s.logDebug(logMsgFileRead, logAttrFile, profilesFile, logAttrEntries, len(profiles))

	return profiles, nil
}

// PersistProfiles replaces the borrower collection with the given snapshot.
func (s *Store) PersistProfiles(ctx context.Context, profiles []lending.BorrowerProfile) error {
	if profiles == nil {
		profiles = []lending.BorrowerProfile{}
	}

	return s.writeCollection(ctx, profilesFile, profiles)
}

// readCollection decodes one collection file into target. A missing or empty
// file is not an error, it reads as the empty collection.
func (s *Store) readCollection(ctx context.Context, name string, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return errors.Join(ErrReadingStateFileFailed, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, target); err != nil {
		return errors.Join(ErrDecodingStateFileFailed, err)
	}

	return nil
}

// writeCollection atomically replaces one collection file with the encoded
// snapshot.
func (s *Store) writeCollection(ctx context.Context, name string, collection any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(collection, "", "  ")
	if err != nil {
		return errors.Join(ErrEncodingStateFailed, err)
	}

	data = append(data, '\n')

	start := time.Now()

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Join(ErrWritingStateFileFailed, err)
	}

	if err := s.fillTempFile(tmp, data); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Join(ErrWritingStateFileFailed, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Join(ErrWritingStateFileFailed, err)
	}

	s.logDebug(logMsgFileWritten,
		logAttrFile, name,
		logAttrBytes, len(data),
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return nil
}

// fillTempFile writes data, flushes it to disk, and applies the configured
// permission bits. os.CreateTemp creates files as 0600, so the chmod must
// run before the rename makes the file live.
func (s *Store) fillTempFile(tmp *os.File, data []byte) error {
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Chmod(tmp.Name(), s.filePerm)
}

// logDebug logs at debug level if a logger is configured.
func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
