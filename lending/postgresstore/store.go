package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/lending-ledger-go/lending"
	"github.com/openshelf/lending-ledger-go/lending/postgresstore/internal/adapters"
)

const (
	defaultTableName = "lending_state"

	collectionCatalog  = "catalog"
	collectionLedger   = "ledger"
	collectionProfiles = "profiles"

	colCollection = "collection"
	colDoc        = "doc"
	colUpdatedAt  = "updated_at"

	dialectPostgres = "postgres"
	castJsonb       = "?::jsonb"
	castTimestamptz = "?::timestamp with time zone"

	logMsgSQLExecuted        = "executed sql for: "
	logMsgOperation          = "statestore operation: "
	logMsgSnapshotRead       = "snapshot read"
	logMsgSnapshotWritten    = "snapshot written"
	logMsgBuildQueryFailed   = "failed to build query"
	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database execution failed during snapshot write"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgRowsAffectedFailed = "failed to get rows affected count"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrCollection   = "collection"
	logAttrEntries      = "entries"
	logAttrRowsAffected = "rows_affected"
	logAttrDurationMS   = "duration_ms"

	metricStoreDuration = "lending_store_duration"
	metricStoreErrors   = "lending_store_errors"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	operationLoadCatalog     = "load_catalog"
	operationPersistCatalog  = "persist_catalog"
	operationLoadLedger      = "load_ledger"
	operationPersistLedger   = "persist_ledger"
	operationLoadProfiles    = "load_profiles"
	operationPersistProfiles = "persist_profiles"
	operationCreateSchema    = "create_schema"

	errorTypeBuildQuery = "build_query"
	errorTypeQuery      = "query"
	errorTypeExec       = "exec"
	errorTypeScan       = "scan"
	errorTypeEncode     = "encode"
	errorTypeDecode     = "decode"
)

// Failure classes returned by the Store. The Ledger wraps them into its
// persistence failure on whichever operation triggered the call.
var (
	ErrBuildingQueryFailed   = errors.New("building sql query failed")
	ErrQueryingStateFailed   = errors.New("querying state snapshot failed")
	ErrScanningRowFailed     = errors.New("scanning state row failed")
	ErrPersistingStateFailed = errors.New("persisting state snapshot failed")
	ErrCreatingSchemaFailed  = errors.New("creating state schema failed")
	ErrEncodingStateFailed   = errors.New("encoding state snapshot failed")
	ErrDecodingStateFailed   = errors.New("decoding state snapshot failed")
)

// Store is a PostgreSQL-backed lending.DurableStore. It leverages a database
// adapter and supports customizable logging, metrics, and table
// configuration.
type Store struct {
	db        adapters.DBAdapter
	tableName string
	logger    lending.Logger
	metrics   lending.MetricsCollector
}

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithTableName sets the state table name for the Store.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return lending.ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's
// configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: snapshot sizes and durations (production-safe)
// Error level: failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store. The collector will
// receive snapshot read/write durations and typed database error counters.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(s *Store) error {
		s.metrics = collector
		return nil
	}
}

// NewFromPGXPool creates a new Store using a pgx pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	store := Store{
		db:        adapters.NewPGXAdapter(db),
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return Store{}, err
		}
	}

	return store, nil
}

// NewFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	store := Store{
		db:        adapters.NewSQLAdapter(db),
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return Store{}, err
		}
	}

	return store, nil
}

// NewFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	store := Store{
		db:        adapters.NewSQLXAdapter(db),
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return Store{}, err
		}
	}

	return store, nil
}

// CreateSchema creates the state table when it does not exist. It is
// idempotent, call it on every startup.
func (s Store) CreateSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	collection TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
)`, s.tableName)

	start := time.Now()
	_, execErr := s.db.Exec(ctx, ddl)
	duration := time.Since(start)
	s.logQueryWithDuration(ddl, operationCreateSchema, duration)

	if execErr != nil {
		s.logError(logMsgDBExecFailed, execErr)
		s.recordErrorMetrics(operationCreateSchema, errorTypeExec)

		return errors.Join(ErrCreatingSchemaFailed, execErr)
	}

	return nil
}

// LoadCatalog reads the catalog snapshot, empty when never persisted.
func (s Store) LoadCatalog(ctx context.Context) ([]lending.Book, error) {
	var books []lending.Book
	if err := s.loadCollection(ctx, collectionCatalog, operationLoadCatalog, &books); err != nil {
		return nil, err
	}

	return books, nil
}

// PersistCatalog upserts the catalog snapshot.
func (s Store) PersistCatalog(ctx context.Context, books []lending.Book) error {
	if books == nil {
		books = []lending.Book{}
	}

	return s.persistCollection(ctx, collectionCatalog, operationPersistCatalog, len(books), books)
}

// LoadLedger reads the loan record snapshot, empty when never persisted.
func (s Store) LoadLedger(ctx context.Context) ([]lending.LoanRecord, error) {
	var records []lending.LoanRecord
	if err := s.loadCollection(ctx, collectionLedger, operationLoadLedger, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// PersistLedger upserts the loan record snapshot.
func (s Store) PersistLedger(ctx context.Context, records []lending.LoanRecord) error {
	if records == nil {
		records = []lending.LoanRecord{}
	}

	return s.persistCollection(ctx, collectionLedger, operationPersistLedger, len(records), records)
}

// LoadProfiles reads the borrower snapshot, empty when never persisted.
func (s Store) LoadProfiles(ctx context.Context) ([]lending.BorrowerProfile, error) {
	var profiles []lending.BorrowerProfile
	if err := s.loadCollection(ctx, collectionProfiles, operationLoadProfiles, &profiles); err != nil {
		return nil, err
	}

	return profiles, nil
}

// PersistProfiles upserts the borrower snapshot.
func (s Store) PersistProfiles(ctx context.Context, profiles []lending.BorrowerProfile) error {
	if profiles == nil {
		profiles = []lending.BorrowerProfile{}
	}

	return s.persistCollection(ctx, collectionProfiles, operationPersistProfiles, len(profiles), profiles)
}

// loadCollection reads one collection document and decodes it into target.
// A missing row reads as the empty collection.
func (s Store) loadCollection(ctx context.Context, collection, operation string, target any) error {
	sqlQuery, buildErr := s.buildSelectQuery(collection)
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, logAttrCollection, collection)
		s.recordErrorMetrics(operation, errorTypeBuildQuery)

		return buildErr
	}

	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, operation, duration)

	if queryErr != nil {
		s.logError(logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		s.recordErrorMetrics(operation, errorTypeQuery)

		return errors.Join(ErrQueryingStateFailed, queryErr)
	}
	defer s.closeRows(rows)

	var doc []byte

	for rows.Next() {
		if scanErr := rows.Scan(&doc); scanErr != nil {
			s.logError(logMsgScanRowFailed, scanErr, logAttrCollection, collection)
			s.recordErrorMetrics(operation, errorTypeScan)

			return errors.Join(ErrScanningRowFailed, scanErr)
		}
	}

	if len(doc) > 0 {
		if decodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(doc, target); decodeErr != nil {
			s.recordErrorMetrics(operation, errorTypeDecode)

			return errors.Join(ErrDecodingStateFailed, decodeErr)
		}
	}

	s.logOperation(logMsgSnapshotRead,
		logAttrCollection, collection,
		logAttrDurationMS, toMilliseconds(duration))
	s.recordDurationMetrics(operation, statusSuccess, duration)

	return nil
}

// persistCollection encodes the snapshot and upserts its collection row.
func (s Store) persistCollection(ctx context.Context, collection, operation string, entries int, snapshot any) error {
	doc, encodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(snapshot)
	if encodeErr != nil {
		s.recordErrorMetrics(operation, errorTypeEncode)

		return errors.Join(ErrEncodingStateFailed, encodeErr)
	}

	sqlQuery, buildErr := s.buildUpsertQuery(collection, string(doc))
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, logAttrCollection, collection)
		s.recordErrorMetrics(operation, errorTypeBuildQuery)

		return buildErr
	}

	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, operation, duration)

	if execErr != nil {
		s.logError(logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		s.recordErrorMetrics(operation, errorTypeExec)

		return errors.Join(ErrPersistingStateFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(logMsgRowsAffectedFailed, rowsAffectedErr)
		s.recordErrorMetrics(operation, errorTypeExec)

		return errors.Join(ErrPersistingStateFailed, rowsAffectedErr)
	}

	s.logOperation(logMsgSnapshotWritten,
		logAttrCollection, collection,
		logAttrEntries, entries,
		logAttrRowsAffected, rowsAffected,
		logAttrDurationMS, toMilliseconds(duration))
	s.recordDurationMetrics(operation, statusSuccess, duration)

	return nil
}

func (s Store) buildSelectQuery(collection string) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colDoc).
		Where(goqu.C(colCollection).Eq(collection))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s Store) buildUpsertQuery(collection, doc string) (string, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Cols(colCollection, colDoc, colUpdatedAt).
		Vals(goqu.Vals{
			collection,
			goqu.L(castJsonb, doc),
			goqu.L(castTimestamptz, time.Now().UTC()),
		}).
		OnConflict(goqu.DoUpdate(colCollection, goqu.Record{
			colDoc:       goqu.L("excluded." + colDoc),
			colUpdatedAt: goqu.L("excluded." + colUpdatedAt),
		}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// closeRows closes rows and logs a failure, there is nothing else to do
// with it at that point.
func (s Store) closeRows(rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		s.logError(logMsgCloseRowsFailed, err)
	}
}

// logQueryWithDuration logs SQL statements with execution time at debug
// level if the logger is configured.
func (s Store) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is
// configured.
func (s Store) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if the logger is
// configured.
func (s Store) logError(message string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(message, allArgs...)
	}
}

// recordDurationMetrics records operation durations if the metrics
// collector is configured.
func (s Store) recordDurationMetrics(operation, status string, duration time.Duration) {
	if s.metrics != nil {
		labels := map[string]string{
			labelOperation: operation,
			labelStatus:    status,
		}
		s.metrics.RecordDuration(metricStoreDuration, duration, labels)
	}
}

// recordErrorMetrics records typed error counters if the metrics collector
// is configured.
func (s Store) recordErrorMetrics(operation, errorType string) {
	if s.metrics != nil {
		labels := map[string]string{
			labelOperation: operation,
			labelStatus:    statusError,
			labelErrorType: errorType,
		}
		s.metrics.IncrementCounter(metricStoreErrors, labels)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
