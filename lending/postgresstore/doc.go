// Package postgresstore provides a PostgreSQL implementation of the
// lending.DurableStore interface.
//
// Each collection is stored as one JSONB document row in a single state
// table, keyed by collection name. Persist upserts the full snapshot
// atomically, so readers never observe a half-written snapshot.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Atomic snapshot replacement via INSERT ... ON CONFLICT
//   - Configurable table name, logging, and metrics collection
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresstore.NewFromPGXPool(db)
//	_ = store.CreateSchema(context.Background())
//
//	// With a custom table and operational logging
//	store, _ := postgresstore.NewFromPGXPool(
//		db,
//		postgresstore.WithTableName("library_state"),
//		postgresstore.WithLogger(logger),
//	)
//
//	ledger, _ := lending.NewLedger(ctx, store)
package postgresstore
