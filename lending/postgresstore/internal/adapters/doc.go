// Package adapters provides database adapter implementations for the
// PostgreSQL state store.
//
// It implements the adapter pattern to support multiple PostgreSQL client
// libraries: pgxpool.Pool, sql.DB, and sqlx.DB. All adapters provide
// equivalent functionality through a common DBAdapter interface, so the
// state store works the same with any supported connection type.
package adapters
