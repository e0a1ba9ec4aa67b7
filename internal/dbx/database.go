package dbx

import "context"

// Database is the minimal surface the transfer and credentials operations
// need from a relational database. The postgres implementation lives in
// internal/database.
type Database interface {
	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error

	// TableList returns the base tables in schema, ordered by name.
	// When includeViews is true, views are listed as well.
	TableList(ctx context.Context, schema string, includeViews bool) ([]string, error)

	// PrimaryKeyColumns returns the primary-key column names of a table in
	// ordinal order. An empty slice means the table has no primary key.
	PrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error)

	// ColumnNames returns the column names of a table in ordinal order.
	ColumnNames(ctx context.Context, schema, table string) ([]string, error)

	// ExportRows runs SELECT * over the table ordered by orderBy (or by the
	// first column when orderBy is empty), calling header once with the
	// column names and row once per data row. SQL NULL is mapped to the
	// empty string. Returns the number of data rows.
	ExportRows(ctx context.Context, schema, table string, orderBy []string,
		header func(columns []string) error, row func(record []string) error) (int, error)

	// ImportRows replaces the table contents in a single transaction: all
	// existing rows are deleted, then one INSERT per record returned by
	// next. next returns io.EOF when the input is exhausted. Empty record
	// fields are inserted as SQL NULL. Returns the number of rows inserted.
	ImportRows(ctx context.Context, schema, table string, columns []string,
		next func() ([]string, error)) (int, error)

	// Close releases the connection.
	Close() error
}

// Connector opens database connections from connection settings.
type Connector interface {
	Connect(ctx context.Context, s *Settings) (Database, error)
}
