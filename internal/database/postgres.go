package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dbx-go/internal/dbx"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// PostgresDatabase implements the dbx.Database interface over database/sql
// with the pgx stdlib driver.
type PostgresDatabase struct {
	db *sql.DB
}

// Open creates a connection pool for the given settings. The connection is
// established lazily; call Ping to verify it.
func Open(s *dbx.Settings) (*PostgresDatabase, error) {
	db, err := sql.Open("pgx", DSN(s))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &PostgresDatabase{db: db}, nil
}

// Connector implements dbx.Connector for PostgreSQL.
type Connector struct{}

func (Connector) Connect(ctx context.Context, s *dbx.Settings) (dbx.Database, error) {
	return Open(s)
}

// DSN builds a keyword/value connection string from settings. Values are
// quoted so passwords containing spaces or quotes survive.
func DSN(s *dbx.Settings) string {
	pairs := []struct{ key, value string }{
		{"host", s.Hostname},
		{"port", s.Port},
		{"dbname", s.Database},
		{"user", s.User},
		{"password", s.Password},
		{"sslmode", s.SSLMode},
		{"sslrootcert", s.SSLRootCert},
	}

	var b strings.Builder
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(dsnValue(p.value))
	}
	return b.String()
}

// dsnValue quotes a DSN value if it contains characters that would break the
// keyword/value format.
func dsnValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// quoteIdent quotes a SQL identifier for safe interpolation.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Ping verifies the connection is usable.
func (p *PostgresDatabase) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// TableList returns the base tables (and optionally views) in schema,
// ordered by name.
func (p *PostgresDatabase) TableList(ctx context.Context, schema string, includeViews bool) ([]string, error) {
	query := `select table_name
	            from information_schema.tables
	           where table_schema = $1
	             and table_type = 'BASE TABLE'
	           order by table_name`
	if includeViews {
		query = `select table_name
		           from information_schema.tables
		          where table_schema = $1
		            and table_type in ('BASE TABLE', 'VIEW')
		          order by table_name`
	}

	rows, err := p.db.QueryContext(ctx, query, strings.ToLower(schema))
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

// PrimaryKeyColumns returns the primary-key column names of a table in
// ordinal order.
func (p *PostgresDatabase) PrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error) {
	query := `select kcu.column_name
	            from information_schema.table_constraints tc
	            join information_schema.key_column_usage kcu
	              on kcu.constraint_name = tc.constraint_name
	             and kcu.table_schema = tc.table_schema
	           where tc.table_schema = $1
	             and tc.table_name = $2
	             and tc.constraint_type = 'PRIMARY KEY'
	           order by kcu.ordinal_position`

	rows, err := p.db.QueryContext(ctx, query, strings.ToLower(schema), strings.ToLower(table))
	if err != nil {
		return nil, fmt.Errorf("finding primary key: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning key column: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding primary key: %w", err)
	}
	return columns, nil
}

// ColumnNames returns the column names of a table in ordinal order.
func (p *PostgresDatabase) ColumnNames(ctx context.Context, schema, table string) ([]string, error) {
	query := `select column_name
	            from information_schema.columns
	           where table_schema = $1
	             and table_name = $2
	           order by ordinal_position`

	rows, err := p.db.QueryContext(ctx, query, strings.ToLower(schema), strings.ToLower(table))
	if err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}
	return columns, nil
}

// ExportRows streams every row of the table, ordered by orderBy (or by the
// first column when the table has no primary key). SQL NULL becomes the
// empty string.
func (p *PostgresDatabase) ExportRows(ctx context.Context, schema, table string, orderBy []string,
	header func(columns []string) error, row func(record []string) error) (int, error) {

	order := "1"
	if len(orderBy) > 0 {
		quoted := make([]string, len(orderBy))
		for i, col := range orderBy {
			quoted[i] = quoteIdent(col)
		}
		order = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("select * from %s.%s order by %s",
		quoteIdent(schema), quoteIdent(table), order)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("selecting from %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("reading column names: %w", err)
	}
	if err := header(columns); err != nil {
		return 0, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	record := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := row(record); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("reading rows: %w", err)
	}
	return count, nil
}

// ImportRows replaces the table contents in a single transaction: all rows
// are deleted, then one INSERT runs per record. Empty fields become NULL.
func (p *PostgresDatabase) ImportRows(ctx context.Context, schema, table string, columns []string,
	next func() ([]string, error)) (int, error) {

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("delete from %s.%s",
		quoteIdent(schema), quoteIdent(table))); err != nil {
		return 0, fmt.Errorf("clearing %s.%s: %w", schema, table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(schema, table, columns))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("reading input row: %w", err)
		}
		if len(record) != len(columns) {
			return count, fmt.Errorf("row %d has %d fields, want %d", count+1, len(record), len(columns))
		}

		args := make([]any, len(record))
		for i, field := range record {
			if field == "" {
				args[i] = nil
			} else {
				args[i] = field
			}
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return count, fmt.Errorf("inserting row %d: %w", count+1, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("committing import: %w", err)
	}
	return count, nil
}

// insertSQL builds the parameterized INSERT statement for the given columns.
func insertSQL(schema, table string, columns []string) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = quoteIdent(col)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("insert into %s.%s (%s) values (%s)",
		quoteIdent(schema), quoteIdent(table),
		strings.Join(cols, ", "), strings.Join(params, ", "))
}

// formatValue converts a scanned driver value to its CSV representation.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// Close closes the connection pool.
func (p *PostgresDatabase) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Compile-time check that PostgresDatabase implements dbx.Database interface
var _ dbx.Database = (*PostgresDatabase)(nil)
