package dbx

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// TransferOptions selects the target and tables for an export or import.
// Exactly one of AllTables and Table must be set.
type TransferOptions struct {
	Environment string
	Hostname    string
	Database    string
	Schema      string
	Table       string
	AllTables   bool
	Headers     bool
}

func (o *TransferOptions) validate() error {
	if o.AllTables == (o.Table != "") {
		return errors.New("specify either a single table or all tables")
	}
	if o.Schema == "" {
		return errors.New("schema is required")
	}
	return nil
}

// TableCount reports the row count transferred for one table.
type TableCount struct {
	Table string
	Rows  int
}

// ObjectName is the store key for one table's CSV data,
// e.g. "dev/sample/public-accounts.csv".
func ObjectName(environment, database, schema, table string) string {
	return strings.ToLower(path.Join(environment, database, schema+"-"+table+".csv"))
}

// Export writes the selected tables to the file store as CSV, one object per
// table, rows ordered by primary key. A single named table may be a view.
func (s *Service) Export(ctx context.Context, opts TransferOptions, passphrase string) ([]TableCount, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	settings, err := s.LoadSettings(opts.Environment, opts.Hostname, opts.Database, passphrase)
	if err != nil {
		return nil, err
	}

	db, err := s.connector.Connect(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", settings.Database, err)
	}
	defer db.Close()

	tables, err := s.resolveTables(ctx, db, opts, true)
	if err != nil {
		return nil, err
	}

	var results []TableCount
	for _, table := range tables {
		count, err := s.exportTable(ctx, db, opts, table)
		if err != nil {
			return results, fmt.Errorf("exporting %s: %w", table, err)
		}
		s.log.Info("exported table", "table", table, "rows", count)
		results = append(results, TableCount{Table: table, Rows: count})
	}
	return results, nil
}

func (s *Service) exportTable(ctx context.Context, db Database, opts TransferOptions, table string) (int, error) {
	orderBy, err := db.PrimaryKeyColumns(ctx, opts.Schema, table)
	if err != nil {
		return 0, err
	}

	// Rows are buffered through a temp file so the store upload sees a
	// complete object.
	tmp, err := os.CreateTemp("", "dbx-export-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	count, err := db.ExportRows(ctx, opts.Schema, table, orderBy,
		func(columns []string) error {
			if !opts.Headers {
				return nil
			}
			return w.Write(columns)
		},
		func(record []string) error {
			return w.Write(record)
		})
	if err != nil {
		return count, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return count, fmt.Errorf("writing csv: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return count, fmt.Errorf("rewinding temp file: %w", err)
	}
	name := ObjectName(opts.Environment, opts.Database, opts.Schema, table)
	if err := s.files.Put(name, tmp); err != nil {
		return count, fmt.Errorf("storing %s: %w", name, err)
	}
	return count, nil
}

// Import replaces the selected tables' contents from CSV objects in the file
// store. Tables that have no stored object are skipped with a warning.
func (s *Service) Import(ctx context.Context, opts TransferOptions, passphrase string) ([]TableCount, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	settings, err := s.LoadSettings(opts.Environment, opts.Hostname, opts.Database, passphrase)
	if err != nil {
		return nil, err
	}

	db, err := s.connector.Connect(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", settings.Database, err)
	}
	defer db.Close()

	tables, err := s.resolveTables(ctx, db, opts, false)
	if err != nil {
		return nil, err
	}

	var results []TableCount
	for _, table := range tables {
		count, err := s.importTable(ctx, db, opts, table)
		if errors.Is(err, ErrObjectNotFound) {
			s.log.Warn("no stored data for table, skipping", "table", table)
			continue
		}
		if err != nil {
			return results, fmt.Errorf("importing %s: %w", table, err)
		}
		s.log.Info("imported table", "table", table, "rows", count)
		results = append(results, TableCount{Table: table, Rows: count})
	}
	return results, nil
}

func (s *Service) importTable(ctx context.Context, db Database, opts TransferOptions, table string) (int, error) {
	tmp, err := os.CreateTemp("", "dbx-import-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	name := ObjectName(opts.Environment, opts.Database, opts.Schema, table)
	if err := s.files.Get(name, tmp); err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewinding temp file: %w", err)
	}

	r := csv.NewReader(tmp)

	var columns []string
	if opts.Headers {
		columns, err = r.Read()
		if errors.Is(err, io.EOF) {
			// Header-only or empty file still truncates the table.
			columns = nil
		} else if err != nil {
			return 0, fmt.Errorf("reading csv header: %w", err)
		}
	}
	if columns == nil {
		columns, err = db.ColumnNames(ctx, opts.Schema, table)
		if err != nil {
			return 0, err
		}
	}

	return db.ImportRows(ctx, opts.Schema, table, columns, r.Read)
}

// resolveTables expands AllTables to the schema's base tables, or checks that
// the named table exists. Views qualify only for single-table export.
func (s *Service) resolveTables(ctx context.Context, db Database, opts TransferOptions, allowViews bool) ([]string, error) {
	if opts.AllTables {
		tables, err := db.TableList(ctx, opts.Schema, false)
		if err != nil {
			return nil, err
		}
		return tables, nil
	}

	tables, err := db.TableList(ctx, opts.Schema, allowViews)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if strings.EqualFold(t, opts.Table) {
			return []string{t}, nil
		}
	}
	return nil, fmt.Errorf("table %s not found in schema %s", opts.Table, opts.Schema)
}
