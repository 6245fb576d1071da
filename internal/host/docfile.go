package host

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// DocFile implements API directly on a Grist document file. A .grist file is
// a SQLite database holding one table per Grist table with an integer "id"
// primary key.
type DocFile struct {
	conn *sql.DB
	path string
}

// OpenDocFile opens an existing document file
func OpenDocFile(path string) (*DocFile, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return openDocFile(path)
}

// CreateDocFile opens path, creating an empty document if needed
func CreateDocFile(path string) (*DocFile, error) {
	return openDocFile(path)
}

func openDocFile(path string) (*DocFile, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	// Writers other than us may hold the file briefly (a running Grist instance)
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure document: %w", err)
	}

	return &DocFile{conn: conn, path: path}, nil
}

// Close closes the database connection
func (d *DocFile) Close() error {
	return d.conn.Close()
}

// Ping checks the file is a readable SQLite database
func (d *DocFile) Ping(ctx context.Context) error {
	var n int
	if err := d.conn.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("document %s is not readable: %w", d.path, err)
	}
	return nil
}

// CreateTable creates a table with an integer id and the given text columns
// unless it already exists.
func (d *DocFile) CreateTable(ctx context.Context, table string, columns []string) error {
	defs := []string{"id INTEGER PRIMARY KEY"}
	for _, c := range columns {
		if c == "id" {
			continue
		}
		defs = append(defs, quoteIdent(c)+" TEXT DEFAULT ''")
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// FetchTable reads every row ordered by id into columnar form
func (d *DocFile) FetchTable(ctx context.Context, table string) (Snapshot, error) {
	columns, err := d.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(columns))
	for _, name := range names {
		snap[name] = []any{}
	}

	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, name := range names {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			snap[name] = append(snap[name], v)
		}
	}

	return snap, rows.Err()
}

// ApplyUserActions applies all actions in one transaction
func (d *DocFile) ApplyUserActions(ctx context.Context, actions []Action) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for i, a := range actions {
		if err := applyAction(ctx, tx, a); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("action %d (%s): %w", i, a.Type, err)
		}
	}

	return tx.Commit()
}

func applyAction(ctx context.Context, tx *sql.Tx, a Action) error {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, a.Fields[k])
	}

	switch a.Type {
	case ActionUpdateRecord:
		if a.RowID == nil {
			return fmt.Errorf("row id is required")
		}
		if len(keys) == 0 {
			return nil
		}
		sets := make([]string, len(keys))
		for i, k := range keys {
			sets[i] = quoteIdent(k) + " = ?"
		}
		args = append(args, *a.RowID)
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quoteIdent(a.Table), strings.Join(sets, ", ")),
			args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("row %d not found in %s", *a.RowID, a.Table)
		}
		return nil

	case ActionAddRecord:
		if len(keys) == 0 {
			_, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(a.Table)))
			return err
		}
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = quoteIdent(k)
			marks[i] = "?"
		}
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(a.Table), strings.Join(cols, ", "), strings.Join(marks, ", ")),
			args...)
		return err

	default:
		return fmt.Errorf("unsupported action %q", a.Type)
	}
}

// columns returns the column names of table, or ErrTableNotFound
func (d *DocFile) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return names, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
