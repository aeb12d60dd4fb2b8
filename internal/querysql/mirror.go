package querysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/factlog/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Mirror is an in-memory SQLite copy of a statements snapshot.
// Reload it with Load after the store changes.
type Mirror struct {
	db *sql.DB
}

// Open creates an empty mirror.
func Open(ctx context.Context) (*Mirror, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close releases the database.
func (m *Mirror) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Load replaces the mirrored facts with facts, keeping their order.
func (m *Mirror) Load(ctx context.Context, facts []ir.Fact) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM facts"); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (seq, id, entity_kind, entity, attr, value_kind, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range facts {
		id, err := ir.FactID(f)
		if err != nil {
			return fmt.Errorf("fact %s: %w", f, err)
		}
		ek, et, err := encodeValue(f.Entity)
		if err != nil {
			return fmt.Errorf("fact %s entity: %w", f, err)
		}
		vk, vt, err := encodeValue(f.Value)
		if err != nil {
			return fmt.Errorf("fact %s value: %w", f, err)
		}
		if _, err := stmt.ExecContext(ctx, i+1, id, ek, et, f.Attr.Key, vk, vt); err != nil {
			return fmt.Errorf("insert fact %s: %w", f, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Len returns the number of mirrored facts.
func (m *Mirror) Len(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

// Query answers a conjunctive pattern query against the mirrored facts.
// No match yields nil; an empty pattern list yields one empty context.
func (m *Mirror) Query(ctx context.Context, patterns []ir.Pattern) ([]ir.Bindings, error) {
	c, err := Compile(patterns)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, c.SQL, c.Params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []ir.Bindings
	for rows.Next() {
		b, err := scanBindings(rows, c.Vars)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return results, nil
}

func scanBindings(rows *sql.Rows, vars []string) (ir.Bindings, error) {
	if len(vars) == 0 {
		var one int
		if err := rows.Scan(&one); err != nil {
			return ir.Bindings{}, fmt.Errorf("scan row: %w", err)
		}
		return ir.Bindings{}, nil
	}

	cols := make([]string, 2*len(vars))
	dest := make([]any, len(cols))
	for i := range cols {
		dest[i] = &cols[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return ir.Bindings{}, fmt.Errorf("scan row: %w", err)
	}

	var b ir.Bindings
	for i, name := range vars {
		v, err := decodeValue(cols[2*i], cols[2*i+1])
		if err != nil {
			return ir.Bindings{}, fmt.Errorf("column %s: %w", name, err)
		}
		b = b.Extend(name, v)
	}
	return b, nil
}
