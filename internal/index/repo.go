package index

import (
	"fmt"
	"time"
)

// NotebookRow represents a row in the notebooks table.
type NotebookRow struct {
	Path      string
	Title     string
	Kernel    string
	CellCount int
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertNotebook inserts or replaces a notebook and its FTS entry
// within a transaction.
func (db *DB) UpsertNotebook(n NotebookRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notebooks (path, title, kernel, cell_count, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			kernel     = excluded.kernel,
			cell_count = excluded.cell_count,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Kernel, n.CellCount, n.Checksum, body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert notebook: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteNotebook removes a notebook and its FTS entry.
func (db *DB) DeleteNotebook(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM notebooks WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a notebook, or empty
// string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notebooks WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListNotebooks returns a page of notebooks with optional kernel filter.
func (db *DB) ListNotebooks(limit, offset int, kernel, sort string) ([]NotebookRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	orderBy := "updated_at DESC"
	switch sort {
	case "title":
		orderBy = "title COLLATE NOCASE ASC"
	case "path":
		orderBy = "path ASC"
	case "", "updated_at":
	default:
		return nil, 0, fmt.Errorf("index: unknown sort %q", sort)
	}

	where := ""
	args := []any{}
	if kernel != "" {
		where = "WHERE kernel = ?"
		args = append(args, kernel)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notebooks `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notebooks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT path, title, kernel, cell_count, checksum, updated_at
		FROM notebooks %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, where, orderBy)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []NotebookRow
	for rows.Next() {
		var r NotebookRow
		if err := rows.Scan(&r.Path, &r.Title, &r.Kernel, &r.CellCount, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed notebook path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notebooks`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed notebook.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notebooks`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
