package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hookcatch/hookcatch/internal/ident"
)

// SQLiteStore implements Store on a single SQLite database file.
// Timestamps are stored as Unix nanoseconds so ordering and cutoff
// comparisons are plain integer comparisons.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageError(err, "open database")
	}

	// SQLite serializes writers anyway; a single pooled connection also
	// keeps :memory: databases stable across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, storageError(err, "ping database")
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	pragmas := `
	PRAGMA journal_mode = WAL;
	PRAGMA foreign_keys = ON;
	PRAGMA busy_timeout = 5000;
	`
	if _, err := s.db.Exec(pragmas); err != nil {
		return storageError(err, "apply pragmas")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS paths (
		id TEXT PRIMARY KEY,
		path_id TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		path_id TEXT NOT NULL REFERENCES paths(id) ON DELETE CASCADE,
		method TEXT NOT NULL,
		headers TEXT NOT NULL DEFAULT '{}',
		body TEXT,
		query_params TEXT NOT NULL DEFAULT '{}',
		ip_address TEXT,
		user_agent TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_path_id ON requests(path_id);
	CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return storageError(err, "create schema")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// CreatePath sanitizes the desired slug (or generates one) and inserts
// the path. Slug uniqueness is enforced by the database constraint, not
// a check-then-insert sequence; a collision surfaces as a conflict.
func (s *SQLiteStore) CreatePath(ctx context.Context, desiredSlug string) (*Path, error) {
	now := time.Now().UTC()
	p := &Path{
		ID:        ident.GenerateID(),
		PathID:    ident.SanitizeSlug(desiredSlug),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paths (id, path_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.PathID, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("path slug already exists")
		}
		return nil, storageError(err, "insert path")
	}
	return p, nil
}

const pathColumns = `
	p.id, p.path_id, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM requests r WHERE r.path_id = p.id)`

func scanPath(scan func(dest ...any) error) (*Path, error) {
	var (
		p       Path
		created int64
		updated int64
	)
	if err := scan(&p.ID, &p.PathID, &created, &updated, &p.RequestCount); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func (s *SQLiteStore) FindPath(ctx context.Context, pathID string) (*Path, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+pathColumns+` FROM paths p WHERE p.path_id = ?`, pathID)

	p, err := scanPath(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("path not found")
	}
	if err != nil {
		return nil, storageError(err, "find path")
	}
	return p, nil
}

func (s *SQLiteStore) ListPaths(ctx context.Context) ([]*Path, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+pathColumns+` FROM paths p ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, storageError(err, "list paths")
	}
	defer rows.Close()

	paths := []*Path{}
	for rows.Next() {
		p, err := scanPath(rows.Scan)
		if err != nil {
			return nil, storageError(err, "scan path")
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list paths")
	}
	return paths, nil
}

func (s *SQLiteStore) CountPaths(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paths`).Scan(&n); err != nil {
		return 0, storageError(err, "count paths")
	}
	return n, nil
}

// DeletePath removes the path and every request it owns in one
// transaction. Requests must never outlive their path.
func (s *SQLiteStore) DeletePath(ctx context.Context, pathID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(err, "begin delete path")
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM paths WHERE path_id = ?`, pathID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError("path not found")
	}
	if err != nil {
		return storageError(err, "find path for delete")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE path_id = ?`, id); err != nil {
		return storageError(err, "delete path requests")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM paths WHERE id = ?`, id); err != nil {
		return storageError(err, "delete path")
	}
	if err := tx.Commit(); err != nil {
		return storageError(err, "commit delete path")
	}
	return nil
}

// CreateRequest persists the record, assigning its identifier and
// capture timestamp. The owning path having vanished surfaces as not
// found via the foreign key.
func (s *SQLiteStore) CreateRequest(ctx context.Context, req *Request) error {
	headers, err := encodeMap(req.Headers)
	if err != nil {
		return storageError(err, "encode headers")
	}
	params, err := encodeMap(req.QueryParams)
	if err != nil {
		return storageError(err, "encode query params")
	}

	req.ID = ident.GenerateID()
	req.Timestamp = time.Now().UTC()

	var body sql.NullString
	if req.Body != nil {
		body = sql.NullString{String: *req.Body, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (id, path_id, method, headers, body, query_params, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.PathID, req.Method, headers, body, params,
		nullable(req.IPAddress), nullable(req.UserAgent), req.Timestamp.UnixNano())
	if err != nil {
		if isForeignKeyViolation(err) {
			return notFoundError("path no longer exists")
		}
		return storageError(err, "insert request")
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const requestColumns = `
	r.id, r.path_id, r.method, r.headers, r.body, r.query_params,
	r.ip_address, r.user_agent, r.timestamp`

func scanRequest(scan func(dest ...any) error) (*Request, error) {
	var (
		r       Request
		headers string
		params  string
		body    sql.NullString
		ip      sql.NullString
		ua      sql.NullString
		ts      int64
	)
	if err := scan(&r.ID, &r.PathID, &r.Method, &headers, &body, &params, &ip, &ua, &ts); err != nil {
		return nil, err
	}

	var err error
	if r.Headers, err = decodeMap(headers); err != nil {
		return nil, err
	}
	if r.QueryParams, err = decodeMap(params); err != nil {
		return nil, err
	}
	if body.Valid {
		r.Body = &body.String
	}
	r.IPAddress = ip.String
	r.UserAgent = ua.String
	r.Timestamp = time.Unix(0, ts).UTC()
	return &r, nil
}

func (s *SQLiteStore) ListRequestsForPath(ctx context.Context, pathID string, limit, offset int, methodFilter string) ([]*Request, error) {
	query := `
		SELECT` + requestColumns + `
		FROM requests r
		JOIN paths p ON p.id = r.path_id
		WHERE p.path_id = ?`
	args := []any{pathID}

	if methodFilter != "" {
		query += ` AND r.method = ?`
		args = append(args, strings.ToUpper(methodFilter))
	}
	query += ` ORDER BY r.timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err, "list requests")
	}
	defer rows.Close()

	reqs := []*Request{}
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, storageError(err, "scan request")
		}
		reqs = append(reqs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list requests")
	}
	return reqs, nil
}

func (s *SQLiteStore) CountRequestsForPath(ctx context.Context, pathID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM requests r
		JOIN paths p ON p.id = r.path_id
		WHERE p.path_id = ?`, pathID).Scan(&n)
	if err != nil {
		return 0, storageError(err, "count requests for path")
	}
	return n, nil
}

// GetRequest matches both the request id and the owning path's slug so
// a request id guessed against another path leaks nothing.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID, pathID string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+requestColumns+`
		FROM requests r
		JOIN paths p ON p.id = r.path_id
		WHERE r.id = ? AND p.path_id = ?`, requestID, pathID)

	r, err := scanRequest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("request not found")
	}
	if err != nil {
		return nil, storageError(err, "get request")
	}
	return r, nil
}

func (s *SQLiteStore) ListRecentRequests(ctx context.Context, limit int) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+requestColumns+`
		FROM requests r
		ORDER BY r.timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storageError(err, "list recent requests")
	}
	defer rows.Close()

	reqs := []*Request{}
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, storageError(err, "scan request")
		}
		reqs = append(reqs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list recent requests")
	}
	return reqs, nil
}

func (s *SQLiteStore) DeleteRequestsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE timestamp < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, storageError(err, "delete old requests")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(err, "count deleted requests")
	}
	return n, nil
}

func (s *SQLiteStore) CountRequests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, storageError(err, "count requests")
	}
	return n, nil
}

func (s *SQLiteStore) CountActivePaths(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT path_id) FROM requests`).Scan(&n)
	if err != nil {
		return 0, storageError(err, "count active paths")
	}
	return n, nil
}

func (s *SQLiteStore) MethodCounts(ctx context.Context, pathID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.method, COUNT(*)
		FROM requests r
		JOIN paths p ON p.id = r.path_id
		WHERE p.path_id = ?
		GROUP BY r.method`, pathID)
	if err != nil {
		return nil, storageError(err, "count methods")
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var method string
		var n int64
		if err := rows.Scan(&method, &n); err != nil {
			return nil, storageError(err, "scan method count")
		}
		counts[method] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "count methods")
	}
	return counts, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageError(err, "ping database")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
