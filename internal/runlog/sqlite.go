package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Schema for the runs database.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    thread_id TEXT,
    mode TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    prompt TEXT,
    iterations INTEGER NOT NULL DEFAULT 0,
    tool_calls INTEGER NOT NULL DEFAULT 0,
    limit_reached BOOLEAN NOT NULL DEFAULT FALSE,
    error TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    sequence INTEGER NOT NULL,
    iteration INTEGER NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system', 'tool')),
    content TEXT NOT NULL,
    text_content TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_updated_at ON runs(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_run_sequence ON messages(run_id, sequence);
`

// NewSQLiteStore opens (creating if needed) the runs database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("runs database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// schemaVersion is the current schema version.
// - Fresh databases get the full schema from `schema` const and start at this version
// - Existing databases run migrations to reach this version
const schemaVersion = 2

type migration struct {
	version     int
	description string
	up          func(db *sql.DB) error
}

// migrations upgrade databases created before a schema change. The `schema`
// const always holds the full current schema.
var migrations = []migration{
	{
		version:     2,
		description: "add run tool_calls counter and status index",
		up: func(db *sql.DB) error {
			if _, err := db.Exec("ALTER TABLE runs ADD COLUMN tool_calls INTEGER NOT NULL DEFAULT 0"); err != nil && !isDuplicateColumnError(err) {
				return err
			}
			_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)")
			return err
		},
	},
}

// initSchema initializes the database schema and runs any pending migrations.
func initSchema(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&currentVersion)
	if err == nil && currentVersion >= schemaVersion {
		return nil
	}
	return initSchemaFull(db, err, currentVersion)
}

func initSchemaFull(db *sql.DB, versionErr error, currentVersion int) error {
	// A pre-versioning database has a runs table but no schema_version table.
	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'`).Scan(&existing); err != nil {
		return fmt.Errorf("check runs table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	if versionErr != nil {
		if !errors.Is(versionErr, sql.ErrNoRows) && !strings.Contains(versionErr.Error(), "no such table") {
			return fmt.Errorf("get current version: %w", versionErr)
		}
		currentVersion = schemaVersion
		if existing > 0 {
			currentVersion = 1
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentVersion); err != nil {
			return fmt.Errorf("insert initial version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := db.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			return fmt.Errorf("update version to %d: %w", m.version, err)
		}
	}

	// Create whatever is still missing (IF NOT EXISTS, safe to run multiple times).
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate column") ||
		strings.Contains(errStr, "already exists")
}

const runColumns = `id, agent, thread_id, mode, status, prompt, iterations, tool_calls, limit_reached, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var threadID, prompt, errMsg sql.NullString
	if err := row.Scan(&r.ID, &r.Agent, &threadID, &r.Mode, &r.Status, &prompt,
		&r.Iterations, &r.ToolCalls, &r.LimitReached, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ThreadID = threadID.String
	r.Prompt = prompt.String
	r.Error = errMsg.String
	return &r, nil
}

// Create inserts a new run.
func (s *SQLiteStore) Create(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.Status == "" {
		r.Status = StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Agent, nullString(r.ThreadID), string(r.Mode), string(r.Status), nullString(r.Prompt),
		r.Iterations, r.ToolCalls, r.LimitReached, nullString(r.Error), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID. A missing run yields (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// Resolve finds a run by full ID or by a prefix matching exactly one run.
func (s *SQLiteStore) Resolve(ctx context.Context, idOrPrefix string) (*Run, error) {
	if idOrPrefix == "" {
		return nil, ErrNotFound
	}
	if r, err := s.Get(ctx, idOrPrefix); err != nil || r != nil {
		return r, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT 2`,
		escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpdateProgress records how far a run has got.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, iterations, toolCalls int, threadID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET iterations = ?, tool_calls = ?, thread_id = COALESCE(?, thread_id), updated_at = ?
		WHERE id = ?`,
		iterations, toolCalls, nullString(threadID), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// Finish sets the final status of a run.
func (s *SQLiteStore) Finish(ctx context.Context, id string, status RunStatus, limitReached bool, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, limit_reached = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), limitReached, nullString(errMsg), time.Now(), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Delete removes a run and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns runs, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var where []string
	var args []any
	if opts.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, opts.Agent)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// AddMessage appends a message to a run. A negative Sequence is allocated
// as one past the run's current highest.
func (s *SQLiteStore) AddMessage(ctx context.Context, runID string, msg *Message) error {
	msg.RunID = runID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	content, err := msg.ContentJSON()
	if err != nil {
		return fmt.Errorf("serialize content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if msg.Sequence < 0 {
		var maxSeq sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(sequence) FROM messages WHERE run_id = ?`, runID).Scan(&maxSeq); err != nil {
			return fmt.Errorf("get max sequence: %w", err)
		}
		msg.Sequence = 0
		if maxSeq.Valid {
			msg.Sequence = int(maxSeq.Int64) + 1
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (run_id, sequence, iteration, role, content, text_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, msg.Sequence, msg.Iteration, string(msg.Role), content, msg.TextContent, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID, _ = result.LastInsertId()

	if _, err := tx.ExecContext(ctx, "UPDATE runs SET updated_at = ? WHERE id = ?", time.Now(), runID); err != nil {
		return fmt.Errorf("update run timestamp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetMessages returns a run's messages in sequence order.
func (s *SQLiteStore) GetMessages(ctx context.Context, runID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, sequence, iteration, role, content, text_content, created_at
		FROM messages WHERE run_id = ? ORDER BY sequence ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var content string
		var text sql.NullString
		if err := rows.Scan(&msg.ID, &msg.RunID, &msg.Sequence, &msg.Iteration, &msg.Role,
			&content, &text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
			return nil, fmt.Errorf("decode message %d content: %w", msg.ID, err)
		}
		msg.TextContent = text.String
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
