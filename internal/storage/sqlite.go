package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is RFC3339 with fixed-width nanoseconds so stored timestamps
// sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding optimization job records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "asrtune.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Optimization jobs ---

// upsertJob fully replaces the row for (userID, projectID). Every write is a
// last-writer-wins overwrite: terminal writes are keyed by user and project
// only, so a completion can land on top of a newer submission's pending row.
func (s *Store) upsertJob(userID, projectID, runID, status, result string) error {
	_, err := s.db.Exec(`
		INSERT INTO optimization_jobs (user_id, project_id, run_id, status, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, project_id) DO UPDATE SET
			run_id = excluded.run_id,
			status = excluded.status,
			result = excluded.result,
			created_at = excluded.created_at`,
		userID, projectID, runID, status, result, time.Now().UTC().Format(timeLayout),
	)
	return err
}

// SeedJob records a fresh pending job, overwriting any prior record for the
// same (userID, projectID) pair including its result.
func (s *Store) SeedJob(userID, projectID, runID string) error {
	return s.upsertJob(userID, projectID, runID, StatusPending, `"processing"`)
}

// CompleteJob overwrites the job record with the serialized recommendation.
func (s *Store) CompleteJob(userID, projectID, runID, recommendationJSON string) error {
	return s.upsertJob(userID, projectID, runID, StatusCompleted, recommendationJSON)
}

// FailJob overwrites the job record with a serialized error object.
func (s *Store) FailJob(userID, projectID, runID, errMsg string) error {
	result, err := marshalErrorResult(errMsg)
	if err != nil {
		return fmt.Errorf("marshaling error result: %w", err)
	}
	return s.upsertJob(userID, projectID, runID, StatusError, result)
}

func (s *Store) scanJob(row *sql.Row) (Job, error) {
	var j Job
	var createdAt string
	err := row.Scan(&j.UserID, &j.ProjectID, &j.RunID, &j.Status, &j.Result, &createdAt)
	if err == sql.ErrNoRows {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Job{}, fmt.Errorf("parsing created_at: %w", err)
	}
	j.CreatedAt = t
	return j, nil
}

// GetJob returns the current record for (userID, projectID), or ErrNotFound.
func (s *Store) GetJob(userID, projectID string) (Job, error) {
	row := s.db.QueryRow(`
		SELECT user_id, project_id, run_id, status, result, created_at
		FROM optimization_jobs WHERE user_id = ? AND project_id = ?`,
		userID, projectID,
	)
	return s.scanJob(row)
}

// GetLatestJob returns the most recently written record for userID across all
// projects, or ErrNotFound. Result lookups key on user only.
func (s *Store) GetLatestJob(userID string) (Job, error) {
	row := s.db.QueryRow(`
		SELECT user_id, project_id, run_id, status, result, created_at
		FROM optimization_jobs WHERE user_id = ?
		ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	return s.scanJob(row)
}
