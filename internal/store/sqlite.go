package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aranea-sec/aranea/internal/directive"
	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hash BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		last_login_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_index INTEGER NOT NULL,
		query TEXT NOT NULL,
		response_text TEXT NOT NULL,
		function_executed TEXT,
		function_args TEXT,
		raw_result TEXT,
		formatted_result TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_index);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, email, password_hash, created_at, last_login_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var lastLogin interface{}
	if user.LastLoginAt != nil {
		lastLogin = user.LastLoginAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.Email, user.PasswordHash,
		user.CreatedAt.Unix(), lastLogin,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT user_id, username, email, password_hash, created_at, last_login_at
		FROM users WHERE username = ?`

	row := s.db.QueryRowContext(ctx, query, username)

	var user domain.User
	var createdAt int64
	var lastLogin sql.NullInt64

	err := row.Scan(
		&user.UserID, &user.Username, &user.Email, &user.PasswordHash,
		&createdAt, &lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	if lastLogin.Valid {
		ts := time.Unix(lastLogin.Int64, 0)
		user.LastLoginAt = &ts
	}
	return &user, nil
}

// UpdateLastLogin records a successful login time.
func (s *SQLiteStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE user_id = ?`, at.Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastLogin affected 0 rows", "user_id", userID)
	}
	return nil
}

// RecordTurn appends a completed turn to the durable engagement log.
// Retries on SQLite concurrency errors with exponential backoff.
func (s *SQLiteStore) RecordTurn(ctx context.Context, sessionID string, entry domain.HistoryEntry) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.insertTurnOnce(ctx, sessionID, entry)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("RecordTurn hit a busy database, retrying",
			"session_id", sessionID, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("record turn for %s: %w", sessionID, err)
}

func (s *SQLiteStore) insertTurnOnce(ctx context.Context, sessionID string, entry domain.HistoryEntry) error {
	query := `
	INSERT INTO turns (session_id, turn_index, query, response_text,
		function_executed, function_args, raw_result, formatted_result, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		sessionID, entry.TurnIndex, entry.Query, entry.ResponseText,
		entry.FunctionExecuted, entry.FunctionArgs.Render(),
		entry.RawResult, entry.FormattedResult, entry.Timestamp.Unix(),
	)
	return err
}

// TurnsForSession returns the persisted turns of one session in append
// order.
func (s *SQLiteStore) TurnsForSession(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	query := `
		SELECT turn_index, query, response_text, function_executed,
		       function_args, raw_result, formatted_result, created_at
		FROM turns WHERE session_id = ? ORDER BY turn_index`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close turn rows", "error", closeErr)
		}
	}()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var functionExecuted, functionArgs, rawResult, formattedResult sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&entry.TurnIndex, &entry.Query, &entry.ResponseText,
			&functionExecuted, &functionArgs, &rawResult, &formattedResult,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}

		entry.FunctionExecuted = functionExecuted.String
		entry.RawResult = rawResult.String
		entry.FormattedResult = formattedResult.String
		entry.Timestamp = time.Unix(createdAt, 0)
		if functionArgs.String != "" {
			if args, err := directive.ParseLiteral(functionArgs.String); err == nil {
				entry.FunctionArgs = args
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
