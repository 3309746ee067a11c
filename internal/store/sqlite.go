// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides session/listing persistence with automatic schema creation and fixture seeding

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist and the demo
// listing fixtures are seeded. Parent directories are created if needed.
// Pass ":memory:" for an in-process ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise open its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.seedListings(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding listings: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id               TEXT PRIMARY KEY,
			mode             TEXT NOT NULL DEFAULT 'auto',
			selected_item_id TEXT,
			buyer_agent      TEXT,
			evaluator_agents TEXT NOT NULL DEFAULT '[]',
			seller_agents    TEXT NOT NULL DEFAULT '[]',
			messages         TEXT NOT NULL DEFAULT '[]',
			turn             INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);

		CREATE TABLE IF NOT EXISTS listings (
			id                   TEXT PRIMARY KEY,
			official_description TEXT NOT NULL,
			seller_description   TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// demoListings is the static catalog fixture loaded into every fresh store.
var demoListings = []*Listing{
	{
		ID: "demo-item-1",
		OfficialDescription: "Official archive tote bag made from certified organic cotton " +
			"with hand-stitched leather trim and serialized hologram tag.",
		Seller: Seller{
			Description: "Vintage tote picked up in SoHo years ago. Some fraying but totally " +
				"authentic. Comes with dust bag, but I misplaced the hologram tag.",
		},
	},
}

// seedListings inserts the demo listing fixtures, skipping ids already present.
func (s *SQLiteStore) seedListings() error {
	for _, l := range demoListings {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO listings (id, official_description, seller_description) VALUES (?, ?, ?)`,
			l.ID, l.OfficialDescription, l.Seller.Description,
		)
		if err != nil {
			return fmt.Errorf("inserting listing %s: %w", l.ID, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession persists a new session.
// Returns ErrDuplicateSession if the session id is already taken.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	buyerAgent, err := marshalNullable(session.BuyerAgent)
	if err != nil {
		return fmt.Errorf("encoding buyer_agent: %w", err)
	}
	evaluators, err := marshalList(session.EvaluatorAgents)
	if err != nil {
		return fmt.Errorf("encoding evaluator_agents: %w", err)
	}
	sellers, err := marshalList(session.SellerAgents)
	if err != nil {
		return fmt.Errorf("encoding seller_agents: %w", err)
	}
	messages, err := marshalList(session.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	query := `
		INSERT INTO sessions (id, mode, selected_item_id, buyer_agent, evaluator_agents, seller_agents, messages, turn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		session.SessionID,
		session.Mode,
		session.SelectedItemID,
		buyerAgent,
		evaluators,
		sellers,
		messages,
		session.Turn,
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("session created", "session_id", session.SessionID, "mode", session.Mode)
	return nil
}

// GetSession retrieves a session by ID.
// Returns ErrSessionNotFound if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, mode, selected_item_id, buyer_agent, evaluator_agents, seller_agents, messages, turn, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	return s.scanSession(s.db.QueryRowContext(ctx, query, id))
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT id, mode, selected_item_id, buyer_agent, evaluator_agents, seller_agents, messages, turn, created_at, updated_at
		FROM sessions
		ORDER BY created_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// SetSelectedItem points an existing session at a listing.
// Returns ErrSessionNotFound if the session doesn't exist.
func (s *SQLiteStore) SetSelectedItem(ctx context.Context, sessionID, itemID string) error {
	query := `
		UPDATE sessions
		SET selected_item_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, itemID, time.Now().UTC().Format(time.RFC3339), sessionID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	s.logger.Debug("selected item updated", "session_id", sessionID, "item_id", itemID)
	return nil
}

// GetListing retrieves a listing by ID.
// Returns ErrListingNotFound if the listing doesn't exist.
func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*Listing, error) {
	query := `
		SELECT id, official_description, seller_description
		FROM listings
		WHERE id = ?
	`

	var listing Listing
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&listing.ID,
		&listing.OfficialDescription,
		&listing.Seller.Description,
	)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing: %w", err)
	}
	return &listing, nil
}

// ListListings returns all listings ordered by id.
func (s *SQLiteStore) ListListings(ctx context.Context) ([]*Listing, error) {
	query := `
		SELECT id, official_description, seller_description
		FROM listings
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		var listing Listing
		if err := rows.Scan(&listing.ID, &listing.OfficialDescription, &listing.Seller.Description); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, &listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}
	return listings, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanSession.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession reads one session row, decoding the JSON-encoded columns.
func (s *SQLiteStore) scanSession(row rowScanner) (*Session, error) {
	var session Session
	var selectedItem sql.NullString
	var buyerAgent sql.NullString
	var evaluators, sellers, messages string
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&session.SessionID,
		&session.Mode,
		&selectedItem,
		&buyerAgent,
		&evaluators,
		&sellers,
		&messages,
		&session.Turn,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	if selectedItem.Valid {
		session.SelectedItemID = &selectedItem.String
	}
	if buyerAgent.Valid {
		session.BuyerAgent = json.RawMessage(buyerAgent.String)
	}

	if session.EvaluatorAgents, err = unmarshalList(evaluators); err != nil {
		return nil, fmt.Errorf("decoding evaluator_agents: %w", err)
	}
	if session.SellerAgents, err = unmarshalList(sellers); err != nil {
		return nil, fmt.Errorf("decoding seller_agents: %w", err)
	}
	if session.Messages, err = unmarshalList(messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &session, nil
}

// marshalNullable encodes an optional raw record, returning nil for absent.
func marshalNullable(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON record")
	}
	return string(raw), nil
}

// marshalList encodes a list of opaque records as a JSON array string.
func marshalList(list []json.RawMessage) (string, error) {
	if list == nil {
		list = []json.RawMessage{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalList decodes a JSON array column into opaque records.
func unmarshalList(data string) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []json.RawMessage{}
	}
	return list, nil
}

// isConstraintError checks if an error is a SQLite constraint violation.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
