// ABOUTME: Store interface and data types for resale-gateway persistence
// ABOUTME: Defines Session, Listing structs and the Store interface for database operations

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a requested session does not exist
var ErrSessionNotFound = errors.New("session not found")

// ErrListingNotFound is returned when a requested listing does not exist
var ErrListingNotFound = errors.New("listing not found")

// ErrDuplicateSession is returned when trying to create a session that already exists
var ErrDuplicateSession = errors.New("session already exists")

// DefaultMode is the session mode used when a create request omits one.
const DefaultMode = "auto"

// Session is a named collaboration context grouping connections and holding
// which listing is under evaluation. Agent descriptors and the message log
// are opaque structured records; the gateway stores and returns them without
// interpreting their contents.
type Session struct {
	SessionID       string
	Mode            string
	SelectedItemID  *string
	BuyerAgent      json.RawMessage
	EvaluatorAgents []json.RawMessage
	SellerAgents    []json.RawMessage
	Messages        []json.RawMessage
	Turn            int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Seller holds the seller-supplied side of a listing.
type Seller struct {
	Description string `json:"description"`
}

// Listing is an item record with an official description and a seller's
// competing description. Listings are immutable once seeded.
type Listing struct {
	ID                  string
	OfficialDescription string
	Seller              Seller
}

// Store defines the persistence operations for sessions and listings.
type Store interface {
	// CreateSession persists a new session.
	// Returns ErrDuplicateSession if the session id is already taken.
	CreateSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by id.
	// Returns ErrSessionNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]*Session, error)

	// SetSelectedItem points an existing session at a listing.
	// Returns ErrSessionNotFound if the session doesn't exist.
	SetSelectedItem(ctx context.Context, sessionID, itemID string) error

	// GetListing retrieves a listing by id.
	// Returns ErrListingNotFound if the listing doesn't exist.
	GetListing(ctx context.Context, id string) (*Listing, error)

	// ListListings returns all listings.
	ListListings(ctx context.Context) ([]*Listing, error)

	// Close releases the underlying database resources.
	Close() error
}
