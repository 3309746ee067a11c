// ABOUTME: Tests for the SQLite session and listing store
// ABOUTME: Covers session CRUD, item selection, fixture seeding, and sentinel errors

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_CreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	itemID := "demo-item-1"
	now := time.Now().UTC().Truncate(time.Second)
	session := &Session{
		SessionID:       "sess-1",
		Mode:            "auto",
		SelectedItemID:  &itemID,
		BuyerAgent:      json.RawMessage(`{"name":"buyer-bot"}`),
		EvaluatorAgents: []json.RawMessage{json.RawMessage(`{"name":"analyst"}`)},
		SellerAgents:    []json.RawMessage{},
		Messages:        []json.RawMessage{json.RawMessage(`{"text":"hi"}`)},
		Turn:            3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "auto", got.Mode)
	require.NotNil(t, got.SelectedItemID)
	assert.Equal(t, "demo-item-1", *got.SelectedItemID)
	assert.JSONEq(t, `{"name":"buyer-bot"}`, string(got.BuyerAgent))
	require.Len(t, got.EvaluatorAgents, 1)
	assert.JSONEq(t, `{"name":"analyst"}`, string(got.EvaluatorAgents[0]))
	assert.Empty(t, got.SellerAgents)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, 3, got.Turn)
	assert.True(t, got.CreatedAt.Equal(now), "created_at roundtrip")
}

func TestSQLiteStore_CreateSessionWithoutOptionalFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.CreateSession(ctx, &Session{
		SessionID: "sparse",
		Mode:      DefaultMode,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	got, err := s.GetSession(ctx, "sparse")
	require.NoError(t, err)
	assert.Nil(t, got.SelectedItemID)
	assert.Nil(t, got.BuyerAgent)
	assert.Empty(t, got.EvaluatorAgents)
	assert.Empty(t, got.Messages)
	assert.Zero(t, got.Turn)
}

func TestSQLiteStore_GetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteStore_DuplicateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	session := &Session{SessionID: "dup", Mode: DefaultMode, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateSession(ctx, session))

	err := s.CreateSession(ctx, session)
	assert.ErrorIs(t, err, ErrDuplicateSession)
}

func TestSQLiteStore_ListSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"older", "newer"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateSession(ctx, &Session{
			SessionID: id, Mode: DefaultMode, CreatedAt: ts, UpdatedAt: ts,
		}))
	}

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].SessionID)
	assert.Equal(t, "older", sessions[1].SessionID)
}

func TestSQLiteStore_SetSelectedItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.CreateSession(ctx, &Session{
		SessionID: "sess-1", Mode: DefaultMode, CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, s.SetSelectedItem(ctx, "sess-1", "demo-item-1"))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got.SelectedItemID)
	assert.Equal(t, "demo-item-1", *got.SelectedItemID)
}

func TestSQLiteStore_SetSelectedItemUnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.SetSelectedItem(context.Background(), "ghost", "demo-item-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteStore_DemoListingIsSeeded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	listing, err := s.GetListing(ctx, "demo-item-1")
	require.NoError(t, err)
	assert.Contains(t, listing.OfficialDescription, "serialized hologram tag")
	assert.Contains(t, listing.Seller.Description, "misplaced the hologram tag")

	listings, err := s.ListListings(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, listings)
	assert.Equal(t, "demo-item-1", listings[0].ID)
}

func TestSQLiteStore_GetListingNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetListing(context.Background(), "no-such-item")
	assert.ErrorIs(t, err, ErrListingNotFound)
}
