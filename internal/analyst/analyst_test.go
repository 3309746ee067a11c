// ABOUTME: Tests for the analyst evaluation pipeline
// ABOUTME: Covers provider selection, mock determinism, prompt defaults, and failure masking

package analyst

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provenly/resale-gateway/internal/store"
)

// captureGenerator records the prompt it was called with.
type captureGenerator struct {
	prompt string
	text   string
	err    error
}

func (g *captureGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

func demoListing() *store.Listing {
	return &store.Listing{
		ID:                  "demo-item-1",
		OfficialDescription: "Official tote with serialized hologram tag.",
		Seller:              store.Seller{Description: "Vintage tote, misplaced the hologram tag."},
	}
}

func clearCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
}

func TestAnalyst_MockModeIsDeterministic(t *testing.T) {
	clearCredentials(t)

	a := New(nil)
	first := a.Review(context.Background(), demoListing())
	second := a.Review(context.Background(), demoListing())

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Mock Analyst Review")
}

func TestAnalyst_ProviderSelectionPolicy(t *testing.T) {
	tests := []struct {
		name       string
		openai     string
		openrouter string
		want       string
	}{
		{
			name:   "openai credential wins",
			openai: "sk-test",
			want:   "[Mocked OpenAI response]",
		},
		{
			name:       "openrouter used when openai absent",
			openrouter: "or-test",
			want:       "[Mocked OpenRouter response]",
		},
		{
			name:       "openai preferred over openrouter",
			openai:     "sk-test",
			openrouter: "or-test",
			want:       "[Mocked OpenAI response]",
		},
		{
			name: "no credential falls back to mock mode",
			want: "Mock Analyst Review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.openai)
			t.Setenv("OPENROUTER_API_KEY", tt.openrouter)

			a := New(nil)
			review := a.Review(context.Background(), demoListing())
			assert.True(t, strings.HasPrefix(review, tt.want),
				"review %q should start with %q", review, tt.want)
		})
	}
}

func TestAnalyst_PromptEmbedsDescriptions(t *testing.T) {
	gen := &captureGenerator{text: "ok"}
	a := NewWithGenerator(gen, nil)

	a.Review(context.Background(), demoListing())

	require.NotEmpty(t, gen.prompt)
	assert.Contains(t, gen.prompt, "You are The Analyst")
	assert.Contains(t, gen.prompt, "Official description:\nOfficial tote with serialized hologram tag.")
	assert.Contains(t, gen.prompt, "Seller description:\nVintage tote, misplaced the hologram tag.")
}

func TestAnalyst_PromptDefaultsBlankDescriptionsToNA(t *testing.T) {
	gen := &captureGenerator{text: "ok"}
	a := NewWithGenerator(gen, nil)

	a.Review(context.Background(), &store.Listing{
		ID:                  "bare",
		OfficialDescription: "   ",
		Seller:              store.Seller{},
	})

	assert.Contains(t, gen.prompt, "Official description:\nN/A")
	assert.Contains(t, gen.prompt, "Seller description:\nN/A")
}

func TestAnalyst_GeneratorFailureIsMasked(t *testing.T) {
	gen := &captureGenerator{err: errors.New("upstream exploded")}
	a := NewWithGenerator(gen, nil)

	review := a.Review(context.Background(), demoListing())

	assert.Equal(t, "Analyst unavailable due to upstream error. Please re-run the evaluation.", review)
}
