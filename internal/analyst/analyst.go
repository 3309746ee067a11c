// ABOUTME: Evaluation pipeline producing an authenticity-risk review for a listing.
// ABOUTME: Selects a text-generation collaborator from environment credentials, with a mock fallback.

package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/provenly/resale-gateway/internal/store"
)

// AgentName is the fixed attribution used on agent_output events.
const AgentName = "Analyst"

const (
	mockReview = "Mock Analyst Review: seller mentions missing hologram tag, which is a red " +
		"flag for this model. Request proof of purchase and inspect stitching."

	providerReviewFormat = "[Mocked %s response] The seller's narrative conflicts with the " +
		"official materials list. Verify hologram tag authenticity and leather " +
		"stitching before proceeding."

	fallbackReview = "Analyst unavailable due to upstream error. Please re-run the evaluation."
)

// Generator is the text-generation collaborator behind the pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyst produces review text for listings. Generation failures are masked:
// Review always returns usable text and never an error.
type Analyst struct {
	gen    Generator
	logger *slog.Logger
}

// New creates an Analyst, selecting the generator from environment
// credentials: OPENAI_API_KEY wins over OPENROUTER_API_KEY; with neither set
// the pipeline runs in mock mode and returns a fixed deterministic review.
func New(logger *slog.Logger) *Analyst {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "analyst")
	return &Analyst{
		gen:    selectGenerator(logger),
		logger: logger,
	}
}

// NewWithGenerator creates an Analyst backed by the given collaborator.
func NewWithGenerator(gen Generator, logger *slog.Logger) *Analyst {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{
		gen:    gen,
		logger: logger.With("component", "analyst"),
	}
}

// selectGenerator applies the credential-driven provider selection policy.
func selectGenerator(logger *slog.Logger) Generator {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return &providerGenerator{name: "OpenAI", logger: logger}
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" {
		return &providerGenerator{name: "OpenRouter", logger: logger}
	}
	logger.Info("no provider credential configured, analyst running in mock mode")
	return mockGenerator{}
}

// Review builds the analyst prompt for the listing and delegates to the
// generator. Any generator failure is logged and converted into a fixed
// advisory string.
func (a *Analyst) Review(ctx context.Context, listing *store.Listing) string {
	prompt := buildPrompt(listing)

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error("review generation failed", "listing_id", listing.ID, "error", err)
		return fallbackReview
	}
	return text
}

// buildPrompt renders the fixed review prompt, substituting "N/A" for any
// description that is absent or empty after trimming.
func buildPrompt(listing *store.Listing) string {
	official := strings.TrimSpace(listing.OfficialDescription)
	if official == "" {
		official = "N/A"
	}
	seller := strings.TrimSpace(listing.Seller.Description)
	if seller == "" {
		seller = "N/A"
	}

	return "You are The Analyst, the first evaluator agent in a fashion resale " +
		"negotiation simulator. Highlight authenticity red flags, inconsistencies, " +
		"and risk signals in a concise paragraph.\n\n" +
		"Official description:\n" + official + "\n\n" +
		"Seller description:\n" + seller + "\n\n" +
		"Produce a short summary focused on issues the negotiation team should " +
		"investigate next."
}

// mockGenerator returns the canned review without contacting any provider.
type mockGenerator struct{}

func (mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	return mockReview, nil
}

// providerGenerator stands in for a real provider client. The credential
// selects which labeled response is returned; no network call is made.
type providerGenerator struct {
	name   string
	logger *slog.Logger
}

func (g *providerGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.logger.Info("mocking provider call", "provider", g.name, "prompt_length", len(prompt))
	return fmt.Sprintf(providerReviewFormat, g.name), nil
}
