// Package analyst implements the evaluation pipeline that produces an
// authenticity-risk review for a listing.
//
// The pipeline embeds the listing's official and seller descriptions in a
// fixed prompt and delegates to a text-generation collaborator chosen from
// environment credentials (OPENAI_API_KEY, then OPENROUTER_API_KEY). With no
// credential configured it runs in mock mode and returns a fixed,
// deterministic review. Collaborator failures are masked: Review always
// returns usable text and never an error.
package analyst
