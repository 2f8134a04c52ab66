// Package extract turns a user message into an intent and keyword sets,
// either via the external classification service or a local heuristic
// extractor when the service is unavailable or returns garbage.
package extract

import "context"

// Intent is the retrieval strategy category assigned to a user query.
// Exactly one value per query; the default and fallback value is
// IntentConceptual.
type Intent string

const (
	IntentFactual    Intent = "FACTUAL"
	IntentNarrative  Intent = "NARRATIVE"
	IntentConceptual Intent = "CONCEPTUAL"
	IntentRelational Intent = "RELATIONAL"
	IntentEmotional  Intent = "EMOTIONAL"
	IntentTask       Intent = "TASK"
)

// ValidIntent reports whether s is one of the six intent values.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentFactual, IntentNarrative, IntentConceptual,
		IntentRelational, IntentEmotional, IntentTask:
		return true
	default:
		return false
	}
}

// String returns the intent as a string.
func (i Intent) String() string {
	return string(i)
}

// ExtractedKeywords holds the five keyword categories pulled from a message.
// Slices are always non-nil so downstream code never branches on null.
type ExtractedKeywords struct {
	// Entities are proper-noun candidates (capitalized words).
	Entities []string `json:"entities"`
	// Concepts are remaining content words not claimed by another category.
	Concepts []string `json:"concepts"`
	// Temporal are time-reference words (today, yesterday, recently, ...).
	Temporal []string `json:"temporal"`
	// Relational are relationship words (mother, uncle, friend, ...).
	Relational []string `json:"relational"`
	// Emotional are emotion words (happy, worried, proud, ...).
	Emotional []string `json:"emotional"`
}

// EmptyKeywords returns keywords with all categories initialized empty.
func EmptyKeywords() ExtractedKeywords {
	return ExtractedKeywords{
		Entities:   []string{},
		Concepts:   []string{},
		Temporal:   []string{},
		Relational: []string{},
		Emotional:  []string{},
	}
}

// normalize coerces nil category slices to empty ones.
func (k *ExtractedKeywords) normalize() {
	if k.Entities == nil {
		k.Entities = []string{}
	}
	if k.Concepts == nil {
		k.Concepts = []string{}
	}
	if k.Temporal == nil {
		k.Temporal = []string{}
	}
	if k.Relational == nil {
		k.Relational = []string{}
	}
	if k.Emotional == nil {
		k.Emotional = []string{}
	}
}

// Classification is the combined output of extraction.
type Classification struct {
	Intent   Intent            `json:"intent"`
	Keywords ExtractedKeywords `json:"keywords"`
}

// Classifier produces a Classification for a user message.
type Classifier interface {
	Classify(ctx context.Context, message string) (Classification, error)
}
