package extract

import (
	"regexp"
	"strings"
)

// Compiled vocabularies for heuristic extraction.
// Compiled at package init for performance.
var (
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

	temporalPattern = regexp.MustCompile(`(?i)\b(today|tonight|yesterday|tomorrow|recently|lately|now|later|earlier|ago|when|currently|morning|evening|weekend|week|month|year)\b`)

	relationalPattern = regexp.MustCompile(`(?i)\b(mom|mother|dad|father|sister|brother|uncle|aunt|cousin|grandma|grandmother|grandpa|grandfather|wife|husband|son|daughter|friend|boyfriend|girlfriend|partner|colleague|coworker|boss|neighbor|family)\b`)

	emotionalPattern = regexp.MustCompile(`(?i)\b(happy|sad|angry|excited|worried|anxious|nervous|stressed|scared|afraid|frustrated|upset|proud|lonely|grateful|love|loved|hate|hated|miss|missed)\b`)

	// Factual questions open with an interrogative, possibly contracted
	// ("What's", "Who is").
	factualPattern = regexp.MustCompile(`(?i)^\s*(what|who|where|when|which)(\b|')`)

	narrativePattern = regexp.MustCompile(`(?i)\b(how|why|tell me about)\b`)

	// Letters only, so contractions split and "what's" reduces to "what".
	wordPattern = regexp.MustCompile(`[A-Za-z]+`)
)

// interrogatives are capitalized words that are never entities.
var interrogatives = map[string]struct{}{
	"What": {}, "Who": {}, "Where": {}, "When": {},
	"Why": {}, "How": {}, "Which": {},
}

// stopWords never become concepts.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"have": {}, "has": {}, "had": {}, "was": {}, "were": {}, "been": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"what": {}, "who": {}, "where": {}, "when": {}, "why": {}, "how": {},
	"which": {}, "does": {}, "did": {}, "tell": {}, "know": {}, "like": {},
	"just": {}, "really": {}, "very": {}, "some": {}, "your": {}, "mine": {},
	"their": {}, "there": {}, "here": {}, "they": {}, "them": {}, "then": {},
	"than": {}, "into": {}, "over": {}, "again": {},
}

// maxConcepts caps the concepts category.
const maxConcepts = 5

// FallbackExtractor derives intent and keywords from a message using fixed
// vocabularies. Pure, synchronous, no I/O, never fails. It backs the
// classification adapter whenever the external service cannot be used.
type FallbackExtractor struct{}

// NewFallbackExtractor creates a new heuristic extractor.
func NewFallbackExtractor() *FallbackExtractor {
	return &FallbackExtractor{}
}

// Extract classifies the message and pulls keyword categories from it.
//
// Intent priority is fixed: relational words win, then emotional words,
// then a factual interrogative opening, then a narrative marker, then
// CONCEPTUAL. The order is deliberate and preserved as-is even where it
// looks debatable ("What's my uncle's profession?" is RELATIONAL, not
// FACTUAL) because downstream retrieval weights are tuned against it.
func (f *FallbackExtractor) Extract(message string) (Intent, ExtractedKeywords) {
	keywords := EmptyKeywords()
	message = strings.TrimSpace(message)
	if message == "" {
		return IntentConceptual, keywords
	}

	keywords.Entities = f.extractEntities(message)
	keywords.Temporal = matchVocabulary(temporalPattern, message)
	keywords.Relational = matchVocabulary(relationalPattern, message)
	keywords.Emotional = matchVocabulary(emotionalPattern, message)
	keywords.Concepts = f.extractConcepts(message, keywords)

	return f.deriveIntent(message, keywords), keywords
}

// extractEntities returns capitalized words that are not interrogatives.
func (f *FallbackExtractor) extractEntities(message string) []string {
	entities := []string{}
	seen := map[string]struct{}{}
	for _, word := range capitalizedPattern.FindAllString(message, -1) {
		if _, isInterrogative := interrogatives[word]; isInterrogative {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		entities = append(entities, word)
	}
	return entities
}

// extractConcepts returns content words longer than three characters that no
// other category claimed, capped at maxConcepts.
func (f *FallbackExtractor) extractConcepts(message string, keywords ExtractedKeywords) []string {
	claimed := map[string]struct{}{}
	for _, group := range [][]string{keywords.Entities, keywords.Temporal, keywords.Relational, keywords.Emotional} {
		for _, w := range group {
			claimed[strings.ToLower(w)] = struct{}{}
		}
	}

	concepts := []string{}
	seen := map[string]struct{}{}
	for _, word := range wordPattern.FindAllString(message, -1) {
		lower := strings.ToLower(word)
		if len(lower) <= 3 {
			continue
		}
		if _, ok := stopWords[lower]; ok {
			continue
		}
		if _, ok := claimed[lower]; ok {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		concepts = append(concepts, lower)
		if len(concepts) >= maxConcepts {
			break
		}
	}
	return concepts
}

// deriveIntent applies the fixed priority order.
func (f *FallbackExtractor) deriveIntent(message string, keywords ExtractedKeywords) Intent {
	if len(keywords.Relational) > 0 {
		return IntentRelational
	}
	if len(keywords.Emotional) > 0 {
		return IntentEmotional
	}
	if factualPattern.MatchString(message) {
		return IntentFactual
	}
	if narrativePattern.MatchString(message) {
		return IntentNarrative
	}
	return IntentConceptual
}

// matchVocabulary returns deduplicated lowercase matches of a vocabulary
// pattern, in order of first appearance.
func matchVocabulary(pattern *regexp.Regexp, message string) []string {
	matches := []string{}
	seen := map[string]struct{}{}
	for _, m := range pattern.FindAllString(message, -1) {
		lower := strings.ToLower(m)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		matches = append(matches, lower)
	}
	return matches
}
