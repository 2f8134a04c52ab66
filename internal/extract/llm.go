package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// Default classification service configuration values.
const (
	DefaultServiceEndpoint = "http://localhost:11434"
	DefaultServiceModel    = "qwen3:0.6b"
	DefaultServiceTimeout  = 5 * time.Second
)

// ServiceConfig holds configuration for the classification service client.
type ServiceConfig struct {
	// Endpoint is the completion API base URL.
	Endpoint string
	// Model is the model used for classification.
	Model string
	// Timeout bounds each classification call.
	Timeout time.Duration
}

// DefaultServiceConfig returns sensible defaults for the service client.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Endpoint: DefaultServiceEndpoint,
		Model:    DefaultServiceModel,
		Timeout:  DefaultServiceTimeout,
	}
}

// ServiceClassifier calls the external classification service.
// It validates the response strictly at the boundary: any transport
// failure, non-JSON body, missing key, or out-of-range intent value is
// returned as an error for the adapter to recover from.
type ServiceClassifier struct {
	client *http.Client
	config ServiceConfig
}

// generateRequest is the completion API request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

// generateResponse is the completion API response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// classificationPayload is the strict schema expected inside the model's
// response text.
type classificationPayload struct {
	Intent   *string            `json:"intent"`
	Keywords *ExtractedKeywords `json:"keywords"`
}

// NewServiceClassifier creates a new classification service client.
func NewServiceClassifier(config ServiceConfig) *ServiceClassifier {
	if config.Endpoint == "" {
		config.Endpoint = DefaultServiceEndpoint
	}
	if config.Model == "" {
		config.Model = DefaultServiceModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultServiceTimeout
	}

	return &ServiceClassifier{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// classificationInstructions is the fixed instruction block sent with every
// message. It names the six intent categories and five keyword categories
// and demands a single JSON object.
const classificationInstructions = `You classify a user's message for a personal-memory retrieval system.

Pick exactly ONE intent:
FACTUAL - asks for a specific stored fact ("What is Sarah's phone number?")
NARRATIVE - asks for a story or sequence of events ("Tell me about my trip to Japan")
CONCEPTUAL - general topic the user has notes on ("my thoughts on investing")
RELATIONAL - involves people and relationships ("How is my uncle doing?")
EMOTIONAL - about feelings or emotional states ("When was I last this stressed?")
TASK - asks to do something with stored knowledge ("summarize my meeting notes")

Extract keywords into five categories (empty arrays where none apply):
entities - proper nouns: people, places, organizations
concepts - topic words worth searching on
temporal - time references: today, yesterday, last summer
relational - relationship words: mother, uncle, friend
emotional - emotion words: happy, worried, proud

Respond with ONLY a single JSON object:
{"intent": "...", "keywords": {"entities": [], "concepts": [], "temporal": [], "relational": [], "emotional": []}}

Message: %s

JSON:`

// Classify sends the message to the classification service.
func (s *ServiceClassifier) Classify(ctx context.Context, message string) (Classification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Classification{Intent: IntentConceptual, Keywords: EmptyKeywords()}, nil
	}

	reqBody := generateRequest{
		Model:  s.config.Model,
		Prompt: fmt.Sprintf(classificationInstructions, message),
		Stream: false,
		Format: "json",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Classification{}, rerrors.New(rerrors.ErrCodeInternal, "marshal classification request", err)
	}

	url := s.config.Endpoint + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Classification{}, rerrors.New(rerrors.ErrCodeInternal, "create classification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		code := rerrors.ErrCodeClassifyUnavailable
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			code = rerrors.ErrCodeClassifyTimeout
		}
		return Classification{}, rerrors.New(code, "classification request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Classification{}, rerrors.New(rerrors.ErrCodeClassifyUnavailable,
			fmt.Sprintf("classification service returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Classification{}, rerrors.MalformedResponseError("classification response is not JSON", err)
	}

	return parseClassification(result.Response)
}

// parseClassification validates the model output against the strict schema.
// The text may be wrapped in a markdown code fence.
func parseClassification(text string) (Classification, error) {
	text = stripCodeFence(text)
	if text == "" {
		return Classification{}, rerrors.MalformedResponseError("classification response is empty", nil)
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Classification{}, rerrors.MalformedResponseError("classification payload is not valid JSON", err)
	}

	if payload.Intent == nil {
		return Classification{}, rerrors.MalformedResponseError("classification payload missing intent", nil)
	}
	intent := strings.ToUpper(strings.TrimSpace(*payload.Intent))
	if !ValidIntent(intent) {
		return Classification{}, rerrors.MalformedResponseError(
			fmt.Sprintf("classification payload has invalid intent %q", *payload.Intent), nil)
	}
	if payload.Keywords == nil {
		return Classification{}, rerrors.MalformedResponseError("classification payload missing keywords", nil)
	}

	keywords := *payload.Keywords
	keywords.normalize()

	return Classification{Intent: Intent(intent), Keywords: keywords}, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Available checks if the classification service is reachable.
func (s *ServiceClassifier) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var _ Classifier = (*ServiceClassifier)(nil)
