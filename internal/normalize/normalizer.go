package normalize

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
	"plaques2gallery/internal/services/llm"
)

//go:embed query_schema.json
var querySchemaJSON []byte

// ErrNormalizationFailed marks plaques whose text yields no usable query.
// It is terminal: the record fails at the normalization stage.
var ErrNormalizationFailed = errors.New("normalization failed")

// Completer issues a JSON-mode chat completion.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type modelResponse struct {
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	Confidence float64 `json:"confidence"`
}

// Normalizer extracts title and artist from OCR text.
type Normalizer struct {
	completer     Completer
	minConfidence float64
	schema        *jsonschema.Schema
	logger        *slog.Logger
}

// New constructs a Normalizer. Responses below minConfidence are rejected.
func New(completer Completer, minConfidence float64, logger *slog.Logger) (*Normalizer, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("query_schema.json", bytes.NewReader(querySchemaJSON)); err != nil {
		return nil, fmt.Errorf("add query schema: %w", err)
	}
	schema, err := compiler.Compile("query_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile query schema: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{
		completer:     completer,
		minConfidence: minConfidence,
		schema:        schema,
		logger:        logger,
	}, nil
}

// Normalize returns the cleaned query for text. languageHint, when set, is
// passed to the model. Errors are ErrNormalizationFailed except for parent
// context cancellation and rejected credentials, which end the run.
func (n *Normalizer) Normalize(ctx context.Context, text, languageHint string) (records.Query, error) {
	if strings.TrimSpace(text) == "" {
		return records.Query{}, fmt.Errorf("%w: empty OCR text", ErrNormalizationFailed)
	}

	content, err := n.completer.CompleteJSON(ctx, systemPrompt, buildUserPrompt(text, languageHint))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return records.Query{}, ctxErr
		}
		if llm.IsAuthFailure(err) {
			return records.Query{}, services.Wrap(services.ErrConfiguration, "normalization", "complete", "model rejected credentials", err)
		}
		return records.Query{}, fmt.Errorf("%w: model request: %w", ErrNormalizationFailed, err)
	}

	response, err := n.decode(content)
	if err != nil {
		return records.Query{}, fmt.Errorf("%w: %w", ErrNormalizationFailed, err)
	}

	query := records.Query{}
	if response.Title != nil {
		query.Title = cleanField(*response.Title)
	}
	if response.Artist != nil {
		query.Artist = cleanField(*response.Artist)
		if isPlaceholderArtist(query.Artist) {
			query.Artist = ""
		}
	}
	if query.Title == "" {
		return records.Query{}, fmt.Errorf("%w: no title in model response", ErrNormalizationFailed)
	}
	if response.Confidence < n.minConfidence {
		return records.Query{}, fmt.Errorf("%w: confidence %.2f below %.2f for %q",
			ErrNormalizationFailed, response.Confidence, n.minConfidence, query.String())
	}

	logging.WithContext(ctx, n.logger).Debug("query normalized",
		logging.String("query", query.String()),
		logging.Float64("confidence", response.Confidence),
	)
	return query, nil
}

func (n *Normalizer) decode(content string) (modelResponse, error) {
	payload := llm.ExtractJSON(content)
	if payload == "" {
		return modelResponse{}, errors.New("empty model response")
	}
	var generic any
	if err := json.Unmarshal([]byte(payload), &generic); err != nil {
		return modelResponse{}, fmt.Errorf("decode model response: %w", err)
	}
	if err := n.schema.Validate(generic); err != nil {
		return modelResponse{}, fmt.Errorf("model response does not match schema: %w", err)
	}
	var response modelResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		return modelResponse{}, fmt.Errorf("decode model response: %w", err)
	}
	return response, nil
}
