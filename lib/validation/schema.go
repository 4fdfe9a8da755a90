package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"reeldreams/models"
)

// MovieListSchema defines the JSON schema for the persisted movie slot.
// Applying it at the persistence boundary guarantees that a restore yields
// either fully-typed records or a structured rejection, never a
// partially-typed object.
var MovieListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"title": {"type": "string", "minLength": 1},
			"watched": {"type": "boolean"},
			"createdAt": {"type": "integer"},
			"watchedAt": {"type": ["integer", "null"]},
			"rating": {"type": ["integer", "null"], "minimum": 1, "maximum": 5},
			"notes": {"type": ["string", "null"]}
		},
		"required": ["id", "title", "watched", "createdAt"],
		"additionalProperties": false
	}
}`

// SuggestionsSchema defines the JSON schema for model suggestion responses.
// Shape only: an object holding an array of title strings.
var SuggestionsSchema = `{
	"type": "object",
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {"type": "string"},
			"maxItems": 25
		}
	},
	"required": ["suggestions"],
	"additionalProperties": false
}`

// SuggestionsResponse represents the complete response from the model.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func validate(schema string, jsonData []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}

// ValidateAndParseMovies validates and parses a persisted movie payload.
func ValidateAndParseMovies(jsonData []byte) ([]models.Movie, error) {
	if err := validate(MovieListSchema, jsonData); err != nil {
		return nil, err
	}

	var movies []models.Movie
	if err := json.Unmarshal(jsonData, &movies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return movies, nil
}

// ValidateAndParseSuggestions validates and parses a model suggestion
// response.
func ValidateAndParseSuggestions(jsonData []byte) (*SuggestionsResponse, error) {
	if err := validate(SuggestionsSchema, jsonData); err != nil {
		return nil, err
	}

	var response SuggestionsResponse
	if err := json.Unmarshal(jsonData, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return &response, nil
}

// SanitizeSuggestions trims whitespace and removes empty titles from a
// suggestion response.
func SanitizeSuggestions(response *SuggestionsResponse) {
	var clean []string
	for _, title := range response.Suggestions {
		if strings.TrimSpace(title) != "" {
			clean = append(clean, strings.TrimSpace(title))
		}
	}
	response.Suggestions = clean
}
