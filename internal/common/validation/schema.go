package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Shape names a JSON Schema the model is asked to conform to.
type Shape struct {
	Name   string
	Schema map[string]interface{}
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// ValidateDocument checks a decoded document against schema.
func ValidateDocument(schema map[string]interface{}, document interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

// ValidateJSON checks raw JSON bytes against schema.
func ValidateJSON(schema map[string]interface{}, raw []byte) (*ValidationResult, error) {
	if !json.Valid(raw) {
		return &ValidationResult{Errors: []ValidationError{{
			Field: "(root)", Message: "document is not valid JSON", Code: "invalid_json",
		}}}, nil
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out
}

var (
	stringSchema = map[string]interface{}{"type": "string"}
	stringList   = map[string]interface{}{"type": "array", "items": stringSchema}
)

// QualificationShape is the structured-output schema for lead qualification.
var QualificationShape = Shape{
	Name: "lead_qualification_response",
	Schema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"score":               map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
			"reasoning":           map[string]interface{}{"type": "string", "minLength": 10},
			"key_factors":         stringList,
			"recommended_actions": stringList,
			"priority_level":      map[string]interface{}{"type": "string", "enum": []interface{}{"high", "medium", "low"}},
		},
		"required":             []interface{}{"score", "reasoning", "key_factors", "recommended_actions", "priority_level"},
		"additionalProperties": false,
	},
}

// PersonalizationShape is the structured-output schema for message personalization.
var PersonalizationShape = Shape{
	Name: "message_personalization_response",
	Schema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"variants": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"maxItems": 3,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"subject":                 stringSchema,
						"body":                    stringSchema,
						"channel":                 stringSchema,
						"estimated_effectiveness": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
					},
					"required": []interface{}{"subject", "body", "estimated_effectiveness"},
				},
			},
			"personalization_factors": stringList,
			"best_send_time":          map[string]interface{}{"type": []interface{}{"string", "null"}},
			"follow_up_strategy":      stringSchema,
		},
		"required":             []interface{}{"variants", "personalization_factors", "follow_up_strategy"},
		"additionalProperties": false,
	},
}
