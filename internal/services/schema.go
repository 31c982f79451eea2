package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

func questionListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString},
				"criteria": {Type: genai.TypeString},
			},
			Required: []string{"question", "criteria"},
		},
	}
}

func gradingSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":     {Type: genai.TypeNumber},
			"rationale": {Type: genai.TypeString},
		},
		Required: []string{"score", "rationale"},
	}
}

func reportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suitability":   {Type: genai.TypeString, Enum: []string{"High", "Medium", "Low"}},
			"strengths":     reportListSchema(),
			"weaknesses":    reportListSchema(),
			"final_comment": {Type: genai.TypeString},
		},
		Required: []string{"suitability", "strengths", "weaknesses", "final_comment"},
	}
}

// reportListSchema asks for two or three entries. The validator below
// accepts a single entry so a terse reply still yields a report.
func reportListSchema() *genai.Schema {
	return &genai.Schema{
		Type:     genai.TypeArray,
		Items:    &genai.Schema{Type: genai.TypeString},
		MinItems: genai.Ptr[int64](2),
		MaxItems: genai.Ptr[int64](3),
	}
}

var (
	gradingValidator = gojsonschema.NewStringLoader(`{
		"type": "object",
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 10},
			"rationale": {"type": "string"}
		},
		"required": ["score", "rationale"]
	}`)

	reportValidator = gojsonschema.NewStringLoader(`{
		"type": "object",
		"properties": {
			"suitability": {"enum": ["High", "Medium", "Low"]},
			"strengths": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 3},
			"weaknesses": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 3},
			"final_comment": {"type": "string"}
		},
		"required": ["suitability", "strengths", "weaknesses", "final_comment"]
	}`)
)

// validateDocument checks a decoded response against a JSON schema.
func validateDocument(schema gojsonschema.JSONLoader, document any) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate response: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("invalid response: %s", strings.Join(problems, "; "))
}
