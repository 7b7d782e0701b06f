package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoVariants is returned when an API response carries no usable variant array.
var ErrNoVariants = errors.New("no variants")

// FieldError is a single problem found at a field path.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError reports a variant object that does not match the expected record shape.
type SchemaError struct {
	Index  int
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "variant %d does not match schema", e.Index)
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "; %s: %s", fe.Field, fe.Message)
	}
	return sb.String()
}

var textFields = []string{"frame_size", "frame_config", "wheelsize"}

var measurementFields = []string{
	"reach",
	"stack",
	"stack_to_reach",
	"front_center",
	"head_angle",
	"seat_angle_effective",
	"seat_angle_real",
	"top_tube_length",
	"top_tube_horizontal_length",
	"head_tube_length",
	"seat_tube_length",
	"standover_height",
	"chainstay_length",
	"wheel_base",
	"bottom_bracket_offset",
	"bottom_bracket_height",
	"fork_installation_height",
	"fork_offset",
	"fork_trail",
	"travel_rear",
	"travel_front",
}

var (
	variantSchema = mustCompileVariantSchema()
	validate      = validator.New()
)

func variantSchemaDocument() map[string]any {
	properties := map[string]any{
		"id": map[string]any{"type": "integer"},
		"model": map[string]any{
			"type":     "object",
			"required": []string{"url", "brand", "model_name", "year", "type", "has_motor"},
			"properties": map[string]any{
				"url": map[string]any{"type": []string{"string", "null"}},
				"brand": map[string]any{
					"type":       "object",
					"required":   []string{"name"},
					"properties": map[string]any{"name": map[string]any{"type": []string{"string", "null"}}},
				},
				"model_name": map[string]any{"type": []string{"string", "null"}},
				"year":       map[string]any{"type": []string{"integer", "null"}},
				"type":       map[string]any{"type": "string"},
				"has_motor":  map[string]any{"type": []string{"boolean", "null"}},
			},
		},
	}
	required := []string{"model"}
	for _, name := range textFields {
		properties[name] = map[string]any{"type": []string{"string", "number", "null"}}
		required = append(required, name)
	}
	for _, name := range measurementFields {
		properties[name] = map[string]any{"type": []string{"number", "null"}}
		required = append(required, name)
	}
	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": properties,
	}
}

func mustCompileVariantSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(variantSchemaDocument()))
	if err != nil {
		panic(fmt.Sprintf("compile variant schema: %v", err))
	}
	return schema
}

// ParseVariants decodes a comparison API body into typed variants.
//
// A body that is not JSON, or whose "data" field is absent, not an array or
// empty, yields ErrNoVariants. A variant that is present but malformed yields
// a *SchemaError.
func ParseVariants(body []byte) ([]models.Variant, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNoVariants, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, fmt.Errorf("%w: response has no data field", ErrNoVariants)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(envelope.Data, &raw); err != nil {
		return nil, fmt.Errorf("%w: data is not an array: %v", ErrNoVariants, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: data array is empty", ErrNoVariants)
	}

	variants := make([]models.Variant, 0, len(raw))
	for i, item := range raw {
		v, err := parseVariant(i, item)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func parseVariant(index int, raw json.RawMessage) (models.Variant, error) {
	var v models.Variant

	result, err := variantSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return v, &SchemaError{Index: index, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if !result.Valid() {
		se := &SchemaError{Index: index}
		for _, re := range result.Errors() {
			se.Errors = append(se.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return v, se
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &SchemaError{Index: index, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if err := validate.Struct(&v); err != nil {
		se := &SchemaError{Index: index}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				se.Errors = append(se.Errors, FieldError{Field: fe.Namespace(), Message: "failed " + fe.Tag()})
			}
		} else {
			se.Errors = append(se.Errors, FieldError{Field: "(root)", Message: err.Error()})
		}
		return v, se
	}
	return v, nil
}
