// Package schema holds the JSON Schemas the extraction oracle is
// constrained to, embedded so prompts and validators never drift apart.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed job_fields.schema.json
var jobFieldsText string

//go:embed job_urls_indices.schema.json
var jobURLIndicesText string

// Schema pairs the compact schema text (embedded into system prompts) with
// its compiled validator.
type Schema struct {
	Text     string
	compiled *jsonschema.Schema
}

// Validate checks a decoded JSON value against the schema. The value must
// come from jsonschema.UnmarshalJSON (or Decode) so numbers keep their wire
// representation.
func (s *Schema) Validate(v any) error {
	return s.compiled.Validate(v)
}

// Decode parses raw JSON text into the representation Validate expects.
func Decode(text string) (any, error) {
	return jsonschema.UnmarshalJSON(strings.NewReader(text))
}

var (
	JobFields     = mustCompile("job_fields.schema.json", jobFieldsText)
	JobURLIndices = mustCompile("job_urls_indices.schema.json", jobURLIndicesText)
)

func mustCompile(name, text string) *Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	compiled, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}

	// compact form keeps system prompts small
	compact, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}

	return &Schema{Text: string(compact), compiled: compiled}
}
