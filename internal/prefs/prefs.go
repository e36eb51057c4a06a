// Package prefs models the per-user preference document.
//
// The document is a free-form JSON object. Wunjo owns the "todoOrder" key,
// which holds the manual todo ordering per scope; any other keys belong to
// clients and survive round-trips untouched. Saving always merges at the top
// level: incoming keys replace existing ones wholesale, everything else is
// preserved.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/wunjo/internal/order"
)

// OrderKey is the document key holding the per-scope todo ordering.
const OrderKey = "todoOrder"

// Doc is one user's preference document.
type Doc map[string]any

const docSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "Preference document",
	"type": "object",
	"properties": {
		"todoOrder": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": { "type": "string" }
			}
		}
	}
}`

var docSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("preferences.json", strings.NewReader(docSchemaJSON)); err != nil {
		panic(err)
	}
	s, err := c.Compile("preferences.json")
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a document against the preference schema. Unknown keys are
// allowed; only the shape of the keys Wunjo owns is enforced.
func Validate(d Doc) error {
	// Round-trip through JSON so Go-typed values (order.Map, []string)
	// normalize to the generic shapes the validator expects.
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode preferences: %w", err)
	}
	if err := docSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// IsValidationError reports whether err came from schema validation, as
// opposed to an encoding or storage failure.
func IsValidationError(err error) bool {
	var ve *jsonschema.ValidationError
	return errors.As(err, &ve)
}

// Merge returns base overlaid with incoming. Incoming keys replace base keys
// at the top level; base keys absent from incoming are preserved.
func Merge(base, incoming Doc) Doc {
	out := make(Doc, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// OrderMap extracts the todoOrder key as an order.Map. A missing or
// malformed entry yields an empty map; non-string ids are skipped.
func (d Doc) OrderMap() order.Map {
	m := order.Map{}
	raw, ok := d[OrderKey]
	if !ok {
		return m
	}
	switch v := raw.(type) {
	case order.Map:
		return v.Clone()
	case map[string][]string:
		for scope, ids := range v {
			m.Set(scope, ids)
		}
	case map[string]any:
		for scope, entry := range v {
			list, ok := entry.([]any)
			if !ok {
				continue
			}
			ids := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok {
					ids = append(ids, s)
				}
			}
			m[scope] = ids
		}
	}
	return m
}

// WithOrder returns a copy of the document with todoOrder set to m.
func (d Doc) WithOrder(m order.Map) Doc {
	out := make(Doc, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[OrderKey] = m.Clone()
	return out
}
