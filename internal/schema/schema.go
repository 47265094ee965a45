// Package schema derives Anthropic tool input schemas from Go structs.
package schema

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// For builds the tool input schema for struct type T from its json and
// jsonschema struct tags.
func For[T any]() anthropic.ToolInputSchemaParam {
	var zero T
	reflected := jsonschema.Reflect(&zero)

	root := rootOf(reflected)
	return anthropic.ToolInputSchemaParam{
		Properties: propertyMap(root),
		Required:   root.Required,
	}
}

// MarshalFor returns the schema for T as raw JSON.
func MarshalFor[T any]() (json.RawMessage, error) {
	return json.Marshal(For[T]())
}

// rootOf unwraps the reflector's $ref indirection: the struct's own schema
// lives under $defs, referenced from the top level.
func rootOf(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref == "" || s.Definitions == nil {
		return s
	}
	for _, def := range s.Definitions {
		if def.Type == "object" {
			return def
		}
	}
	return s
}

// propertyMap flattens the reflector's ordered property map into the plain
// map the API client expects.
func propertyMap(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	out := make(map[string]any, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = fieldSchema(pair.Value)
	}
	return out
}

func fieldSchema(s *jsonschema.Schema) map[string]any {
	field := make(map[string]any)

	if s.Type != "" {
		field["type"] = s.Type
	}
	if s.Description != "" {
		field["description"] = s.Description
	}
	if s.Default != nil {
		field["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		field["enum"] = s.Enum
	}

	// Pointer fields reflect as anyOf with a null branch; surface the
	// concrete branch's type.
	for _, sub := range s.AnyOf {
		if sub.Type != "" && sub.Type != "null" {
			field["type"] = sub.Type
			break
		}
	}

	if s.Properties != nil {
		field["type"] = "object"
		field["properties"] = propertyMap(s)
		if len(s.Required) > 0 {
			field["required"] = s.Required
		}
	}
	if s.Items != nil {
		field["items"] = fieldSchema(s.Items)
	}

	return field
}
