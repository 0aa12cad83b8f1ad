package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	schemagen "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"NewsAnalyst/internal/ports"
)

// structured couples a reply type with its JSON Schema: the schema is sent to the
// model as the requested response format and used again to validate the reply.
type structured[T any] struct {
	schema   ports.ResponseSchema
	compiled *jsonschema.Schema
}

func newStructured[T any](name, description string) (*structured[T], error) {
	reflector := schemagen.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s schema: %w", name, err)
	}

	compilerDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("load %s schema: %w", name, err)
	}
	location := "mem://newsanalyst/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(location, compilerDoc); err != nil {
		return nil, fmt.Errorf("register %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}

	return &structured[T]{
		schema:   ports.ResponseSchema{Name: name, Description: description, Schema: doc},
		compiled: compiled,
	}, nil
}

func mustStructured[T any](name, description string) *structured[T] {
	s, err := newStructured[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

// options returns base generation options requesting this schema.
func (s *structured[T]) options(base ports.InferenceOptions) ports.InferenceOptions {
	schema := s.schema
	base.Schema = &schema
	return base
}

// decode extracts the JSON object from a model reply, validates it and unmarshals it.
func (s *structured[T]) decode(text string) (T, error) {
	var out T
	body, err := extractJSON(text)
	if err != nil {
		return out, err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("parse reply: %w", err)
	}
	if err := s.compiled.Validate(inst); err != nil {
		return out, fmt.Errorf("reply does not match %s schema: %w", s.schema.Name, err)
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose from a model reply.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("reply contains no JSON object")
	}
	return text[start : end+1], nil
}
