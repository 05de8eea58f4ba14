package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonreflect "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/llm"
)

var printer = message.NewPrinter(language.English)

// Validator holds the JSON Schema reflected from T and its compiled form.
type Validator[T any] struct {
	name     string
	document string
	compiled *jsonschema.Schema
}

// New reflects T into a JSON Schema document and compiles it. Struct fields
// are required unless tagged omitempty; extra properties are tolerated.
func New[T any](name string) (*Validator[T], error) {
	reflector := &jsonreflect.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var zero T
	reflected := reflector.Reflect(zero)
	encoded, err := json.MarshalIndent(reflected, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema %s: encode: %w", name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("schema %s: parse: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("schema %s: add resource: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile: %w", name, err)
	}
	return &Validator[T]{name: name, document: string(encoded), compiled: compiled}, nil
}

// MustNew is New for package-level schemas built from static types.
func MustNew[T any](name string) *Validator[T] {
	v, err := New[T](name)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the resource name the schema was compiled under.
func (v *Validator[T]) Name() string {
	return v.name
}

// Document returns the indented JSON Schema, suitable for embedding in prompts.
func (v *Validator[T]) Document() string {
	return v.document
}

// Decode parses a model response into T. The response must be one JSON value
// (optionally inside a Markdown code fence) that satisfies the schema; anything
// else is reported as services.ErrMalformedResponse.
func (v *Validator[T]) Decode(raw string) (T, error) {
	var out T
	var instance any
	if err := llm.DecodeStrictJSON(raw, &instance); err != nil {
		return out, services.Wrap(services.ErrMalformedResponse, "", "decode "+v.name, "invalid json", err)
	}
	if problems := v.Problems(instance); len(problems) > 0 {
		return out, services.Wrap(services.ErrMalformedResponse, "", "decode "+v.name, strings.Join(problems, "; "), nil)
	}
	if err := llm.DecodeStrictJSON(raw, &out); err != nil {
		return out, services.Wrap(services.ErrMalformedResponse, "", "decode "+v.name, "type mismatch", err)
	}
	return out, nil
}

// Problems validates an already-decoded instance and returns one message per
// failing leaf, or nil when the instance conforms.
func (v *Validator[T]) Problems(instance any) []string {
	err := v.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var problems []string
	collectProblems(ve, &problems)
	return problems
}

func collectProblems(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, cause := range ve.Causes {
		collectProblems(cause, problems)
	}
}
