package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names accepted by SchemaService.Validate. Each maps to an embedded
// JSON Schema document compiled once at construction.
const (
	SchemaCreateActor = "create-actor"
	SchemaCreateMovie = "create-movie"
	SchemaUpdateActor = "update-actor"
	SchemaUpdateMovie = "update-movie"
)

// SchemaService validates request bodies against the fixed endpoint schemas.
type SchemaService struct {
	compiled map[string]*santhosh.Schema
}

func NewSchemaService() (*SchemaService, error) {
	names := []string{SchemaCreateActor, SchemaCreateMovie, SchemaUpdateActor, SchemaUpdateMovie}
	compiled := make(map[string]*santhosh.Schema, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		sch, err := compileSchema(name, raw)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		compiled[name] = sch
	}
	return &SchemaService{compiled: compiled}, nil
}

// Validate checks body against the named schema. Returns
// *domain.ErrSchemaViolation on failure; an unknown schema name is a
// programming error and surfaces as a plain error.
func (s *SchemaService) Validate(schema string, body json.RawMessage) error {
	sch, ok := s.compiled[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return &domain.ErrSchemaViolation{Errors: []string{"body must be valid json"}}
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrSchemaViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrSchemaViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func compileSchema(name string, schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(name+".json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(name + ".json")
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}
