package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "cmdverify://schema.json"

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

func manifestSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			compiledSchemaErr = err
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

func parseYAML(path string, content []byte) (fileManifest, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fileManifest{}, &Error{
			Message: fmt.Sprintf("cannot parse config file at %s", path),
			Hints:   []string{"Fix the YAML syntax: " + err.Error()},
			Err:     err,
		}
	}
	if doc == nil {
		return fileManifest{}, newError(
			fmt.Sprintf("config file at %s is empty", path),
			"Add at least one entry under checks:, or regenerate the file with `cmdverify init --force`.",
		)
	}
	if err := validateSchema(doc); err != nil {
		return fileManifest{}, &Error{
			Message: fmt.Sprintf("config file at %s does not match the manifest schema", path),
			Hints:   schemaHints(err),
			Err:     err,
		}
	}

	var raw fileManifest
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return fileManifest{}, &Error{
			Message: fmt.Sprintf("cannot parse config file at %s", path),
			Hints:   []string{"Fix the YAML structure: " + err.Error()},
			Err:     err,
		}
	}
	return raw, nil
}

// validateSchema round-trips the YAML document through JSON so the validator
// sees the value types encoding/json would produce.
func validateSchema(doc any) error {
	schema, err := manifestSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("manifest must use string keys: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return err
	}
	return schema.Validate(value)
}

func schemaHints(err error) []string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}
	hints := []string{}
	collectLeafErrors(validationErr, &hints)
	sort.Strings(hints)
	if len(hints) == 0 {
		hints = append(hints, validationErr.Message)
	}
	return hints
}

func collectLeafErrors(err *jsonschema.ValidationError, hints *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*hints = append(*hints, location+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectLeafErrors(cause, hints)
	}
}
