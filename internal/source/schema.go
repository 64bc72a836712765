package source

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrSnapshotInvalid marks a portfolio snapshot that cannot be reconciled.
var ErrSnapshotInvalid = errors.New("portfolio snapshot invalid")

//go:embed snapshot.schema.yaml
var snapshotSchemaYAML []byte

var (
	schemaOnce     sync.Once
	snapshotSchema *jsonschema.Schema
	schemaErr      error
)

// ValidateSnapshot checks the document shape before it reaches the reconciliation.
func ValidateSnapshot(data []byte) error {
	schema, err := loadSnapshotSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after document", ErrSnapshotInvalid)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	return nil
}

func loadSnapshotSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		snapshotSchema, schemaErr = compileSchema(snapshotSchemaYAML)
	})
	return snapshotSchema, schemaErr
}

// compileSchema 把 YAML 写的 schema 转成 JSON 再编译。
func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse snapshot schema failed: %w", err)
	}
	js, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(string(js))); err != nil {
		return nil, err
	}
	return compiler.Compile("snapshot.json")
}
