// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package seed

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the seed file schema.
const SchemaID = "https://holomush.dev/schemas/seed.schema.json"

// GenerateSchema generates the JSON Schema for seed files from File.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&File{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "accountd seed file"
	schema.Description = "Accounts provisioned by `accountd seed`"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "marshal seed schema")
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Wrapf(err, "parse seed schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("seed.schema.json", doc); err != nil {
		return nil, oops.Wrapf(err, "add seed schema resource")
	}
	sch, err := c.Compile("seed.schema.json")
	if err != nil {
		return nil, oops.Wrapf(err, "compile seed schema")
	}
	return sch, nil
})

// ValidateSchema checks YAML seed data against the seed schema.
func ValidateSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code("SEED_INVALID").Wrap(ErrEmpty)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("SEED_INVALID").Wrapf(err, "invalid YAML")
	}

	// Round-trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("SEED_INVALID").Wrapf(err, "seed data is not representable as JSON")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("SEED_INVALID").Wrapf(err, "re-read seed data")
	}

	sch, err := compiledSchema()
	if err != nil {
		return oops.Code("SEED_SCHEMA_FAILED").Wrap(err)
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("SEED_INVALID").Wrapf(err, "seed file does not match schema")
	}
	return nil
}
