package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the generated editorbridge.yml schema.
const SchemaID = "https://grovetools.dev/schemas/editorbridge.schema.json"

// ReflectSchema builds the JSON Schema of editorbridge.yml from the Config
// types. Known sections reject unknown keys; other top-level keys are
// extensions and are accepted.
func ReflectSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "editorbridge configuration"
	schema.Description = "Schema for editorbridge.yml."
	schema.AdditionalProperties = jsonschema.TrueSchema
	return schema
}

// GenerateSchema returns the indented JSON encoding of ReflectSchema.
func GenerateSchema() ([]byte, error) {
	return json.MarshalIndent(ReflectSchema(), "", "  ")
}
