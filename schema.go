package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// Level files store positions and blocks as arrays
var (
	positionType = reflect.TypeOf(engine.Position{})
	blockType    = reflect.TypeOf(engine.BlockSpec{})
	teleportType = reflect.TypeOf(engine.TeleportPair{})
)

func coordinateSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "Pixel coordinates [x, y]",
		Items:       &jsonschema.Schema{Type: "integer", Minimum: json.Number("0")},
		MinItems:    uint64Ptr(2),
		MaxItems:    uint64Ptr(2),
	}
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func levelFileMapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case positionType:
		return coordinateSchema()
	case blockType:
		return &jsonschema.Schema{
			Type:        "array",
			Description: "Block [x, y, w, h] or [x, y, w, h, movable]; four-element blocks are static",
			PrefixItems: []*jsonschema.Schema{
				{Type: "integer"},
				{Type: "integer"},
				{Type: "integer"},
				{Type: "integer"},
				{Type: "boolean"},
			},
			MinItems: uint64Ptr(4),
			MaxItems: uint64Ptr(5),
		}
	case teleportType:
		return &jsonschema.Schema{
			Type:        "array",
			Description: "Teleporter pair [[x1, y1], [x2, y2]]",
			Items:       coordinateSchema(),
			MinItems:    uint64Ptr(2),
			MaxItems:    uint64Ptr(2),
		}
	}
	return nil
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Mapper:                    levelFileMapper,
	}
	schema := reflector.Reflect(new(engine.LevelSet))
	schema.Title = "Key and Door Level Set"
	schema.Description = "Validates level set files in the levels directory"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
