package fieldspec

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/healthagent/types"
)

var kindTitles = map[types.RecordKind]string{
	types.RecordExercise: "운동 기록",
	types.RecordDiet:     "식단 기록",
}

// JSONSchema returns the JSON schema of the slots a kind collects, for use in
// extraction prompts.
func JSONSchema(kind types.RecordKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	schema := r.Reflect(&types.SlotSet{})
	schema.Title = kindTitles[kind]
	schema.Description = "Only the listed properties may be filled; leave unknown values out."

	raw, err := sonic.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("failed to decode JSON schema: %w", err)
	}

	declared := make(map[string]bool)
	for _, f := range Schema(kind) {
		declared[string(f.ID)] = true
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		for name := range props {
			if !declared[name] {
				delete(props, name)
			}
		}
	}
	delete(doc, "required")

	out, err := sonic.MarshalString(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return out, nil
}
