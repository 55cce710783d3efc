package slots

import (
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/healthagent/types"
)

const OperationAdd = "add"

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// apply runs RFC6902 operations against the JSON form of current.
func apply(current types.SlotSet, ops []Operation) (types.SlotSet, error) {
	if len(ops) == 0 {
		return current, nil
	}

	currentJSON, err := sonic.Marshal(current)
	if err != nil {
		return current, fmt.Errorf("failed to marshal current slots: %w", err)
	}
	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return current, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return current, fmt.Errorf("failed to decode patch: %w", err)
	}
	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return current, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result types.SlotSet
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return current, fmt.Errorf("patch produced an invalid slot set: %w", err)
	}
	return result, nil
}
