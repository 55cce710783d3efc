package slots

import (
	"fmt"
	"sort"

	"github.com/tbxark/healthagent/types"
)

// Validate rejects a partial that names any pointer outside allowed.
// Nested objects are checked one level down ("/nutrition/calories_kcal").
func Validate(incoming types.Partial, allowed map[string]bool) error {
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := "/" + k
		if !allowed[path] {
			return fmt.Errorf("path %q is not in the allowed paths set: %w", path, types.ErrMalformedResponse)
		}
		nested, ok := incoming[k].(map[string]any)
		if !ok {
			continue
		}
		for sub := range nested {
			if !allowed[path+"/"+sub] {
				return fmt.Errorf("path %q is not in the allowed paths set: %w", path+"/"+sub, types.ErrMalformedResponse)
			}
		}
	}
	return nil
}
