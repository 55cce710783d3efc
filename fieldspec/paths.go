package fieldspec

import (
	"reflect"
	"strings"

	"github.com/tbxark/healthagent/types"
)

// AllowedPaths returns the JSON pointers an extraction result may set for kind.
// Pointers are reflected from SlotSet's json tags and filtered down to the
// kind's declared fields, so exercise slots never leak into a diet record.
func AllowedPaths(kind types.RecordKind) map[string]bool {
	declared := make(map[string]bool)
	for _, f := range Schema(kind) {
		declared[string(f.ID)] = true
	}
	allowed := make(map[string]bool)
	for _, p := range slotPointerPaths() {
		root := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)[0]
		if declared[root] {
			allowed[p] = true
		}
	}
	return allowed
}

func slotPointerPaths() []string {
	paths := make([]string, 0)
	collectPaths(reflect.TypeOf(types.SlotSet{}), "", &paths, make(map[reflect.Type]bool))
	return paths
}

func collectPaths(typ reflect.Type, prefix string, paths *[]string, visited map[reflect.Type]bool) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct || visited[typ] {
		return
	}
	visited[typ] = true
	defer delete(visited, typ)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonFieldName(field)
		if name == "" || name == "-" {
			continue
		}
		path := prefix + "/" + name
		*paths = append(*paths, path)
		collectPaths(field.Type, path, paths, visited)
	}
}

func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return field.Name
}
