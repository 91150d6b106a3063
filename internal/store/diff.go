package store

import (
	"reflect"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/domain"
)

// diffIgnored are bookkeeping paths that change on every write.
var diffIgnored = map[string]bool{
	"version":   true,
	"createdAt": true,
	"updatedAt": true,
}

// Diff returns the field-level changes between two snapshots, keyed by
// dotted JSON path. Arrays compare as whole values; null, empty strings and
// empty collections count as absent. prev may be nil for a new creator.
func Diff(prev, next *domain.Creator) ([]domain.FieldChange, error) {
	before := map[string]any{}
	if prev != nil {
		var err error
		if before, err = flatten(prev); err != nil {
			return nil, err
		}
	}
	after, err := flatten(next)
	if err != nil {
		return nil, err
	}

	changes := make([]domain.FieldChange, 0)
	for path, nv := range after {
		ov, existed := before[path]
		switch {
		case !existed:
			changes = append(changes, domain.FieldChange{Field: path, Type: domain.ChangeAdded, New: nv})
		case !reflect.DeepEqual(ov, nv):
			changes = append(changes, domain.FieldChange{Field: path, Type: domain.ChangeModified, Old: ov, New: nv})
		}
	}
	for path, ov := range before {
		if _, ok := after[path]; !ok {
			changes = append(changes, domain.FieldChange{Field: path, Type: domain.ChangeRemoved, Old: ov})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes, nil
}

func flatten(c *domain.Creator) (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make(map[string]any)
	flattenInto(out, "", doc)
	return out, nil
}

func flattenInto(out map[string]any, prefix string, node map[string]any) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if diffIgnored[path] {
			continue
		}

		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				out[path] = val
			}
		case []any:
			if len(val) > 0 {
				out[path] = val
			}
		case map[string]any:
			flattenInto(out, path, val)
		default:
			out[path] = val
		}
	}
}
