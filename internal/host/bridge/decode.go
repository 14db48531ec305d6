package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeRef(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}
	var ref Ref
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", false, fmt.Errorf("decode handle: %w", err)
	}
	if ref.ID == "" {
		return "", false, nil
	}
	return ref.ID, true, nil
}

// decodeRefs accepts a list of handles or an index-keyed object of handles,
// which is how older hosts return collections.
func decodeRefs(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []Ref
	if err := json.Unmarshal(raw, &list); err == nil {
		return refIDs(list), nil
	}
	var indexed map[string]Ref
	if err := json.Unmarshal(raw, &indexed); err != nil {
		return nil, fmt.Errorf("decode handle list: %w", err)
	}
	keys := sortedIndexKeys(indexed)
	out := make([]Ref, 0, len(keys))
	for _, key := range keys {
		out = append(out, indexed[key])
	}
	return refIDs(out), nil
}

func refIDs(refs []Ref) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func decodeString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}
	return s, nil
}

// decodeStringList accepts a list of strings, an index-keyed object of
// strings, or a list of {"Name": ...} records (render presets on some hosts).
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err == nil {
		out := make([]string, 0, len(records))
		for _, rec := range records {
			if name, ok := rec["Name"].(string); ok && name != "" {
				out = append(out, name)
			}
		}
		return out, nil
	}
	var indexed map[string]string
	if err := json.Unmarshal(raw, &indexed); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	keys := sortedIndexKeys(indexed)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, indexed[key])
	}
	return out, nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("decode int: %w", err)
	}
	return int(f), nil
}

// decodeTruthy applies the scripting runtime's truthiness: null, false, 0,
// "" and empty collections are false.
func decodeTruthy(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return v != nil
	}
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return m, nil
}

func sortedIndexKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
