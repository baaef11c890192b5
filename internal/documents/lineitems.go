package documents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripLineItems removes the value at path from a copy of data. Path
// segments are dot separated; a "[]" suffix descends into every element
// of an array, so "products[].landings" drops landings from each product.
func StripLineItems(data ExportData, path string) (ExportData, error) {
	segs := strings.Split(path, ".")
	head, isArray := strings.CutSuffix(segs[0], "[]")

	out := make(ExportData, len(data))
	for k, v := range data {
		out[k] = v
	}

	raw, ok := out[head]
	if !ok {
		return out, nil
	}
	if len(segs) == 1 && !isArray {
		delete(out, head)
		return out, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head, err)
	}
	v = removePath(v, isArray, segs[1:])

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", head, err)
	}
	out[head] = b
	return out, nil
}

func removePath(v any, isArray bool, rest []string) any {
	if isArray {
		items, ok := v.([]any)
		if !ok {
			return v
		}
		for i := range items {
			items[i] = removePath(items[i], false, rest)
		}
		return items
	}

	obj, ok := v.(map[string]any)
	if !ok || len(rest) == 0 {
		return v
	}

	key, nextArray := strings.CutSuffix(rest[0], "[]")
	if len(rest) == 1 && !nextArray {
		delete(obj, key)
		return obj
	}
	if child, ok := obj[key]; ok {
		obj[key] = removePath(child, nextArray, rest[1:])
	}
	return obj
}
