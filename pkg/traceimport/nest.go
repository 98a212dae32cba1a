// Conversion between flat dotted attribute keys and the nested attributes blob
// List items keep their own keys flat, so message.role stays one key inside a message
package traceimport

import (
	"sort"
	"strconv"
	"strings"

	"github.com/andrewh/tracelens/pkg/spanattr"
)

// maxListIndex bounds list growth from indexed keys.
const maxListIndex = 10000

// Nest converts flat dotted keys into the nested attributes blob.
// Segments become nested objects up to the first numeric segment, which turns
// the container into a list. The remainder of the key stays flat inside the
// list item. Keys that conflict with an earlier key (in sorted order) are dropped.
func Nest(flat map[string]any) spanattr.AttributeObject {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, k := range keys {
		if k == "" {
			continue
		}
		nestPath(root, strings.Split(k, "."), flat[k])
	}
	return root
}

func nestPath(obj map[string]any, segs []string, v any) bool {
	i := indexSegment(segs)
	if i < 0 {
		for _, s := range segs[:len(segs)-1] {
			var ok bool
			if obj, ok = childObject(obj, s); !ok {
				return false
			}
		}
		return setLeaf(obj, segs[len(segs)-1], v)
	}
	for _, s := range segs[:i-1] {
		var ok bool
		if obj, ok = childObject(obj, s); !ok {
			return false
		}
	}
	return setListItem(obj, segs[i-1], segs[i], segs[i+1:], v)
}

// nestItem places a value inside a list item whose keys stay flat.
func nestItem(item map[string]any, segs []string, v any) bool {
	i := indexSegment(segs)
	if i < 0 {
		return setLeaf(item, strings.Join(segs, "."), v)
	}
	return setListItem(item, strings.Join(segs[:i], "."), segs[i], segs[i+1:], v)
}

func setListItem(parent map[string]any, name, index string, rest []string, v any) bool {
	idx, _ := strconv.Atoi(index)
	var list []any
	switch existing := parent[name].(type) {
	case nil:
		if _, present := parent[name]; present {
			return false
		}
	case []any:
		list = existing
	default:
		return false
	}
	for len(list) <= idx {
		list = append(list, nil)
	}
	parent[name] = list

	if len(rest) == 0 {
		if list[idx] != nil {
			return false
		}
		list[idx] = v
		return true
	}
	item, ok := list[idx].(map[string]any)
	if !ok {
		if list[idx] != nil {
			return false
		}
		item = map[string]any{}
		list[idx] = item
	}
	return nestItem(item, rest, v)
}

func childObject(obj map[string]any, key string) (map[string]any, bool) {
	existing, present := obj[key]
	if !present {
		child := map[string]any{}
		obj[key] = child
		return child, true
	}
	child, ok := existing.(map[string]any)
	return child, ok
}

func setLeaf(obj map[string]any, key string, v any) bool {
	if _, present := obj[key]; present {
		return false
	}
	obj[key] = v
	return true
}

// indexSegment returns the position of the first list index segment, or -1.
// A leading numeric segment has no container and is treated as a plain key.
func indexSegment(segs []string) int {
	for i := 1; i < len(segs); i++ {
		if isIndex(segs[i]) {
			return i
		}
	}
	return -1
}

func isIndex(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, _ := strconv.Atoi(s)
	return n <= maxListIndex
}

// Flatten is the inverse of Nest. Lists of objects are expanded into indexed
// keys; lists of scalars and values inside list items are kept as values.
func Flatten(obj spanattr.AttributeObject) map[string]any {
	out := map[string]any{}
	flattenObject(out, "", obj)
	return out
}

func flattenObject(out map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := joinKey(prefix, k)
		switch val := v.(type) {
		case map[string]any:
			if len(val) == 0 {
				out[key] = val
				continue
			}
			flattenObject(out, key, val)
		case []any:
			flattenList(out, key, val)
		default:
			out[key] = v
		}
	}
}

func flattenItem(out map[string]any, prefix string, item map[string]any) {
	for k, v := range item {
		key := joinKey(prefix, k)
		if list, ok := v.([]any); ok {
			flattenList(out, key, list)
			continue
		}
		out[key] = v
	}
}

func flattenList(out map[string]any, key string, list []any) {
	if !hasObjects(list) {
		out[key] = list
		return
	}
	for i, el := range list {
		indexed := key + "." + strconv.Itoa(i)
		switch item := el.(type) {
		case nil:
		case map[string]any:
			flattenItem(out, indexed, item)
		default:
			out[indexed] = el
		}
	}
}

func hasObjects(list []any) bool {
	for _, el := range list {
		if _, ok := el.(map[string]any); ok {
			return true
		}
	}
	return false
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}
