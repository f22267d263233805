// SPDX-License-Identifier: MPL-2.0

package definition

// Merge combines an existing definition tree with an incoming one according
// to op. Neither input is modified; the result shares no maps or slices with
// them. A nil old tree behaves like OpCreate.
//
// Array policy: OpModify replaces arrays, OpExtend appends the incoming
// elements after the existing ones without removing duplicates.
func Merge(old, incoming map[string]any, op Operation) map[string]any {
	if old == nil {
		return Clone(incoming)
	}
	switch op {
	case OpModify:
		return mergeObjects(old, incoming, false)
	case OpExtend:
		return mergeObjects(old, incoming, true)
	default:
		return Clone(incoming)
	}
}

func mergeObjects(old, incoming map[string]any, extend bool) map[string]any {
	out := Clone(old)
	for k, nv := range incoming {
		ov, exists := out[k]
		if !exists {
			out[k] = cloneValue(nv)
			continue
		}
		out[k] = mergeValues(ov, nv, extend)
	}
	return out
}

func mergeValues(ov, nv any, extend bool) any {
	switch n := nv.(type) {
	case map[string]any:
		if o, ok := ov.(map[string]any); ok {
			return mergeObjects(o, n, extend)
		}
	case []any:
		if o, ok := ov.([]any); ok && extend {
			combined := make([]any, 0, len(o)+len(n))
			combined = append(combined, o...)
			for _, v := range n {
				combined = append(combined, cloneValue(v))
			}
			return combined
		}
	}
	return cloneValue(nv)
}

// Clone returns a deep copy of a JSON object tree.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
