package config

// MergeLogging deep-merges a user supplied Logging section onto the built-in
// defaults. Mapping values merge recursively with user values winning on key
// collision; scalar and sequence values replace the default wholesale.
func MergeLogging(user map[string]any) map[string]any {
	return mergeMaps(DefaultLogging(), user)
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	merged := cloneMap(base)
	for key, value := range overlay {
		existing, exists := merged[key]
		baseMap, baseOK := existing.(map[string]any)
		overlayMap, overlayOK := value.(map[string]any)
		if exists && baseOK && overlayOK {
			merged[key] = mergeMaps(baseMap, overlayMap)
			continue
		}
		merged[key] = cloneValue(value)
	}
	return merged
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		dst := make([]any, len(v))
		for i, item := range v {
			dst[i] = cloneValue(item)
		}
		return dst
	default:
		return value
	}
}

// CloneMap returns a deep copy of a configuration mapping so callers can
// mutate the result without touching the source document.
func CloneMap(src map[string]any) map[string]any {
	return cloneMap(src)
}
