package logging

import "helperd/config"

const (
	keyDebugOnly = "debug_only"
	keyHandlers  = "handlers"
	keyLoggers   = "loggers"
	keyRoot      = "root"
)

// StripDebugOnly prepares an effective logging configuration for handler
// construction. The debug_only marker is not a real handler attribute, so it
// is always removed. When interactive is false every handler carrying a true
// marker is removed outright, along with each logger's (and the root's)
// reference to it, so no dangling handler names remain.
func StripDebugOnly(cfg map[string]any, interactive bool) map[string]any {
	out := config.CloneMap(cfg)
	handlers, _ := out[keyHandlers].(map[string]any)

	var removed []string
	for name, raw := range handlers {
		handler, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		marker, present := handler[keyDebugOnly]
		if !present {
			continue
		}
		delete(handler, keyDebugOnly)
		if !interactive && marker == true {
			removed = append(removed, name)
		}
	}

	for _, name := range removed {
		delete(handlers, name)
		if loggers, ok := out[keyLoggers].(map[string]any); ok {
			for _, raw := range loggers {
				if logger, ok := raw.(map[string]any); ok {
					dropHandlerRef(logger, name)
				}
			}
		}
		if root, ok := out[keyRoot].(map[string]any); ok {
			dropHandlerRef(root, name)
		}
	}
	return out
}

func dropHandlerRef(section map[string]any, name string) {
	refs, ok := section[keyHandlers].([]any)
	if !ok {
		return
	}
	kept := make([]any, 0, len(refs))
	for _, ref := range refs {
		if ref != name {
			kept = append(kept, ref)
		}
	}
	section[keyHandlers] = kept
}
