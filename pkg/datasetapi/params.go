package datasetapi

// IntParam reads a validated integer parameter, falling back to def when absent.
func IntParam(params map[string]any, name string, def int) int {
	if v, ok := params[name].(int); ok {
		return v
	}
	return def
}

// BoolParam reads a validated boolean parameter.
func BoolParam(params map[string]any, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}
