// ABOUTME: Argument extraction helpers for JSON-decoded tool inputs
// ABOUTME: Numbers arrive as float64 from encoding/json and are normalized here

package tools

import "math"

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, *Error) {
	v, ok := args[key]
	if !ok {
		return "", errInvalidArguments("Missing '%s' parameter", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errInvalidArguments("'%s' must be a string", key)
	}
	return s, nil
}

// optionalStringArg extracts an optional string argument, returning "" when absent.
func optionalStringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// optionalBoolArg extracts an optional boolean, returning def when absent.
func optionalBoolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

// int64Arg extracts a required integer argument.
func int64Arg(args map[string]any, key string) (int64, *Error) {
	v, ok, argErr := optionalInt64Arg(args, key)
	if argErr != nil {
		return 0, argErr
	}
	if !ok {
		return 0, errInvalidArguments("Missing '%s' parameter", key)
	}
	return v, nil
}

// optionalInt64Arg extracts an optional integer argument. Non-integral
// numbers are rejected rather than truncated.
func optionalInt64Arg(args map[string]any, key string) (int64, bool, *Error) {
	switch v := args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false, errInvalidArguments("'%s' must be an integer", key)
		}
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	default:
		return 0, false, nil
	}
}
