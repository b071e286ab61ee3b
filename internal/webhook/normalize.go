package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind names the JSON type a field is expected to hold.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "bool"
	FieldObject FieldKind = "object"
	FieldArray  FieldKind = "array"
)

// FieldSpec is one required field in an expected response shape.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// Normalize validates raw against the expected shape and returns the decoded
// object. Shape mismatches come back as a CallError value, never a panic.
func Normalize(raw json.RawMessage, fields ...FieldSpec) (map[string]any, *CallError) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, malformed(fields)
	}
	for _, f := range fields {
		val, ok := obj[f.Name]
		if !ok || !matchesKind(val, f.Kind) {
			return nil, malformed(fields)
		}
	}
	return obj, nil
}

// ChatReply extracts the reply text from a chat webhook response, which must
// carry a string field "output".
func ChatReply(raw json.RawMessage) (string, *CallError) {
	obj, err := Normalize(raw, FieldSpec{Name: "output", Kind: FieldString})
	if err != nil {
		return "", err
	}
	return obj["output"].(string), nil
}

func matchesKind(val any, kind FieldKind) bool {
	switch kind {
	case FieldString:
		_, ok := val.(string)
		return ok
	case FieldNumber:
		_, ok := val.(float64)
		return ok
	case FieldBool:
		_, ok := val.(bool)
		return ok
	case FieldObject:
		_, ok := val.(map[string]any)
		return ok
	case FieldArray:
		_, ok := val.([]any)
		return ok
	default:
		return false
	}
}

func malformed(fields []FieldSpec) *CallError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", string(f.Kind), f.Name))
	}
	return &CallError{
		Kind:    KindUnknown,
		Message: fmt.Sprintf("Malformed response from server. Expected %s", strings.Join(parts, ", ")),
	}
}
