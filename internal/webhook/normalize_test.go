package webhook

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeSuccess(t *testing.T) {
	raw := json.RawMessage(`{"output":"hi","total":3,"nested":{"a":1},"list":[1],"flag":true}`)

	obj, err := Normalize(raw,
		FieldSpec{Name: "output", Kind: FieldString},
		FieldSpec{Name: "total", Kind: FieldNumber},
		FieldSpec{Name: "nested", Kind: FieldObject},
		FieldSpec{Name: "list", Kind: FieldArray},
		FieldSpec{Name: "flag", Kind: FieldBool},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj["output"] != "hi" {
		t.Fatalf("expected output hi, got %v", obj["output"])
	}
}

func TestNormalizeMismatches(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		spec FieldSpec
	}{
		{"missing field", `{"other":1}`, FieldSpec{Name: "output", Kind: FieldString}},
		{"wrong type", `{"output":42}`, FieldSpec{Name: "output", Kind: FieldString}},
		{"not an object", `[1,2,3]`, FieldSpec{Name: "output", Kind: FieldString}},
		{"null value", `{"output":null}`, FieldSpec{Name: "output", Kind: FieldString}},
	}

	for _, tc := range cases {
		_, err := Normalize(json.RawMessage(tc.raw), tc.spec)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if err.Kind != KindUnknown {
			t.Errorf("%s: expected unknown_error, got %s", tc.name, err.Kind)
		}
		if !strings.HasPrefix(err.Message, "Malformed response from server. Expected ") {
			t.Errorf("%s: unexpected message %q", tc.name, err.Message)
		}
	}
}

func TestChatReply(t *testing.T) {
	output, err := ChatReply(json.RawMessage(`{"output":"hello"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "hello" {
		t.Fatalf("expected hello, got %q", output)
	}

	if _, err := ChatReply(json.RawMessage(`{"result":"hello"}`)); err == nil {
		t.Fatal("expected error for missing output field")
	}
}
