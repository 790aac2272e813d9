package ai

import (
	"errors"
	"testing"
)

func TestParseResponse_FencedJSON(t *testing.T) {
	got, err := ParseResponse(Response{Success: true, Data: "```json\n{\"a\":1}\n```"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, ok := got.(map[string]any)
	if !ok || m["a"] != float64(1) {
		t.Fatalf("expected {a:1}, got %#v", got)
	}
}

func TestParseResponse_ProseAroundObject(t *testing.T) {
	data := "Sure! Here is the exam:\n{\"exam\": {\"questions\": [{\"id\": \"q1\"}]}}\nGood luck {students}"
	got, err := ParseResponse(Response{Success: true, Data: data})
	if err == nil {
		t.Fatalf("expected error because the last brace belongs to trailing prose, got %#v", got)
	}

	data = "Sure! Here is the exam:\n{\"exam\": {\"questions\": [{\"id\": \"q1\"}]}}\nGood luck"
	got, err = ParseResponse(Response{Success: true, Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ValidateResponse(got, "exam.questions.0.id") {
		t.Fatalf("expected nested path to resolve, got %#v", got)
	}
}

func TestParseResponse_Failures(t *testing.T) {
	cases := []struct {
		name string
		resp Response
		want error
	}{
		{"unsuccessful", Response{Success: false, Error: "boom"}, ErrUnsuccessful},
		{"empty data", Response{Success: true}, ErrUnsuccessful},
		{"not json", Response{Success: true, Data: "I cannot help with that."}, ErrParse},
		{"broken object", Response{Success: true, Data: "{\"a\": }"}, ErrParse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseResponse(tc.resp)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got != nil {
				t.Fatalf("expected nil value, got %#v", got)
			}
		})
	}
}

func TestValidateResponse(t *testing.T) {
	v := map[string]any{
		"evaluation": map[string]any{"passed": true, "notes": nil},
		"items":      []any{map[string]any{"id": "x"}},
	}

	if !ValidateResponse(v, "evaluation", "evaluation.passed", "evaluation.notes", "items.0.id") {
		t.Fatalf("expected all paths to resolve")
	}
	if ValidateResponse(v, "evaluation.score") {
		t.Fatalf("missing leaf should fail")
	}
	if ValidateResponse(v, "evaluation.passed.deeper") {
		t.Fatalf("descending into a scalar should fail")
	}
	if ValidateResponse(v, "items.3.id") {
		t.Fatalf("out of range index should fail")
	}
	if ValidateResponse("text", "a") || ValidateResponse(nil) {
		t.Fatalf("non-object values should fail")
	}
}

func TestParseRequired(t *testing.T) {
	resp := Response{Success: true, Data: "```\n{\"evaluation\":{\"correctness\":90,\"passed\":true},\"feedback\":\"ok\"}\n```"}

	got, err := ParseRequired(resp, "evaluation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eval := got.(map[string]any)["evaluation"].(map[string]any)
	if eval["passed"] != true || eval["correctness"] != float64(90) {
		t.Fatalf("unexpected value: %#v", got)
	}

	_, err = ParseRequired(resp, "questions")
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	_, err = ParseRequired(Response{Success: true, Data: "42"})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected scalar reply to be rejected, got %v", err)
	}
}

func TestParseRequired_KeepsModelShape(t *testing.T) {
	data := `{"testResults":[{"test":1,"expected":5,"actual":"5"}],"improvements":[{"line":"12"}],"evaluation":{"passed":true},"riskLevel":"low"}`

	got, err := ParseRequired(Response{Success: true, Data: data}, "evaluation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := got.(map[string]any)
	if m["riskLevel"] != "low" {
		t.Fatalf("expected unknown keys to be kept, got %#v", m)
	}
	if r := m["testResults"].([]any)[0].(map[string]any); r["expected"] != float64(5) {
		t.Fatalf("expected numeric expected value to survive, got %#v", r)
	}
	if imp := m["improvements"].([]any)[0].(map[string]any); imp["line"] != "12" {
		t.Fatalf("expected string line to survive, got %#v", imp)
	}
	if _, ok := m["evaluation"].(map[string]any)["correctness"]; ok {
		t.Fatalf("absent scores must not be filled in: %#v", m["evaluation"])
	}
}
