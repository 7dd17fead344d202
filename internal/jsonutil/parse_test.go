package jsonutil

import "testing"

type verdict struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[verdict](`{"score": 90, "note": "clean"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 90 || got.Note != "clean" {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSONFenced(t *testing.T) {
	raw := "```json\n{\"score\": 72, \"note\": \"shadow issue\"}\n```"
	got, err := ParseJSON[verdict](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 72 {
		t.Errorf("score = %d, want 72", got.Score)
	}
}

func TestParseJSONEmbeddedInProse(t *testing.T) {
	raw := "Here is my assessment:\n{\"score\": 55, \"note\": \"watermark remains\"}\nLet me know if you need more detail."
	got, err := ParseJSON[verdict](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Note != "watermark remains" {
		t.Errorf("note = %q", got.Note)
	}
}

func TestExtractJSONStopsAtBalance(t *testing.T) {
	// Trailing prose containing a stray brace must not extend the value.
	raw := `{"score": 61} and that concludes the review }`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"score": 61}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	raw := `{"note": "the overlay said {50% OFF}", "score": 40}`
	got, err := ParseJSON[verdict](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 40 {
		t.Errorf("score = %d, want 40", got.Score)
	}
}

func TestExtractJSONUnbalanced(t *testing.T) {
	if _, err := ExtractJSON(`{"score": 10`); err == nil {
		t.Error("expected error for an unterminated value")
	}
}

func TestParseJSONNoContent(t *testing.T) {
	if _, err := ParseJSON[verdict]("no json here at all"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestParseJSONInvalid(t *testing.T) {
	if _, err := ParseJSON[verdict](`{"score": "not a number"}`); err == nil {
		t.Error("expected error for mismatched types")
	}
}

func TestStripMarkdownFencesPassThrough(t *testing.T) {
	if got := StripMarkdownFences("plain text"); got != "plain text" {
		t.Errorf("got %q", got)
	}
}
