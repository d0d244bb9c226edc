package domain

import (
	"strings"
	"testing"
)

func TestEvidenceCodec_RoundTrip(t *testing.T) {
	cases := []struct {
		evidence string
		note     string
	}{
		{"ipfs://QmXyZ", "fixed the parser"},
		{"https://example.com/pr/12", ""},
		{"", "note only"},
	}

	for _, c := range cases {
		encoded, err := EncodeEvidence(c.evidence, c.note)
		if err != nil {
			t.Fatalf("EncodeEvidence(%q, %q): %v", c.evidence, c.note, err)
		}
		evidence, note := DecodeEvidence(encoded)
		if evidence != c.evidence || note != c.note {
			t.Errorf("round trip (%q, %q) -> (%q, %q)", c.evidence, c.note, evidence, note)
		}
	}
}

func TestDecodeEvidence_NoSeparator(t *testing.T) {
	evidence, note := DecodeEvidence("bare-evidence-string")
	if evidence != "bare-evidence-string" {
		t.Errorf("evidence = %q", evidence)
	}
	if note != "" {
		t.Errorf("note = %q, want empty", note)
	}
}

func TestDecodeEvidence_SplitsOnFirstSeparator(t *testing.T) {
	evidence, note := DecodeEvidence("ref|a note with | inside")
	if evidence != "ref" {
		t.Errorf("evidence = %q", evidence)
	}
	if note != "a note with | inside" {
		t.Errorf("note = %q", note)
	}
}

func TestEncodeEvidence_RejectsSeparatorInEvidence(t *testing.T) {
	if _, err := EncodeEvidence("a|b", "note"); err == nil {
		t.Error("expected error for separator in evidence")
	}
}

func TestEncodeEvidence_NoteLimit(t *testing.T) {
	if _, err := EncodeEvidence("ref", strings.Repeat("x", MaxNoteLen)); err != nil {
		t.Errorf("note at limit rejected: %v", err)
	}
	if _, err := EncodeEvidence("ref", strings.Repeat("x", MaxNoteLen+1)); err == nil {
		t.Error("expected error for note over limit")
	}
}
