package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "three terminators",
			input: "A. B! C?",
			want:  []string{"A.", "B!", "C?"},
		},
		{
			name:  "no terminator",
			input: "  hello world  ",
			want:  []string{"hello world"},
		},
		{
			name:  "trailing terminator",
			input: "I always fail.",
			want:  []string{"I always fail."},
		},
		{
			name:  "trailing terminator and whitespace",
			input: "I always fail.   \n",
			want:  []string{"I always fail."},
		},
		{
			name:  "consecutive terminators",
			input: "Why me?!  Nobody cares... Ever.",
			want:  []string{"Why me?!", "Nobody cares...", "Ever."},
		},
		{
			name:  "newlines and tabs as delimiters",
			input: "First one.\n\n\tSecond one!\r\nThird",
			want:  []string{"First one.", "Second one!", "Third"},
		},
		{
			name:  "terminator inside token",
			input: "Pi is 3.14 and that is fine. Really.",
			want:  []string{"Pi is 3.14 and that is fine.", "Really."},
		},
		{
			name:  "duplicate sentences are kept",
			input: "I am a failure. I am a failure.",
			want:  []string{"I am a failure.", "I am a failure."},
		},
		{
			name:  "unicode whitespace",
			input: "One.\u00a0Two.",
			want:  []string{"One.", "Two."},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			input: " \n\t ",
			want:  nil,
		},
		{
			name:  "only terminators",
			input: "... !!! ???",
			want:  []string{"...", "!!!", "???"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for i, s := range got {
				if s == "" {
					t.Errorf("sentence %d is empty", i)
				}
				if s != strings.TrimSpace(s) {
					t.Errorf("sentence %d is not trimmed: %q", i, s)
				}
			}
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	input := "I never do anything right. Everyone hates me! Should I even try?"
	first := Split(input)
	for i := 0; i < 10; i++ {
		if got := Split(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %q, want %q", i, got, first)
		}
	}
}

func TestJoin_RoundTrip(t *testing.T) {
	inputs := []string{
		"A. B! C?",
		"hello world",
		"  I failed the test.\n\nI will fail everything!   Why bother?  ",
		"Wait... what?! OK.",
	}

	for _, input := range inputs {
		joined := Join(Split(input))
		if !reflect.DeepEqual(strings.Fields(joined), strings.Fields(input)) {
			t.Errorf("round trip changed visible content:\n input: %q\n joined: %q", input, joined)
		}
	}
}

func TestVisibleText(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>p{}</style></head>
	<body>
		<p>I always mess things up.</p>
		<script>var x = 1;</script>
		<p>They must think I am stupid.</p>
	</body></html>`

	text, err := VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText failed: %v", err)
	}

	want := "I always mess things up. They must think I am stupid."
	if text != want {
		t.Errorf("VisibleText() = %q, want %q", text, want)
	}

	if got := Split(text); len(got) != 2 {
		t.Errorf("expected 2 sentences from HTML, got %d: %q", len(got), got)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !LooksLikeHTML("<!DOCTYPE html><html><body>x</body></html>") {
		t.Error("expected doctype document to be detected")
	}
	if LooksLikeHTML("I think x < y and that is fine.") {
		t.Error("plain text detected as HTML")
	}
}
