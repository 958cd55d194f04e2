package jack_test

import (
	"strings"
	"testing"

	"github.com/hackforge/n2t/pkg/jack"
)

func TestTokenizerLexing(t *testing.T) {
	test := func(source string, expected []jack.Token, fail bool) {
		tok, err := jack.NewTokenizer(strings.NewReader(source))
		if (err != nil) != fail {
			t.Fatalf("unexpected error state for %q: %v", source, err)
		}
		if fail {
			return
		}

		got := []jack.Token{}
		for tok.HasMore() {
			tok.Advance()
			got = append(got, tok.Current())
		}

		if len(got) != len(expected) {
			t.Fatalf("expected %d tokens, got %d for %q", len(expected), len(got), source)
		}
		for i := range expected {
			if got[i].Type != expected[i].Type || got[i].Text != expected[i].Text {
				t.Errorf("token %d: expected %+v, got %+v", i, expected[i], got[i])
			}
		}
	}

	t.Run("Keywords and symbols", func(t *testing.T) {
		test("class Main {}", []jack.Token{
			{Type: jack.TokKeyword, Text: "class"},
			{Type: jack.TokIdentifier, Text: "Main"},
			{Type: jack.TokSymbol, Text: "{"},
			{Type: jack.TokSymbol, Text: "}"},
		}, false)
	})

	t.Run("Int and string constants", func(t *testing.T) {
		test(`let x = 42; let s = "hi";`, []jack.Token{
			{Type: jack.TokKeyword, Text: "let"},
			{Type: jack.TokIdentifier, Text: "x"},
			{Type: jack.TokSymbol, Text: "="},
			{Type: jack.TokIntConst, Text: "42", IntVal: 42},
			{Type: jack.TokSymbol, Text: ";"},
			{Type: jack.TokKeyword, Text: "let"},
			{Type: jack.TokIdentifier, Text: "s"},
			{Type: jack.TokSymbol, Text: "="},
			{Type: jack.TokStringConst, Text: "hi"},
			{Type: jack.TokSymbol, Text: ";"},
		}, false)
	})

	t.Run("Comments are stripped", func(t *testing.T) {
		test("// a line comment\nvar int i; /* block\ncomment */ /** doc */", []jack.Token{
			{Type: jack.TokKeyword, Text: "var"},
			{Type: jack.TokKeyword, Text: "int"},
			{Type: jack.TokIdentifier, Text: "i"},
			{Type: jack.TokSymbol, Text: ";"},
		}, false)
	})

	t.Run("Unterminated constructs and invalid lexemes fail", func(t *testing.T) {
		test(`"unterminated`, nil, true)
		test("/* unterminated", nil, true)
		test("32768", nil, true) // out of the 0..32767 range
		test("let x = @;", nil, true)
	})
}

func TestTokenizerRestartableCursor(t *testing.T) {
	tok, err := jack.NewTokenizer(strings.NewReader("let x = 1;"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tok.Advance()
	if tok.Current().Text != "let" {
		t.Fatalf("expected first token 'let', got %q", tok.Current().Text)
	}
	if peeked := tok.Peek(0); peeked.Text != "x" {
		t.Fatalf("expected Peek(0) to yield 'x', got %q", peeked.Text)
	}

	tok.Reset()
	if tok.Current().Text != "" {
		t.Fatalf("expected zero Token after Reset, got %q", tok.Current().Text)
	}
	tok.Advance()
	if tok.Current().Text != "let" {
		t.Fatalf("expected Reset to rewind to first token, got %q", tok.Current().Text)
	}
}
