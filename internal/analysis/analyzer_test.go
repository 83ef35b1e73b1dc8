package analysis

import (
	"errors"
	"slices"
	"testing"

	"harshagw/qryeval/internal/errs"
)

func TestSimple_Analyze(t *testing.T) {
	tokens := NewSimple().Analyze("Hello, World! go-lang")
	want := []TokenPosition{
		{Token: "hello", Position: 0},
		{Token: "world", Position: 1},
		{Token: "go", Position: 2},
		{Token: "lang", Position: 3},
	}
	if !slices.Equal(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestSimple_Empty(t *testing.T) {
	if tokens := NewSimple().Analyze(" ,.; "); len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
}

func TestEnglish_StemsAndDropsStopWords(t *testing.T) {
	tokens := NewEnglish().Analyze("The running dogs of war")
	want := []TokenPosition{
		{Token: "run", Position: 1},
		{Token: "dog", Position: 2},
		{Token: "war", Position: 4},
	}
	if !slices.Equal(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestEnglish_HyphenFanOut(t *testing.T) {
	got := Terms(NewEnglish(), "apple-pie")
	want := []string{"appl", "pie"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEnglish_StopWordOnly(t *testing.T) {
	a := NewEnglish()
	if got := Terms(a, "the"); len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
	if !a.IsStopWord("The") {
		t.Errorf("expected The to be a stop word")
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"simple", "English"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("klingon"); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("ByName(klingon): got %v, want ErrConfig", err)
	}
}
