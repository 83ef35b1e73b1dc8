package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("query 12: %w", Syntaxf("unknown field %q", "abstract"))

	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax in chain, got %v", err)
	}
	if errors.Is(err, ErrConfig) {
		t.Errorf("did not expect ErrConfig in chain")
	}
	want := `query 12: syntax error: unknown field "abstract"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{Syntaxf("x"), ErrSyntax},
		{Configf("x"), ErrConfig},
		{fmt.Errorf("wrap: %w", Constructionf("x")), ErrConstruction},
		{Dataf("x"), ErrData},
		{errors.New("plain"), nil},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestKindName(t *testing.T) {
	if got := KindName(fmt.Errorf("q: %w", Dataf("x"))); got != "data" {
		t.Errorf("got %q, want data", got)
	}
	if got := KindName(errors.New("plain")); got != "other" {
		t.Errorf("got %q, want other", got)
	}
}
