package logging

import "testing"

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      string
	}{
		{0, "warn"},
		{1, "warn"},
		{2, "info"},
		{3, "debug"},
		{7, "trace"},
	}
	for _, tt := range tests {
		if got := Level(tt.verbosity); got != tt.want {
			t.Errorf("Level(%d) = %q, want %q", tt.verbosity, got, tt.want)
		}
	}
}

func TestSetup(t *testing.T) {
	for v := 0; v <= 4; v++ {
		if err := Setup(v); err != nil {
			t.Fatalf("Setup(%d): %v", v, err)
		}
	}
	SetupTest()
	Flush()
}
