package analysis

import "testing"

func TestExtractSignal(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      string
		wantFound bool
	}{
		{
			name:      "label on final line",
			text:      "The account looks organic.\nTrust Signal: Positive",
			want:      "Positive",
			wantFound: true,
		},
		{
			name:      "case insensitive",
			text:      "trust signal: red flag",
			want:      "Red Flag",
			wantFound: true,
		},
		{
			name:      "last occurrence wins",
			text:      "I considered Positive but the bio is spammy.\nTrust Signal: Caution",
			want:      "Caution",
			wantFound: true,
		},
		{
			name:      "no label present",
			text:      "The account seems fine overall.",
			want:      "",
			wantFound: false,
		},
		{
			name:      "empty output",
			text:      "",
			want:      "",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractSignal(tt.text, DefaultTrustSignals)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if got != tt.want {
				t.Errorf("signal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractSignalLongerLabelBreaksTies(t *testing.T) {
	// Both labels match at the same position; the longer one must win so a
	// label is never shadowed by its own prefix.
	labels := []string{"Flag", "Flagship"}
	got, found := ExtractSignal("Trust Signal: Flagship", labels)
	if !found || got != "Flagship" {
		t.Fatalf("expected Flagship, got %q (found=%v)", got, found)
	}
}

func TestStripSignalLine(t *testing.T) {
	got := StripSignalLine("Summary paragraph here.\nTrust Signal: Caution")
	if got != "Summary paragraph here." {
		t.Errorf("expected signal line removed, got %q", got)
	}

	got = StripSignalLine("No signal line in this text.")
	if got != "No signal line in this text." {
		t.Errorf("expected text unchanged, got %q", got)
	}

	got = StripSignalLine("Trust Signal: Positive")
	if got != "" {
		t.Errorf("expected empty summary when output is only the label, got %q", got)
	}
}
