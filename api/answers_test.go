package api

import "testing"

func TestParseAnswerValue(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"plain number", "75", 75, false},
		{"percent suffix", "75%", 75, false},
		{"whitespace", "  80 ", 80, false},
		{"percent with space", "80 %", 80, false},
		{"zero", "0", 0, false},
		{"hundred", "100", 100, false},
		{"negative", "-5", 0, true},
		{"over hundred", "101", 0, true},
		{"not a number", "eighty", 0, true},
		{"empty", "", 0, true},
		{"bare percent", "%", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAnswerValue(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseAnswerValue(%q): want error, got %d", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAnswerValue(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ParseAnswerValue(%q): got %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}
