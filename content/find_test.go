package content

import "testing"

func TestFindChapter(t *testing.T) {
	chapters := []Chapter{
		{Number: 1, DisplayName: "Al-Faatiha"},
		{Number: 18, DisplayName: "Al-Kahf"},
		{Number: 36, DisplayName: "Yaseen"},
		{Number: 114, DisplayName: "An-Naas"},
	}

	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{"114", 114, true},
		{"115", 0, false},
		{"fatiha", 1, true},
		{"Al-Fātiḥa", 1, true},
		{"al faatiha", 1, true},
		{"KAHF", 18, true},
		{"yas", 36, true},
		{"nas", 114, true},
		{"baqara", 0, false},
		{"  ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := FindChapter(chapters, tt.query)
			if ok != tt.wantOK {
				t.Fatalf("FindChapter(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if ok && got.Number != tt.want {
				t.Errorf("FindChapter(%q) = %d, want %d", tt.query, got.Number, tt.want)
			}
		})
	}
}
