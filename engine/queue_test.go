package engine

import (
	"errors"
	"testing"

	"recital/content"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name     string
		details  *content.Details
		wantMode Mode
		wantErr  bool
	}{
		{"verse mode", buildDetails(1, testNarrator, false, 3), ModeVerse, false},
		{"chapter mode", buildDetails(2, testNarrator, true, 3), ModeChapter, false},
		{"nil", nil, ModeIdle, true},
		{"empty", &content.Details{Number: 1}, ModeIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQueue(tt.details)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewQueue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, content.ErrInvalidDetails) {
					t.Errorf("error = %v, want ErrInvalidDetails", err)
				}
				return
			}
			if got := q.mode().kind(); got != tt.wantMode {
				t.Errorf("mode = %v, want %v", got, tt.wantMode)
			}
			if q.Len() != len(tt.details.Verses) || q.Chapter() != tt.details.Number {
				t.Errorf("queue = chapter %d with %d verses", q.Chapter(), q.Len())
			}
		})
	}
}

func TestNewQueueCopiesVerses(t *testing.T) {
	d := buildDetails(1, testNarrator, false, 2)
	q, err := NewQueue(d)
	if err != nil {
		t.Fatal(err)
	}

	d.Verses[0].AudioURL = "changed"
	if q.Verse(0).AudioURL == "changed" {
		t.Error("queue shares the verse slice with its details")
	}

	vs := q.Verses()
	vs[1].AudioURL = "changed"
	if q.Verse(1).AudioURL == "changed" {
		t.Error("Verses() exposes the queue's slice")
	}
}

func TestNextSpeed(t *testing.T) {
	for i, s := range Speeds {
		want := Speeds[(i+1)%len(Speeds)]
		if got := NextSpeed(s); got != want {
			t.Errorf("NextSpeed(%v) = %v, want %v", s, got, want)
		}
	}
	if got := NextSpeed(3); got != 1 {
		t.Errorf("NextSpeed(3) = %v, want 1", got)
	}
	if ValidSpeed(0.9) {
		t.Error("ValidSpeed(0.9) = true")
	}
}
