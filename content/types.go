package content

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("chapter not found")
	ErrInvalidDetails = errors.New("invalid chapter details")
)

// Chapter is one entry of the book's table of contents.
type Chapter struct {
	Number      int    `json:"number"`
	DisplayName string `json:"display_name"`
	ArabicName  string `json:"arabic_name,omitempty"`
	Meaning     string `json:"meaning,omitempty"`
	VerseCount  int    `json:"verse_count"`
}

// Verse is one recited verse.
type Verse struct {
	GlobalID       int `json:"global_id"`
	IndexInChapter int `json:"index_in_chapter"`
	ChapterNumber  int `json:"chapter_number"`
	PageNumber     int `json:"page_number"`

	// AudioURL is the per-verse resource, always present as a fallback.
	AudioURL string `json:"audio_url,omitempty"`

	// StartMs and EndMs are offsets into the chapter-level resource. Only
	// meaningful when the owning Details carries a ChapterAudioURL.
	StartMs int `json:"start_ms,omitempty"`
	EndMs   int `json:"end_ms,omitempty"`

	Text        string `json:"text,omitempty"`
	Translation string `json:"translation,omitempty"`
}

// Details is the full payload for one chapter as seen by one narrator.
type Details struct {
	Number          int     `json:"number"`
	DisplayName     string  `json:"display_name"`
	Verses          []Verse `json:"verses"`
	ChapterAudioURL string  `json:"chapter_audio_url,omitempty"`
}

// Timed reports whether the chapter plays from a single resource with
// per-verse offsets.
func (d *Details) Timed() bool {
	return d.ChapterAudioURL != ""
}

// Validate checks the verse list invariants: contiguous 1-based indices,
// non-decreasing offsets when timed, and a per-verse resource on every verse
// when not timed.
func (d *Details) Validate() error {
	if len(d.Verses) == 0 {
		return fmt.Errorf("%w: chapter %d has no verses", ErrInvalidDetails, d.Number)
	}

	prevStart, prevEnd := 0, 0
	for i, v := range d.Verses {
		if v.IndexInChapter != i+1 {
			return fmt.Errorf("%w: chapter %d verse at position %d has index %d",
				ErrInvalidDetails, d.Number, i, v.IndexInChapter)
		}
		if d.Timed() {
			if v.EndMs < v.StartMs {
				return fmt.Errorf("%w: chapter %d verse %d ends before it starts",
					ErrInvalidDetails, d.Number, v.IndexInChapter)
			}
			if v.StartMs < prevStart || v.EndMs < prevEnd {
				return fmt.Errorf("%w: chapter %d verse %d is timed before verse %d",
					ErrInvalidDetails, d.Number, v.IndexInChapter, i)
			}
			prevStart, prevEnd = v.StartMs, v.EndMs
			continue
		}
		if v.AudioURL == "" {
			return fmt.Errorf("%w: chapter %d verse %d has no audio",
				ErrInvalidDetails, d.Number, v.IndexInChapter)
		}
	}
	return nil
}

// Source supplies chapter data. Repeated calls with the same arguments must
// return the same verse ordering and global IDs.
type Source interface {
	ChapterList(ctx context.Context) ([]Chapter, error)
	ChapterDetails(ctx context.Context, number int, narrator string) (*Details, error)
}
