package engine

import (
	"fmt"

	"recital/content"
)

// Queue is the verse list being played. It is never mutated; a new chapter
// replaces it wholesale.
type Queue struct {
	chapter  int
	name     string
	audioURL string
	verses   []content.Verse
}

// NewQueue validates d and copies it into a queue.
func NewQueue(d *content.Details) (*Queue, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil details", content.ErrInvalidDetails)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	verses := make([]content.Verse, len(d.Verses))
	copy(verses, d.Verses)

	return &Queue{
		chapter:  d.Number,
		name:     d.DisplayName,
		audioURL: d.ChapterAudioURL,
		verses:   verses,
	}, nil
}

func (q *Queue) Chapter() int { return q.chapter }

func (q *Queue) Name() string { return q.name }

// ChapterAudioURL is empty for verse-mode queues.
func (q *Queue) ChapterAudioURL() string { return q.audioURL }

func (q *Queue) Len() int { return len(q.verses) }

func (q *Queue) Verse(i int) content.Verse { return q.verses[i] }

// Verses returns a copy of the verse list.
func (q *Queue) Verses() []content.Verse {
	out := make([]content.Verse, len(q.verses))
	copy(out, q.verses)
	return out
}

// Timed reports whether the queue plays in chapter-mode.
func (q *Queue) Timed() bool { return q.audioURL != "" }

func (q *Queue) mode() mode {
	if q.Timed() {
		return chapterMode{}
	}
	return verseMode{}
}
