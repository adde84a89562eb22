package engine

import (
	"context"
	"errors"
	"time"

	"recital/content"
)

var (
	ErrUnsupportedSpeed = errors.New("unsupported playback speed")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrClosed           = errors.New("engine is closed")
)

// AudioHandle is one audio-decoding resource. Load is asynchronous; the
// callbacks fire from the handle's own goroutines and never from inside one
// of its methods.
type AudioHandle interface {
	Load(url string)
	Play()
	Pause()
	Paused() bool
	Position() time.Duration
	Seek(d time.Duration) error
	SetSpeed(multiplier float64)
	Stop()
	OnEnded(fn func())
	OnError(fn func(error))
}

// ContentSource resolves chapters for a narrator.
type ContentSource interface {
	ChapterList(ctx context.Context) ([]content.Chapter, error)
	ChapterDetails(ctx context.Context, number int, narrator string) (*content.Details, error)
}

// Purger is implemented by content sources that cache per narrator.
type Purger interface {
	Purge() error
}

// Config holds engine settings. Zero values fall back to defaults.
type Config struct {
	Narrator     string
	ChapterCount int
	TickInterval time.Duration
	Speed        float64
	FetchTimeout time.Duration
}

const (
	DefaultChapterCount = 114
	DefaultTickInterval = 250 * time.Millisecond
	DefaultFetchTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ChapterCount <= 0 {
		c.ChapterCount = DefaultChapterCount
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if !ValidSpeed(c.Speed) {
		c.Speed = 1
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Mode is the playback strategy of the current queue.
type Mode int

const (
	ModeIdle Mode = iota
	ModeChapter
	ModeVerse
)

func (m Mode) String() string {
	switch m {
	case ModeChapter:
		return "chapter"
	case ModeVerse:
		return "verse"
	default:
		return "idle"
	}
}

// State is an immutable snapshot of the engine.
type State struct {
	// CurrentIndex is the 0-based verse position in Queue, -1 when idle.
	CurrentIndex int
	IsPlaying    bool
	// Loading is set while the next chapter is being fetched.
	Loading        bool
	Speed          float64
	Mode           Mode
	Narrator       string
	Queue          *Queue
	HasNextChapter bool
	HasPrevChapter bool
}

// Verse returns the current verse, if any.
func (s State) Verse() (content.Verse, bool) {
	if s.Queue == nil || s.CurrentIndex < 0 || s.CurrentIndex >= s.Queue.Len() {
		return content.Verse{}, false
	}
	return s.Queue.Verse(s.CurrentIndex), true
}

// Speeds lists the supported playback rate multipliers in cycle order.
var Speeds = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// ValidSpeed reports whether m is one of Speeds.
func ValidSpeed(m float64) bool {
	for _, s := range Speeds {
		if s == m {
			return true
		}
	}
	return false
}

// NextSpeed returns the multiplier after m in Speeds, wrapping around.
func NextSpeed(m float64) float64 {
	for i, s := range Speeds {
		if s == m {
			return Speeds[(i+1)%len(Speeds)]
		}
	}
	return 1
}
