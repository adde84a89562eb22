package engine

import (
	"time"
)

// mode is the strategy for the current queue: one resource per chapter with
// verse offsets, or one resource per verse.
type mode interface {
	kind() Mode
	// start loads the queue's resources positioned at verse i.
	start(e *Engine, i int)
	// jump moves to verse i of the current queue on user request.
	jump(e *Engine, i int)
	// tick runs the time-driven index update.
	tick(e *Engine)
	// ended handles the active resource playing to its end.
	ended(e *Engine)
}

type chapterMode struct{}

func (chapterMode) kind() Mode { return ModeChapter }

func (chapterMode) start(e *Engine, i int) {
	url := e.queue.ChapterAudioURL()
	e.res.clearPreload()

	if e.res.activeURL == url {
		e.requestSeek(offset(e.queue.Verse(i).StartMs))
		return
	}

	e.res.loadActive(url)
	if i > 0 {
		e.requestSeek(offset(e.queue.Verse(i).StartMs))
	}
}

func (chapterMode) jump(e *Engine, i int) {
	if url := e.queue.ChapterAudioURL(); e.res.activeURL != url {
		e.res.loadActive(url)
	}
	e.index = i
	e.lastAdvanced = -1
	e.requestSeek(offset(e.queue.Verse(i).StartMs))
	e.playing = true
}

// tick advances at most one verse when the elapsed time passes the current
// verse's end. Never past the last verse; the chapter end drives that.
func (chapterMode) tick(e *Engine) {
	if !e.playing || e.seekPending {
		return
	}

	next := e.index + 1
	if next >= e.queue.Len() || e.lastAdvanced == e.index {
		return
	}

	if e.res.active.Position() >= offset(e.queue.Verse(e.index).EndMs) {
		e.lastAdvanced = e.index
		e.index = next
	}
}

func (chapterMode) ended(e *Engine) {
	e.continueTo(e.queue.Chapter()+1, 0)
}

type verseMode struct{}

func (verseMode) kind() Mode { return ModeVerse }

func (m verseMode) start(e *Engine, i int) {
	e.res.clearPreload()
	m.play(e, i)
}

func (m verseMode) jump(e *Engine, i int) {
	if m.play(e, i) {
		e.playing = true
	}
}

func (verseMode) tick(*Engine) {}

func (m verseMode) ended(e *Engine) {
	next := e.index + 1
	if next < e.queue.Len() && m.play(e, next) {
		return
	}
	e.continueTo(e.queue.Chapter()+1, 0)
}

// play makes verse i audible on the active handle: a seek when it is already
// loaded there, a swap when it is preloaded, a fresh load otherwise. The
// following verse is then armed on the preload handle.
func (verseMode) play(e *Engine, i int) bool {
	url := e.queue.Verse(i).AudioURL
	if url == "" {
		return false
	}

	switch url {
	case e.res.activeURL:
		e.requestSeek(0)
	case e.res.preloadURL:
		e.res.swap()
	default:
		e.res.loadActive(url)
	}
	e.index = i

	if next := i + 1; next < e.queue.Len() {
		e.res.arm(e.queue.Verse(next).AudioURL)
	} else {
		e.res.clearPreload()
	}
	return true
}

func offset(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
