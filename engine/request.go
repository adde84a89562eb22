package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recital/content"
)

type requestKind int

const (
	reqPlayChapter requestKind = iota
	reqPlayChapterNumber
	reqPlayVerse
	reqNextVerse
	reqPrevVerse
	reqNextChapter
	reqPrevChapter
	reqTogglePlay
	reqSetSpeed
	reqCycleSpeed
	reqSetNarrator
	reqClose
	reqState
	reqTick
	reqResourceEnded
	reqResourceFailed
	reqPreloadFailed
	reqChapterFetched
)

var requestNames = map[requestKind]string{
	reqPlayChapter:       "play-chapter",
	reqPlayChapterNumber: "play-chapter-number",
	reqPlayVerse:         "play-verse",
	reqNextVerse:         "next-verse",
	reqPrevVerse:         "prev-verse",
	reqNextChapter:       "next-chapter",
	reqPrevChapter:       "prev-chapter",
	reqTogglePlay:        "toggle",
	reqSetSpeed:          "set-speed",
	reqCycleSpeed:        "cycle-speed",
	reqSetNarrator:       "set-narrator",
	reqClose:             "close",
	reqState:             "state",
	reqTick:              "tick",
	reqResourceEnded:     "resource-ended",
	reqResourceFailed:    "resource-failed",
	reqPreloadFailed:     "preload-failed",
	reqChapterFetched:    "chapter-fetched",
}

func (k requestKind) String() string {
	if name, ok := requestNames[k]; ok {
		return name
	}
	return fmt.Sprintf("request(%d)", int(k))
}

type request struct {
	kind     requestKind
	queue    *Queue
	number   int
	index    int
	speed    float64
	narrator string
	url      string
	gen      uint64
	details  *content.Details
	err      error
	reply    chan reply
}

type reply struct {
	state State
	err   error
}

// handle is the only place engine state changes.
func (e *Engine) handle(req request) error {
	if req.kind != reqTick && req.kind != reqState {
		e.logger.Debug("Handling request", slog.String("kind", req.kind.String()))
	}

	switch req.kind {
	case reqPlayChapter:
		e.playChapter(req.queue, req.index)

	case reqPlayChapterNumber:
		e.continueTo(req.number, req.index)

	case reqPlayVerse:
		if e.queue == nil || req.index < 0 || req.index >= e.queue.Len() {
			return fmt.Errorf("play verse %d: %w", req.index, ErrIndexOutOfRange)
		}
		e.jump(req.index)

	case reqNextVerse:
		if e.queue == nil {
			return nil
		}
		if next := e.index + 1; next < e.queue.Len() {
			e.jump(next)
			return nil
		}
		e.continueTo(e.queue.Chapter()+1, 0)

	case reqPrevVerse:
		if e.queue == nil || e.index <= 0 {
			return nil
		}
		e.jump(e.index - 1)

	case reqNextChapter:
		if e.queue == nil {
			return nil
		}
		e.continueTo(e.queue.Chapter()+1, 0)

	case reqPrevChapter:
		if e.queue == nil || e.queue.Chapter() <= 1 {
			return nil
		}
		e.continueTo(e.queue.Chapter()-1, 0)

	case reqTogglePlay:
		if e.queue == nil || e.loading {
			return nil
		}
		e.playing = !e.playing
		e.reconcile()

	case reqSetSpeed:
		e.setSpeed(req.speed)

	case reqCycleSpeed:
		e.setSpeed(NextSpeed(e.speed))

	case reqSetNarrator:
		e.setNarrator(req.narrator)

	case reqClose:
		e.stop()

	case reqState:

	case reqTick:
		if e.queue != nil && !e.loading {
			e.mode.tick(e)
		}

	case reqResourceEnded:
		if req.gen != e.res.gen || e.queue == nil || e.loading {
			return nil
		}
		e.mode.ended(e)
		e.reconcile()

	case reqResourceFailed:
		if req.gen != e.res.gen || e.queue == nil {
			return nil
		}
		e.logger.Error("Playback failed",
			slog.Int("chapter", e.queue.Chapter()),
			slog.Int("index", e.index),
			slog.Any("error", req.err))
		e.res.failed()
		e.playing = false
		e.seekPending = false
		e.reconcile()

	case reqPreloadFailed:
		if req.url != e.res.preloadURL {
			return nil
		}
		e.logger.Warn("Preload failed", slog.String("url", req.url), slog.Any("error", req.err))
		e.res.clearPreload()

	case reqChapterFetched:
		e.chapterFetched(req)
	}

	return nil
}

// playChapter replaces the queue and starts it at verse start.
func (e *Engine) playChapter(q *Queue, start int) {
	e.cancelFetch()

	e.queue = q
	e.mode = q.mode()
	e.index = start
	e.playing = true
	e.lastAdvanced = -1
	e.seekPending = false

	e.mode.start(e, start)
	e.reconcile()

	e.logger.Info("Playing chapter",
		slog.Int("chapter", q.Chapter()),
		slog.String("name", q.Name()),
		slog.Int("verse", start+1),
		slog.String("mode", e.mode.kind().String()))
}

// jump moves within the current queue. It supersedes a pending
// continuation.
func (e *Engine) jump(i int) {
	e.cancelFetch()
	e.mode.jump(e, i)
	e.reconcile()
}

func (e *Engine) requestSeek(d time.Duration) {
	e.seekPending = true
	e.seekTo = d
	e.lastAdvanced = -1
}

// reconcile applies a pending seek and aligns the active handle's paused
// state with playing.
func (e *Engine) reconcile() {
	if e.queue == nil || e.loading {
		return
	}

	if e.seekPending {
		e.seekPending = false
		if err := e.res.active.Seek(e.seekTo); err != nil {
			e.logger.Warn("Seek failed", slog.Duration("to", e.seekTo), slog.Any("error", err))
		}
	}

	paused := e.res.active.Paused()
	switch {
	case e.playing && paused:
		e.res.active.Play()
	case !e.playing && !paused:
		e.res.active.Pause()
	}
}

// continueTo fetches chapter number and plays it from verse start once it
// arrives. Out-of-range chapters stop playback.
func (e *Engine) continueTo(number, start int) {
	if number < 1 || number > e.cfg.ChapterCount {
		e.logger.Info("No further chapter, stopping", slog.Int("chapter", number))
		e.stop()
		return
	}

	e.cancelFetch()
	e.token++
	token := e.token
	e.loading = true
	e.playing = true

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.FetchTimeout)
	e.fetchCancel = cancel
	narrator := e.narrator

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		details, err := e.src.ChapterDetails(ctx, number, narrator)
		e.post(request{
			kind:    reqChapterFetched,
			gen:     token,
			number:  number,
			index:   start,
			details: details,
			err:     err,
		})
	}()

	e.logger.Debug("Fetching chapter", slog.Int("chapter", number), slog.String("narrator", narrator))
}

func (e *Engine) chapterFetched(req request) {
	if req.gen != e.token || !e.loading {
		e.logger.Debug("Dropping stale chapter fetch", slog.Int("chapter", req.number))
		return
	}
	e.loading = false
	e.fetchCancel = nil

	if req.err != nil {
		e.logger.Error("Failed to fetch chapter", slog.Int("chapter", req.number), slog.Any("error", req.err))
		e.stop()
		return
	}

	q, err := NewQueue(req.details)
	if err != nil {
		e.logger.Error("Rejected chapter", slog.Int("chapter", req.number), slog.Any("error", err))
		e.stop()
		return
	}

	start := req.index
	if start >= q.Len() {
		start = 0
	}
	e.playChapter(q, start)
}

// cancelFetch invalidates an in-flight continuation
func (e *Engine) cancelFetch() {
	if e.fetchCancel != nil {
		e.fetchCancel()
		e.fetchCancel = nil
	}
	e.token++
	e.loading = false
}

// stop returns to idle
func (e *Engine) stop() {
	e.cancelFetch()
	e.res.stop()

	e.queue = nil
	e.mode = nil
	e.index = -1
	e.playing = false
	e.lastAdvanced = -1
	e.seekPending = false
}

func (e *Engine) setSpeed(m float64) {
	e.speed = m
	e.res.setSpeed(m)
	e.logger.Debug("Speed changed", slog.Float64("speed", m))
}

func (e *Engine) setNarrator(id string) {
	if id == e.narrator {
		return
	}

	e.logger.Info("Narrator changed", slog.String("from", e.narrator), slog.String("to", id))
	e.narrator = id
	e.stop()

	if p, ok := e.src.(Purger); ok {
		if err := p.Purge(); err != nil {
			e.logger.Warn("Failed to purge content cache", slog.Any("error", err))
		}
	}
}
