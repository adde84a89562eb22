package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"recital/logger"
)

// Engine is the gapless playback controller. All state is owned by one loop
// goroutine; public methods, handle callbacks, ticks and fetch completions
// reach it as requests.
type Engine struct {
	cfg    Config
	src    ContentSource
	res    *resources
	logger *slog.Logger

	requests chan request
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	start    sync.Once

	// loop-owned
	queue        *Queue
	mode         mode
	index        int
	playing      bool
	loading      bool
	speed        float64
	narrator     string
	lastAdvanced int
	seekPending  bool
	seekTo       time.Duration
	token        uint64
	fetchCancel  context.CancelFunc
	published    State

	subMu sync.Mutex
	subs  []chan State
}

// New creates an engine driving the two handles. Start must be called
// before any other method.
func New(cfg Config, src ContentSource, active, preload AudioHandle) *Engine {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:          cfg,
		src:          src,
		logger:       logger.WithComponent("engine"),
		requests:     make(chan request),
		ctx:          ctx,
		cancel:       cancel,
		index:        -1,
		speed:        cfg.Speed,
		narrator:     cfg.Narrator,
		lastAdvanced: -1,
	}
	e.res = newResources(active, preload, cfg.Speed, e.post, e.logger)
	e.published = e.snapshot()
	return e
}

// Start launches the engine loop
func (e *Engine) Start() {
	e.start.Do(func() {
		e.wg.Add(1)
		go e.loop()
		e.logger.Info("Engine started",
			slog.String("narrator", e.narrator),
			slog.Duration("tick", e.cfg.TickInterval))
	})
}

// Stop halts playback and shuts the loop down. Later calls return ErrClosed.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()
	defer e.shutdown()

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case req := <-e.requests:
			err := e.handle(req)
			e.publish()
			if req.reply != nil {
				req.reply <- reply{state: e.published, err: err}
			}
		case <-ticker.C:
			e.handle(request{kind: reqTick})
			e.publish()
		}
	}
}

func (e *Engine) shutdown() {
	e.cancelFetch()
	e.res.stop()

	e.subMu.Lock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.subMu.Unlock()

	e.logger.Info("Engine stopped")
}

// do sends a request and waits until the loop has applied it
func (e *Engine) do(req request) (State, error) {
	req.reply = make(chan reply, 1)

	select {
	case e.requests <- req:
	case <-e.ctx.Done():
		return State{}, ErrClosed
	}

	select {
	case r := <-req.reply:
		return r.state, r.err
	case <-e.ctx.Done():
		return State{}, ErrClosed
	}
}

// post delivers an event without waiting for it to be applied
func (e *Engine) post(req request) {
	select {
	case e.requests <- req:
	case <-e.ctx.Done():
	}
}

// PlayChapter plays q from verse start.
func (e *Engine) PlayChapter(q *Queue, start int) error {
	if q == nil || start < 0 || start >= q.Len() {
		return fmt.Errorf("play chapter at verse %d: %w", start, ErrIndexOutOfRange)
	}
	_, err := e.do(request{kind: reqPlayChapter, queue: q, index: start})
	return err
}

// PlayChapterNumber fetches chapter number for the current narrator and
// plays it from verse start. It returns once the fetch is under way.
func (e *Engine) PlayChapterNumber(number, start int) error {
	if number < 1 || number > e.cfg.ChapterCount || start < 0 {
		return fmt.Errorf("play chapter %d at verse %d: %w", number, start, ErrIndexOutOfRange)
	}
	_, err := e.do(request{kind: reqPlayChapterNumber, number: number, index: start})
	return err
}

// PlayVerse jumps to verse index of the current queue and plays.
func (e *Engine) PlayVerse(index int) error {
	_, err := e.do(request{kind: reqPlayVerse, index: index})
	return err
}

func (e *Engine) NextVerse() error {
	_, err := e.do(request{kind: reqNextVerse})
	return err
}

func (e *Engine) PrevVerse() error {
	_, err := e.do(request{kind: reqPrevVerse})
	return err
}

func (e *Engine) NextChapter() error {
	_, err := e.do(request{kind: reqNextChapter})
	return err
}

func (e *Engine) PrevChapter() error {
	_, err := e.do(request{kind: reqPrevChapter})
	return err
}

func (e *Engine) TogglePlayPause() error {
	_, err := e.do(request{kind: reqTogglePlay})
	return err
}

// SetSpeed sets the playback rate. It must be one of Speeds.
func (e *Engine) SetSpeed(multiplier float64) error {
	if !ValidSpeed(multiplier) {
		return fmt.Errorf("%v: %w", multiplier, ErrUnsupportedSpeed)
	}
	_, err := e.do(request{kind: reqSetSpeed, speed: multiplier})
	return err
}

// CycleSpeed moves to the next entry of Speeds and returns it.
func (e *Engine) CycleSpeed() (float64, error) {
	s, err := e.do(request{kind: reqCycleSpeed})
	return s.Speed, err
}

// SetNarrator switches the narrator. Any playback is stopped and cached
// chapter data is purged.
func (e *Engine) SetNarrator(id string) error {
	if id == "" {
		return fmt.Errorf("narrator id is required")
	}
	_, err := e.do(request{kind: reqSetNarrator, narrator: id})
	return err
}

// Close stops playback and clears the queue. The engine stays usable.
func (e *Engine) Close() error {
	_, err := e.do(request{kind: reqClose})
	return err
}

// State returns the current snapshot.
func (e *Engine) State() State {
	s, err := e.do(request{kind: reqState})
	if err != nil {
		return State{CurrentIndex: -1, Speed: e.cfg.Speed, Narrator: e.cfg.Narrator}
	}
	return s
}

// Subscribe returns a channel receiving every new snapshot. Slow readers
// miss intermediate snapshots. The channel is closed when the engine stops.
func (e *Engine) Subscribe() <-chan State {
	ch := make(chan State, 16)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.ctx.Err() != nil {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) snapshot() State {
	s := State{
		CurrentIndex: e.index,
		IsPlaying:    e.playing,
		Loading:      e.loading,
		Speed:        e.speed,
		Mode:         ModeIdle,
		Narrator:     e.narrator,
		Queue:        e.queue,
	}
	if e.queue != nil {
		s.Mode = e.mode.kind()
		s.HasNextChapter = e.queue.Chapter() < e.cfg.ChapterCount
		s.HasPrevChapter = e.queue.Chapter() > 1
	}
	return s
}

func (e *Engine) publish() {
	s := e.snapshot()
	if s == e.published {
		return
	}
	e.published = s

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
