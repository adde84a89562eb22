package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"recital/content"
)

type fakeHandle struct {
	name string

	mu      sync.Mutex
	url     string
	paused  bool
	pos     time.Duration
	speed   float64
	loads   []string
	seeks   []time.Duration
	stops   int
	onEnded func()
	onError func(error)
}

func newFakeHandle(name string) *fakeHandle {
	return &fakeHandle{name: name, paused: true, speed: 1}
}

func (h *fakeHandle) Load(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.url = url
	h.paused = true
	h.pos = 0
	h.loads = append(h.loads, url)
}

func (h *fakeHandle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

func (h *fakeHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *fakeHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *fakeHandle) Seek(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
	h.seeks = append(h.seeks, d)
	return nil
}

func (h *fakeHandle) SetSpeed(m float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.speed = m
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.url = ""
	h.paused = true
	h.pos = 0
	h.stops++
}

func (h *fakeHandle) OnEnded(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnded = fn
}

func (h *fakeHandle) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

// end simulates the resource playing to its end.
func (h *fakeHandle) end() {
	h.mu.Lock()
	fn := h.onEnded
	h.paused = true
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fail simulates a load error.
func (h *fakeHandle) fail(err error) {
	h.mu.Lock()
	fn := h.onError
	h.paused = true
	h.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (h *fakeHandle) setPosition(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
}

type handleView struct {
	url    string
	paused bool
	speed  float64
	loads  int
	seeks  []time.Duration
}

func (h *fakeHandle) view() handleView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return handleView{
		url:    h.url,
		paused: h.paused,
		speed:  h.speed,
		loads:  len(h.loads),
		seeks:  append([]time.Duration(nil), h.seeks...),
	}
}

type fetchCall struct {
	chapter  int
	narrator string
}

type fakeSource struct {
	timed  bool
	verses int

	mu       sync.Mutex
	gate     chan struct{}
	fail     map[int]bool
	fetches  []fetchCall
	returned int
	purges   int
}

func newFakeSource(timed bool, verses int) *fakeSource {
	return &fakeSource{timed: timed, verses: verses, fail: make(map[int]bool)}
}

func (s *fakeSource) ChapterList(ctx context.Context) ([]content.Chapter, error) {
	return nil, nil
}

func (s *fakeSource) ChapterDetails(ctx context.Context, number int, narrator string) (*content.Details, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, fetchCall{number, narrator})
	gate := s.gate
	fail := s.fail[number]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.returned++
		s.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("network down")
	}
	return buildDetails(number, narrator, s.timed, s.verses), nil
}

func (s *fakeSource) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges++
	return nil
}

func (s *fakeSource) calls() []fetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fetchCall(nil), s.fetches...)
}

func (s *fakeSource) returnedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returned
}

func (s *fakeSource) purgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purges
}

func verseURL(narrator string, chapter, verse int) string {
	return fmt.Sprintf("https://audio.test/%s/%d/%d.mp3", narrator, chapter, verse)
}

func chapterURL(narrator string, chapter int) string {
	return fmt.Sprintf("https://audio.test/%s/%d.mp3", narrator, chapter)
}

// buildDetails returns a chapter whose verses each last one second.
func buildDetails(number int, narrator string, timed bool, verses int) *content.Details {
	d := &content.Details{
		Number:      number,
		DisplayName: fmt.Sprintf("Chapter %d", number),
	}
	if timed {
		d.ChapterAudioURL = chapterURL(narrator, number)
	}
	for i := 0; i < verses; i++ {
		v := content.Verse{
			GlobalID:       number*1000 + i + 1,
			IndexInChapter: i + 1,
			ChapterNumber:  number,
			AudioURL:       verseURL(narrator, number, i+1),
		}
		if timed {
			v.StartMs = i * 1000
			v.EndMs = (i + 1) * 1000
		}
		d.Verses = append(d.Verses, v)
	}
	return d
}

func mustQueue(t *testing.T, d *content.Details) *Queue {
	t.Helper()
	q, err := NewQueue(d)
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	return q
}

const testNarrator = "ar.alafasy"

// newTestEngine starts an engine over two fake handles. Ticks only happen
// when the test sends them.
func newTestEngine(t *testing.T, src *fakeSource) (*Engine, *fakeHandle, *fakeHandle) {
	t.Helper()
	a, b := newFakeHandle("a"), newFakeHandle("b")
	e := New(Config{
		Narrator:     testNarrator,
		ChapterCount: 3,
		TickInterval: time.Hour,
	}, src, a, b)
	e.Start()
	t.Cleanup(e.Stop)
	return e, a, b
}

func tick(t *testing.T, e *Engine) State {
	t.Helper()
	s, err := e.do(request{kind: reqTick})
	if err != nil {
		t.Fatalf("tick error = %v", err)
	}
	return s
}

func waitFor(t *testing.T, e *Engine, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := e.State()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s, last state %+v", what, s)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func playingChapter(chapter, index int) func(State) bool {
	return func(s State) bool {
		return !s.Loading && s.IsPlaying && s.Queue != nil &&
			s.Queue.Chapter() == chapter && s.CurrentIndex == index
	}
}

func idle(s State) bool {
	return s.Queue == nil && s.CurrentIndex == -1 && !s.IsPlaying && !s.Loading
}
