package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Load replaces the handle's resource. The handle is paused afterwards.
func (h *Handle) Load(location string) {
	h.mu.Lock()
	h.releaseLocked()
	h.url = location
	gen := h.gen
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.mu.Unlock()

	go h.load(ctx, gen, location)
}

func (h *Handle) load(ctx context.Context, gen uint64, location string) {
	started := time.Now()
	stream, format, err := open(ctx, h.client, location)

	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		return
	}

	if err != nil {
		h.url = ""
		fn := h.onError
		h.mu.Unlock()

		h.logger.Error("Failed to load audio", slog.String("url", location), slog.Any("error", err))
		if fn != nil {
			fn(fmt.Errorf("load %s: %w", location, err))
		}
		return
	}

	h.stream, h.format = stream, format
	if h.pending > 0 {
		h.seekLocked(h.pending)
		h.pending = 0
	}
	if !h.paused {
		h.attachLocked()
	}
	h.mu.Unlock()

	h.logger.Debug("Audio loaded",
		slog.String("url", location),
		slog.Duration("took", time.Since(started)),
		slog.Duration("length", format.SampleRate.D(stream.Len())))
}

// Play starts or resumes playback. Called before the resource is decoded,
// playback starts once it is. Called after the resource ended, it restarts
// from the beginning.
func (h *Handle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.paused = false
	if h.stream == nil {
		return
	}

	if h.ended {
		h.seekLocked(0)
		h.ended = false
	}

	if h.ctrl == nil {
		h.attachLocked()
		return
	}

	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
}

// Pause pauses playback, keeping the position.
func (h *Handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.paused = true
	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Paused = true
		speaker.Unlock()
	}
}

// Paused reports whether the handle is not playing, including after the
// resource ended on its own.
func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// Position returns the playback position within the resource.
func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream == nil {
		return h.pending
	}

	speaker.Lock()
	pos := h.stream.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(pos)
}

// Seek moves to d. Before the resource is decoded the target is kept and
// applied once it is.
func (h *Handle) Seek(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d < 0 {
		d = 0
	}
	if h.stream == nil {
		h.pending = d
		return nil
	}

	if err := h.seekLocked(d); err != nil {
		return err
	}
	h.ended = false
	return nil
}

func (h *Handle) seekLocked(d time.Duration) error {
	n := h.format.SampleRate.N(d)
	if length := h.stream.Len(); n > length {
		n = length
	}

	speaker.Lock()
	err := h.stream.Seek(n)
	speaker.Unlock()

	if err != nil {
		return fmt.Errorf("seek to %s: %w", d, err)
	}
	return nil
}

// SetSpeed changes the playback rate multiplier.
func (h *Handle) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.speed = multiplier
	if h.resamp != nil {
		speaker.Lock()
		h.resamp.SetRatio(h.ratioLocked())
		speaker.Unlock()
	}
}

// Stop halts playback and releases the resource.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.releaseLocked()
}

// OnEnded sets the callback fired when the resource plays to its end.
func (h *Handle) OnEnded(fn func()) {
	h.mu.Lock()
	h.onEnded = fn
	h.mu.Unlock()
}

// OnError sets the callback fired when loading fails.
func (h *Handle) OnError(fn func(error)) {
	h.mu.Lock()
	h.onError = fn
	h.mu.Unlock()
}

// URL returns the loaded resource location.
func (h *Handle) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *Handle) ratioLocked() float64 {
	return float64(h.format.SampleRate) / float64(h.out.sampleRate) * h.speed
}

// attachLocked wraps the stream for speed and end detection and hands it to
// the mixer. Detaching later sets ctrl.Streamer to nil so the end callback
// never fires for a released stream.
func (h *Handle) attachLocked() {
	gen := h.gen
	h.resamp = beep.ResampleRatio(resampleQuality, h.ratioLocked(), h.stream)
	h.ctrl = &beep.Ctrl{
		Streamer: beep.Seq(h.resamp, beep.Callback(func() {
			// runs on the speaker goroutine with the speaker locked
			go h.finish(gen)
		})),
	}
	h.ended = false

	if err := h.out.attach(h.ctrl); err != nil {
		h.logger.Warn("Failed to attach audio", slog.Any("error", err))
		h.ctrl = nil
		h.resamp = nil
	}
}

func (h *Handle) finish(gen uint64) {
	h.mu.Lock()
	if gen != h.gen || h.ctrl == nil {
		h.mu.Unlock()
		return
	}
	h.ctrl = nil
	h.resamp = nil
	h.ended = true
	h.paused = true
	fn := h.onEnded
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// releaseLocked detaches and closes the current resource and invalidates any
// load or end callback still in flight for it.
func (h *Handle) releaseLocked() {
	h.gen++
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Streamer = nil
		speaker.Unlock()
		h.ctrl = nil
	}
	h.resamp = nil
	if h.stream != nil {
		h.stream.Close()
		h.stream = nil
	}
	h.url = ""
	h.paused = true
	h.ended = false
	h.pending = 0
}
