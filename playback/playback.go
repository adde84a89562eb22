package playback

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"recital/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// NewOutput initializes the speaker and starts an empty mixer on it
func NewOutput(sampleRate beep.SampleRate) (*Output, error) {
	err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	mixer := &beep.Mixer{}
	ctrl := &beep.Ctrl{Streamer: mixer}

	out := &Output{
		mixer:      mixer,
		ctrl:       ctrl,
		sampleRate: sampleRate,
	}

	speaker.Play(ctrl)

	return out, nil
}

// NewHandle creates a handle bound to this output
func (o *Output) NewHandle(name string, client *http.Client) *Handle {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Handle{
		out:    o,
		client: client,
		logger: logger.WithFields("component", "audio-handle", "handle", name),
		speed:  1,
		paused: true,
	}
}

// SampleRate returns the speaker rate every handle is resampled to
func (o *Output) SampleRate() beep.SampleRate {
	return o.sampleRate
}

// attach adds a streamer to the mixer. The mixer drops it once it reports
// that it is drained.
func (o *Output) attach(s beep.Streamer) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return fmt.Errorf("output is closed")
	}

	speaker.Lock()
	o.mixer.Add(s)
	speaker.Unlock()
	return nil
}

// Close stops the mixer and releases the speaker
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}

	o.closed = true

	speaker.Lock()
	o.mixer.Clear()
	speaker.Unlock()

	speaker.Close()

	slog.Debug("Audio output closed")
	return nil
}
