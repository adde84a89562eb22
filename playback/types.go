package playback

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// resampleQuality is passed to beep.ResampleRatio for every handle.
const resampleQuality = 4

// Output is the process-wide speaker mixer that handles attach to
type Output struct {
	mixer      *beep.Mixer
	ctrl       *beep.Ctrl
	mu         sync.RWMutex
	closed     bool
	sampleRate beep.SampleRate
}

// Handle is one audio-decoding resource. Loading is asynchronous: Load
// returns at once and the decoded stream starts as soon as it is ready if
// Play was called in the meantime.
type Handle struct {
	out    *Output
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	gen     uint64
	url     string
	cancel  context.CancelFunc
	stream  beep.StreamSeekCloser
	format  beep.Format
	resamp  *beep.Resampler
	ctrl    *beep.Ctrl
	speed   float64
	paused  bool
	ended   bool
	pending time.Duration

	onEnded func()
	onError func(error)
}
