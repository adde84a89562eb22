package engine

import (
	"log/slog"
)

// resources owns the two audio handles. Only the engine loop touches it.
type resources struct {
	active     AudioHandle
	preload    AudioHandle
	activeURL  string
	preloadURL string

	// gen identifies the current binding of the active handle's callbacks.
	gen   uint64
	speed float64

	post   func(request)
	logger *slog.Logger
}

func newResources(active, preload AudioHandle, speed float64, post func(request), logger *slog.Logger) *resources {
	r := &resources{
		active:  active,
		preload: preload,
		speed:   speed,
		post:    post,
		logger:  logger,
	}
	active.SetSpeed(speed)
	preload.SetSpeed(speed)
	r.bind()
	return r
}

// bind points the end and error callbacks at the active handle. Events from
// an earlier binding carry an older generation and are dropped by the loop.
func (r *resources) bind() {
	r.gen++
	gen := r.gen

	r.active.OnEnded(func() {
		r.post(request{kind: reqResourceEnded, gen: gen})
	})
	r.active.OnError(func(err error) {
		r.post(request{kind: reqResourceFailed, gen: gen, err: err})
	})
	r.preload.OnEnded(nil)
}

// loadActive replaces the active resource
func (r *resources) loadActive(url string) {
	r.active.Load(url)
	r.active.SetSpeed(r.speed)
	r.activeURL = url
	r.bind()
	r.logger.Debug("Loading active resource", slog.String("url", url))
}

// arm points the preload handle at url unless it already holds it
func (r *resources) arm(url string) {
	if url == "" {
		r.clearPreload()
		return
	}
	if r.preloadURL == url {
		return
	}

	r.preload.Load(url)
	r.preload.SetSpeed(r.speed)
	r.preloadURL = url
	r.preload.OnError(func(err error) {
		r.post(request{kind: reqPreloadFailed, url: url, err: err})
	})
	r.logger.Debug("Preloading", slog.String("url", url))
}

// swap promotes the preload handle to active and stops the old active one.
func (r *resources) swap() {
	old := r.active
	r.active, r.preload = r.preload, old
	r.activeURL = r.preloadURL
	r.preloadURL = ""

	old.Stop()
	r.bind()
	r.logger.Debug("Swapped handles", slog.String("url", r.activeURL))
}

// failed forgets the active resource after a load error so the next play
// reloads it instead of seeking on an empty handle.
func (r *resources) failed() {
	r.active.Stop()
	r.activeURL = ""
	r.bind()
}

func (r *resources) clearPreload() {
	if r.preloadURL == "" {
		return
	}
	r.preload.Stop()
	r.preload.OnError(nil)
	r.preloadURL = ""
}

// stop halts both handles and invalidates outstanding callbacks
func (r *resources) stop() {
	r.active.Stop()
	r.preload.Stop()
	r.activeURL = ""
	r.preloadURL = ""
	r.bind()
}

func (r *resources) setSpeed(m float64) {
	r.speed = m
	r.active.SetSpeed(m)
	r.preload.SetSpeed(m)
}
