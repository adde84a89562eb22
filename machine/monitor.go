package machine

import (
	"context"
	"log/slog"
	"sync"

	"recital/engine"
	"recital/logger"
	"recital/store"
)

// PositionStore persists the last position reached
type PositionStore interface {
	SavePosition(p store.Position) error
}

// ProgressMonitor records every verse the engine reaches
type ProgressMonitor struct {
	store       PositionStore
	states      <-chan engine.State
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
	stopChannel chan struct{}
	stopOnce    sync.Once
	last        store.Position
}

// NewProgressMonitor creates a new ProgressMonitor instance
func NewProgressMonitor(st PositionStore, states <-chan engine.State, wg *sync.WaitGroup) *ProgressMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &ProgressMonitor{
		store:       st,
		states:      states,
		logger:      logger.WithComponent("progress-monitor"),
		ctx:         ctx,
		cancel:      cancel,
		wg:          wg,
		stopChannel: make(chan struct{}),
	}
}

// Start begins recording progress
func (p *ProgressMonitor) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.logger.Debug("Starting progress monitoring")

		for {
			select {
			case s, ok := <-p.states:
				if !ok {
					p.logger.Debug("Engine closed, stopping progress monitoring")
					return
				}
				p.record(s)
			case <-p.ctx.Done():
				p.logger.Debug("Progress monitoring stopped")
				return
			case <-p.stopChannel:
				p.logger.Debug("Progress monitoring stopped via stop channel")
				return
			}
		}
	}()
}

func (p *ProgressMonitor) record(s engine.State) {
	v, ok := s.Verse()
	if !ok {
		return
	}

	pos := store.Position{
		Chapter:  v.ChapterNumber,
		Verse:    v.IndexInChapter,
		Narrator: s.Narrator,
	}
	if pos == p.last {
		return
	}

	if err := p.store.SavePosition(pos); err != nil {
		p.logger.Error("Failed to save position",
			slog.Int("chapter", pos.Chapter),
			slog.Int("verse", pos.Verse),
			slog.Any("error", err))
		return
	}
	p.last = pos
}

// Stop stops progress monitoring
func (p *ProgressMonitor) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		close(p.stopChannel)
	})
}

// SetContext updates the context for cancellation
func (p *ProgressMonitor) SetContext(ctx context.Context) {
	p.cancel() // Cancel the old context
	p.ctx = ctx
}
