package machine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"recital/assets"
	"recital/config"
	"recital/content"
	"recital/engine"
	"recital/logger"
	"recital/playback"
	"recital/store"

	"github.com/gopxl/beep/v2"
)

// Machine wires the player together: content, cache, audio output, engine
// and progress persistence.
type Machine struct {
	config   *config.Config
	db       *store.DB
	output   *playback.Output
	cache    *content.Cache
	engine   *engine.Engine
	progress *ProgressMonitor
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a new Machine instance
func New(cfg *config.Config) *Machine {
	ctx, cancel := context.WithCancel(context.Background())

	return &Machine{
		config: cfg,
		logger: logger.WithComponent("machine"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize sets up the machine components
func (m *Machine) Initialize() error {
	m.logger.Info("Initializing machine...")

	catalog := assets.GetCatalog()
	client := content.NewClient(content.ClientConfig{
		APIBase:     m.config.Content.APIBase,
		AudioBase:   m.config.Content.AudioBase,
		Bitrate:     m.config.Content.Bitrate,
		TimingBase:  m.config.Content.TimingBase,
		TextEdition: m.config.Content.TextEdition,
		Translation: m.config.Content.Translation,
		Timeout:     m.config.Content.Timeout,
	}, catalog)

	var backing content.Backing
	if !m.config.Cache.Disabled {
		db, err := store.Open(m.config.Cache.Dir)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		m.db = db
		backing = db
	}
	m.cache = content.NewCache(client, backing, catalog)

	out, err := playback.NewOutput(beep.SampleRate(m.config.Playback.SampleRate))
	if err != nil {
		m.closeStore()
		return fmt.Errorf("failed to initialize audio output: %w", err)
	}
	m.output = out

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	m.engine = engine.New(engine.Config{
		Narrator:     m.config.Narrator,
		ChapterCount: m.config.Playback.ChapterCount,
		TickInterval: m.config.Playback.TickInterval,
		Speed:        m.config.Playback.Speed,
		FetchTimeout: m.config.Content.Timeout,
	}, m.cache, out.NewHandle("active", httpClient), out.NewHandle("preload", httpClient))

	m.logger.Info("Machine initialized successfully",
		slog.String("narrator", m.config.Narrator),
		slog.Bool("cache", m.db != nil))
	return nil
}

// Start begins all machine operations
func (m *Machine) Start() error {
	if m.engine == nil {
		return fmt.Errorf("machine is not initialized")
	}
	m.logger.Info("Starting machine operations...")

	m.engine.Start()

	if m.db != nil {
		m.progress = NewProgressMonitor(m.db, m.engine.Subscribe(), &m.wg)
		m.progress.SetContext(m.ctx)
		m.progress.Start()
	}

	m.watchNarrator()

	m.logger.Info("Machine started successfully")
	return nil
}

// Stop gracefully shuts down the machine
func (m *Machine) Stop() error {
	m.logger.Info("Stopping machine...")

	// Cancel context to stop all operations
	m.cancel()

	if m.progress != nil {
		m.progress.Stop()
	}

	if m.engine != nil {
		m.engine.Stop()
	}

	// Wait for all goroutines to finish
	m.wg.Wait()

	if m.output != nil {
		if err := m.output.Close(); err != nil {
			m.logger.Error("Failed to close audio output", slog.Any("error", err))
		}
	}
	m.closeStore()

	m.logger.Info("Machine stopped")
	return nil
}

func (m *Machine) closeStore() {
	if m.db == nil {
		return
	}
	if err := m.db.Close(); err != nil {
		m.logger.Error("Failed to close cache", slog.Any("error", err))
	}
	m.db = nil
}

// Engine returns the playback engine
func (m *Machine) Engine() *engine.Engine {
	return m.engine
}

// Chapters returns the table of contents
func (m *Machine) Chapters(ctx context.Context) ([]content.Chapter, error) {
	return m.cache.ChapterList(ctx)
}

// FindChapter resolves a chapter number or name
func (m *Machine) FindChapter(ctx context.Context, query string) (content.Chapter, error) {
	chapters, err := m.Chapters(ctx)
	if err != nil {
		return content.Chapter{}, fmt.Errorf("failed to list chapters: %w", err)
	}
	c, ok := content.FindChapter(chapters, query)
	if !ok {
		return content.Chapter{}, fmt.Errorf("%q: %w", query, content.ErrNotFound)
	}
	return c, nil
}

// LastPosition returns the last recorded position
func (m *Machine) LastPosition() (store.Position, bool, error) {
	if m.db == nil {
		return store.Position{}, false, nil
	}
	return m.db.LastPosition()
}

// Resume plays from the last recorded position
func (m *Machine) Resume() (store.Position, error) {
	pos, ok, err := m.LastPosition()
	if err != nil {
		return store.Position{}, err
	}
	if !ok {
		return store.Position{}, fmt.Errorf("no saved position")
	}

	start := pos.Verse - 1
	if start < 0 {
		start = 0
	}
	if err := m.engine.PlayChapterNumber(pos.Chapter, start); err != nil {
		return store.Position{}, fmt.Errorf("failed to resume chapter %d: %w", pos.Chapter, err)
	}
	return pos, nil
}
