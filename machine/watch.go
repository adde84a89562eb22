package machine

import (
	"log/slog"

	"recital/assets"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NarratorSetter is the part of the engine a config reload touches
type NarratorSetter interface {
	SetNarrator(id string) error
}

// watchNarrator reloads the config file on change and forwards a new
// narrator to the engine.
func (m *Machine) watchNarrator() {
	if viper.ConfigFileUsed() == "" {
		m.logger.Debug("No config file in use, narrator changes come from the prompt only")
		return
	}

	viper.OnConfigChange(func(ev fsnotify.Event) {
		m.onConfigChange(ev, viper.GetString("narrator"))
	})
	viper.WatchConfig()

	m.logger.Info("Watching config file", slog.String("file", viper.ConfigFileUsed()))
}

func (m *Machine) onConfigChange(ev fsnotify.Event, narrator string) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	applyNarrator(m.engine, m.logger, narrator)
}

// applyNarrator switches the narrator when id is a known one
func applyNarrator(target NarratorSetter, logger *slog.Logger, id string) bool {
	if id == "" {
		return false
	}
	if _, ok := assets.GetCatalog().Lookup(id); !ok {
		logger.Warn("Ignoring unknown narrator from config", slog.String("narrator", id))
		return false
	}
	if err := target.SetNarrator(id); err != nil {
		logger.Error("Failed to change narrator", slog.String("narrator", id), slog.Any("error", err))
		return false
	}
	return true
}
