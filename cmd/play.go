package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"recital/config"
	"recital/engine"
	"recital/logger"
	"recital/machine"

	"github.com/chzyer/readline"
)

// player is the interactive prompt driving the machine's engine
type player struct {
	ctx    context.Context
	m      *machine.Machine
	engine *engine.Engine
	rl     *readline.Instance
	logger *slog.Logger
}

func newPlayer(ctx context.Context, m *machine.Machine, cfg *config.Config) (*player, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("play"),
		readline.PcItem("verse"),
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("nc"),
		readline.PcItem("pc"),
		readline.PcItem("toggle"),
		readline.PcItem("speed"),
		readline.PcItem("narrator", narratorItems()...),
		readline.PcItem("status"),
		readline.PcItem("resume"),
		readline.PcItem("bookmark"),
		readline.PcItem("bookmarks"),
		readline.PcItem("goto-bookmark"),
		readline.PcItem("stop"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)

	history := ""
	if !cfg.Cache.Disabled {
		history = filepath.Join(cfg.Cache.Dir, "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "recital> ",
		HistoryFile:     history,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, err
	}

	return &player{
		ctx:    ctx,
		m:      m,
		engine: m.Engine(),
		rl:     rl,
		logger: logger.WithComponent("player"),
	}, nil
}

func narratorItems() []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, n := range catalogNarrators() {
		items = append(items, readline.PcItem(n.ID))
	}
	return items
}

// run reads commands until quit, EOF or an interrupt on an empty line
func (p *player) run() error {
	defer p.rl.Close()

	go p.watch(p.engine.Subscribe())

	fmt.Fprintln(p.rl.Stdout(), "Type 'help' for commands.")
	if pos, ok, err := p.m.LastPosition(); err == nil && ok {
		fmt.Fprintf(p.rl.Stdout(), "Last position %d:%d, type 'resume' to continue.\n", pos.Chapter, pos.Verse)
	}

	for {
		line, err := p.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(line) == 0 {
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(p.rl.Stdout(), err)
			continue
		}
		if cmd.kind == cmdQuit {
			return nil
		}
		if err := p.execute(cmd); err != nil {
			fmt.Fprintln(p.rl.Stdout(), "error:", err)
		}
	}
}

func (p *player) close() {
	p.rl.Close()
}

func (p *player) execute(cmd command) error {
	e := p.engine

	switch cmd.kind {
	case cmdPlay:
		ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
		defer cancel()

		c, err := p.m.FindChapter(ctx, cmd.query)
		if err != nil {
			return err
		}
		start := 0
		if cmd.verse > 0 {
			if c.VerseCount > 0 && cmd.verse > c.VerseCount {
				return fmt.Errorf("%s has %d verses", c.DisplayName, c.VerseCount)
			}
			start = cmd.verse - 1
		}
		return e.PlayChapterNumber(c.Number, start)

	case cmdVerse:
		return e.PlayVerse(cmd.verse - 1)
	case cmdNext:
		return e.NextVerse()
	case cmdPrev:
		return e.PrevVerse()
	case cmdNextChapter:
		return e.NextChapter()
	case cmdPrevChapter:
		return e.PrevChapter()
	case cmdToggle:
		return e.TogglePlayPause()

	case cmdSpeed:
		if cmd.speed == 0 {
			s, err := e.CycleSpeed()
			if err != nil {
				return err
			}
			fmt.Fprintf(p.rl.Stdout(), "speed %sx\n", strconv.FormatFloat(s, 'g', -1, 64))
			return nil
		}
		return e.SetSpeed(cmd.speed)

	case cmdNarrator:
		if _, ok := lookupNarrator(cmd.narrator); !ok {
			return fmt.Errorf("unknown narrator %q, see 'recital narrators'", cmd.narrator)
		}
		return e.SetNarrator(cmd.narrator)

	case cmdStatus:
		fmt.Fprintln(p.rl.Stdout(), formatState(e.State()))
		return nil

	case cmdResume:
		pos, err := p.m.Resume()
		if err != nil {
			return err
		}
		p.logger.Info("Resuming", slog.Int("chapter", pos.Chapter), slog.Int("verse", pos.Verse))
		return nil

	case cmdStop:
		return e.Close()

	case cmdBookmark:
		b, added, err := p.m.ToggleBookmark()
		if err != nil {
			return err
		}
		verb := "removed"
		if added {
			verb = "added"
		}
		fmt.Fprintf(p.rl.Stdout(), "bookmark %d:%d %s\n", b.Chapter, b.Verse, verb)
		return nil

	case cmdBookmarks:
		list, err := p.m.Bookmarks()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(p.rl.Stdout(), "no bookmarks")
			return nil
		}
		for i, b := range list {
			fmt.Fprintf(p.rl.Stdout(), "%3d  %d:%d\n", i+1, b.Chapter, b.Verse)
		}
		return nil

	case cmdGotoBookmark:
		b, err := p.m.GotoBookmark(cmd.bookmark)
		if err != nil {
			return err
		}
		p.logger.Info("Playing bookmark", slog.Int("chapter", b.Chapter), slog.Int("verse", b.Verse))
		return nil

	case cmdHelp:
		fmt.Fprintln(p.rl.Stdout(), helpText)
		return nil
	}

	return nil
}

// watch prints a status line whenever the verse or play state changes
func (p *player) watch(states <-chan engine.State) {
	last := ""
	for s := range states {
		line := formatState(s)
		if line == last {
			continue
		}
		last = line
		fmt.Fprintln(p.rl.Stdout(), line)
	}
}
