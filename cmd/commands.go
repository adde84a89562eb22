package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"recital/engine"
)

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdVerse
	cmdNext
	cmdPrev
	cmdNextChapter
	cmdPrevChapter
	cmdToggle
	cmdSpeed
	cmdNarrator
	cmdStatus
	cmdResume
	cmdStop
	cmdBookmark
	cmdBookmarks
	cmdGotoBookmark
	cmdHelp
	cmdQuit
)

// command is one parsed prompt line
type command struct {
	kind commandKind
	// query is a chapter number or name
	query string
	// verse is 1-based, 0 when not given
	verse int
	// speed is 0 for "cycle to the next speed"
	speed    float64
	narrator string
	// bookmark is 1-based in the bookmarks listing
	bookmark int
}

var aliases = map[string]commandKind{
	"play":          cmdPlay,
	"verse":         cmdVerse,
	"goto":          cmdVerse,
	"n":             cmdNext,
	"next":          cmdNext,
	"p":             cmdPrev,
	"prev":          cmdPrev,
	"nc":            cmdNextChapter,
	"pc":            cmdPrevChapter,
	"t":             cmdToggle,
	"toggle":        cmdToggle,
	"pause":         cmdToggle,
	"speed":         cmdSpeed,
	"narrator":      cmdNarrator,
	"s":             cmdStatus,
	"status":        cmdStatus,
	"resume":        cmdResume,
	"stop":          cmdStop,
	"close":         cmdStop,
	"bookmark":      cmdBookmark,
	"b":             cmdBookmark,
	"bookmarks":     cmdBookmarks,
	"goto-bookmark": cmdGotoBookmark,
	"gb":            cmdGotoBookmark,
	"help":          cmdHelp,
	"?":             cmdHelp,
	"q":             cmdQuit,
	"quit":          cmdQuit,
	"exit":          cmdQuit,
}

const helpText = `Commands:
  play <chapter> [verse]  play a chapter by number or name, optionally from a verse
  verse <n>               jump to verse n of the current chapter
  next, n / prev, p       next or previous verse
  nc / pc                 next or previous chapter
  toggle, t               pause or resume
  speed [x]               set the speed, or cycle through 0.5 .. 2
  narrator <id>           switch narrator (stops playback)
  status, s               show what is playing
  resume                  continue from the last saved position
  bookmark, b             bookmark the current verse, or remove its bookmark
  bookmarks               list bookmarks
  goto-bookmark, gb <n>   play bookmark n from the list
  stop                    stop playback
  quit                    leave`

// parseCommand parses one prompt line
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}

	kind, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q, try 'help'", fields[0])
	}
	args := fields[1:]
	cmd := command{kind: kind}

	switch kind {
	case cmdPlay:
		if len(args) == 0 {
			return command{}, fmt.Errorf("usage: play <chapter> [verse]")
		}
		// A trailing number after a chapter is the verse.
		if len(args) > 1 {
			if v, err := strconv.Atoi(args[len(args)-1]); err == nil {
				if v < 1 {
					return command{}, fmt.Errorf("verse must be 1 or more")
				}
				cmd.verse = v
				args = args[:len(args)-1]
			}
		}
		cmd.query = strings.Join(args, " ")

	case cmdVerse:
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: verse <n>")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return command{}, fmt.Errorf("invalid verse %q", args[0])
		}
		cmd.verse = v

	case cmdSpeed:
		if len(args) == 0 {
			return cmd, nil
		}
		s, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "x"), 64)
		if err != nil || !engine.ValidSpeed(s) {
			return command{}, fmt.Errorf("speed must be one of %s", speedList())
		}
		cmd.speed = s

	case cmdGotoBookmark:
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: goto-bookmark <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("invalid bookmark %q", args[0])
		}
		cmd.bookmark = n

	case cmdNarrator:
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: narrator <id>")
		}
		cmd.narrator = args[0]

	default:
		if len(args) > 0 {
			return command{}, fmt.Errorf("%s takes no arguments", fields[0])
		}
	}

	return cmd, nil
}

func speedList() string {
	parts := make([]string, len(engine.Speeds))
	for i, s := range engine.Speeds {
		parts[i] = strconv.FormatFloat(s, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// formatState renders a snapshot as one status line
func formatState(s engine.State) string {
	if s.Loading {
		if s.Queue != nil {
			return fmt.Sprintf("… loading next chapter after %d %s", s.Queue.Chapter(), s.Queue.Name())
		}
		return "… loading"
	}

	v, ok := s.Verse()
	if !ok {
		return fmt.Sprintf("■ stopped [%s]", s.Narrator)
	}

	icon := "▶"
	if !s.IsPlaying {
		icon = "⏸"
	}
	return fmt.Sprintf("%s %d:%d %s (%d/%d) [%s, %s mode, %sx]",
		icon, v.ChapterNumber, v.IndexInChapter, s.Queue.Name(),
		s.CurrentIndex+1, s.Queue.Len(),
		s.Narrator, s.Mode, strconv.FormatFloat(s.Speed, 'g', -1, 64))
}
