package machine

import (
	"errors"
	"fmt"

	"recital/engine"
	"recital/store"
)

// ErrNoStore is returned by operations that need the cache database when it
// is disabled.
var ErrNoStore = errors.New("cache is disabled")

// BookmarkStore persists bookmarks
type BookmarkStore interface {
	ToggleBookmark(b store.Bookmark) (bool, error)
	Bookmarks() ([]store.Bookmark, error)
}

// ChapterPlayer starts a chapter by number
type ChapterPlayer interface {
	PlayChapterNumber(number, start int) error
}

// ToggleBookmark bookmarks the current verse, or removes its bookmark. It
// reports whether the bookmark was added.
func (m *Machine) ToggleBookmark() (store.Bookmark, bool, error) {
	if m.db == nil {
		return store.Bookmark{}, false, ErrNoStore
	}
	return toggleBookmark(m.db, m.engine.State())
}

// Bookmarks lists the saved bookmarks in reading order
func (m *Machine) Bookmarks() ([]store.Bookmark, error) {
	if m.db == nil {
		return nil, ErrNoStore
	}
	return m.db.Bookmarks()
}

// GotoBookmark plays the n-th bookmark (1-based) of Bookmarks.
func (m *Machine) GotoBookmark(n int) (store.Bookmark, error) {
	if m.db == nil {
		return store.Bookmark{}, ErrNoStore
	}
	return gotoBookmark(m.db, m.engine, n)
}

func toggleBookmark(st BookmarkStore, s engine.State) (store.Bookmark, bool, error) {
	v, ok := s.Verse()
	if !ok {
		return store.Bookmark{}, false, fmt.Errorf("nothing is playing")
	}

	b := store.Bookmark{
		GlobalID: v.GlobalID,
		Chapter:  v.ChapterNumber,
		Verse:    v.IndexInChapter,
	}
	added, err := st.ToggleBookmark(b)
	if err != nil {
		return store.Bookmark{}, false, err
	}
	return b, added, nil
}

func gotoBookmark(st BookmarkStore, p ChapterPlayer, n int) (store.Bookmark, error) {
	list, err := st.Bookmarks()
	if err != nil {
		return store.Bookmark{}, err
	}
	if n < 1 || n > len(list) {
		return store.Bookmark{}, fmt.Errorf("no bookmark %d, %d saved", n, len(list))
	}

	b := list[n-1]
	start := b.Verse - 1
	if start < 0 {
		start = 0
	}
	if err := p.PlayChapterNumber(b.Chapter, start); err != nil {
		return store.Bookmark{}, fmt.Errorf("failed to play bookmark %d:%d: %w", b.Chapter, b.Verse, err)
	}
	return b, nil
}
