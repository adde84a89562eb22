package content

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"recital/store"
)

type countingSource struct {
	listCalls    int
	detailCalls  map[detailsKey]int
	timed        bool
	detailsError error
}

func newCountingSource(timed bool) *countingSource {
	return &countingSource{detailCalls: make(map[detailsKey]int), timed: timed}
}

func (s *countingSource) ChapterList(ctx context.Context) ([]Chapter, error) {
	s.listCalls++
	return []Chapter{{Number: 1, DisplayName: "Al-Faatiha", VerseCount: 2}}, nil
}

func (s *countingSource) ChapterDetails(ctx context.Context, number int, narrator string) (*Details, error) {
	s.detailCalls[detailsKey{number, narrator}]++
	if s.detailsError != nil {
		return nil, s.detailsError
	}
	return testDetails(number, narrator, s.timed), nil
}

func testDetails(number int, narrator string, timed bool) *Details {
	d := &Details{Number: number, DisplayName: "Chapter"}
	for i := 1; i <= 2; i++ {
		v := Verse{GlobalID: i, IndexInChapter: i, ChapterNumber: number, AudioURL: narrator + ".mp3"}
		if timed {
			v.StartMs, v.EndMs = (i-1)*1000, i*1000
		}
		d.Verses = append(d.Verses, v)
	}
	if timed {
		d.ChapterAudioURL = narrator + "-chapter.mp3"
	}
	return d
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCache_ChapterListFetchedOnce(t *testing.T) {
	src := newCountingSource(false)
	c := NewCache(src, openStore(t), nil)

	for i := 0; i < 3; i++ {
		if _, err := c.ChapterList(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if src.listCalls != 1 {
		t.Errorf("source list calls = %d, want 1", src.listCalls)
	}
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	db := openStore(t)
	src := newCountingSource(false)
	ctx := context.Background()

	if _, err := NewCache(src, db, nil).ChapterDetails(ctx, 5, "ar.minshawi"); err != nil {
		t.Fatal(err)
	}
	d, err := NewCache(src, db, nil).ChapterDetails(ctx, 5, "ar.minshawi")
	if err != nil {
		t.Fatal(err)
	}
	if d.Number != 5 {
		t.Errorf("Number = %d, want 5", d.Number)
	}
	if got := src.detailCalls[detailsKey{5, "ar.minshawi"}]; got != 1 {
		t.Errorf("source detail calls = %d, want 1", got)
	}
}

func TestCache_KeyedByNarrator(t *testing.T) {
	src := newCountingSource(false)
	c := NewCache(src, nil, nil)
	ctx := context.Background()

	c.ChapterDetails(ctx, 1, "a")
	c.ChapterDetails(ctx, 1, "b")
	c.ChapterDetails(ctx, 1, "a")

	if src.detailCalls[detailsKey{1, "a"}] != 1 || src.detailCalls[detailsKey{1, "b"}] != 1 {
		t.Errorf("detail calls = %v, want one per narrator", src.detailCalls)
	}
}

func TestCache_DiscardsStaleUntimedEntry(t *testing.T) {
	db := openStore(t)
	payload, _ := json.Marshal(testDetails(2, "ar.alafasy", false))
	if err := db.PutChapterDetails(2, "ar.alafasy", payload); err != nil {
		t.Fatal(err)
	}

	src := newCountingSource(true)
	c := NewCache(src, db, fakeTimings{"ar.alafasy": 7})

	d, err := c.ChapterDetails(context.Background(), 2, "ar.alafasy")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Timed() {
		t.Error("stale untimed entry should have been refetched with timing")
	}
	if got := src.detailCalls[detailsKey{2, "ar.alafasy"}]; got != 1 {
		t.Errorf("source detail calls = %d, want 1", got)
	}

	raw, ok, _ := db.ChapterDetails(2, "ar.alafasy")
	var stored Details
	if !ok || json.Unmarshal(raw, &stored) != nil || !stored.Timed() {
		t.Error("fresh timed entry should replace the stale one in the store")
	}
}

func TestCache_TimingFallbackKeptInMemory(t *testing.T) {
	db := openStore(t)
	src := newCountingSource(false)
	c := NewCache(src, db, fakeTimings{"ar.alafasy": 7})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	key := detailsKey{3, "ar.alafasy"}

	tests := []struct {
		name      string
		advance   time.Duration
		wantCalls int
	}{
		{"first fetch", 0, 1},
		{"served from memory", time.Minute, 1},
		{"refetched after ttl", FallbackTTL, 2},
	}

	for _, tt := range tests {
		now = now.Add(tt.advance)
		if _, err := c.ChapterDetails(ctx, 3, "ar.alafasy"); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got := src.detailCalls[key]; got != tt.wantCalls {
			t.Errorf("%s: source detail calls = %d, want %d", tt.name, got, tt.wantCalls)
		}
	}

	if _, ok, _ := db.ChapterDetails(3, "ar.alafasy"); ok {
		t.Error("untimed fallback should not be persisted")
	}
}

func TestCache_Purge(t *testing.T) {
	db := openStore(t)
	src := newCountingSource(false)
	c := NewCache(src, db, nil)
	ctx := context.Background()

	c.ChapterList(ctx)
	c.ChapterDetails(ctx, 1, "a")
	if err := c.Purge(); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	c.ChapterDetails(ctx, 1, "a")
	c.ChapterList(ctx)

	if got := src.detailCalls[detailsKey{1, "a"}]; got != 2 {
		t.Errorf("source detail calls = %d, want 2 after purge", got)
	}
	if src.listCalls != 1 {
		t.Errorf("source list calls = %d, want 1 (list survives purge)", src.listCalls)
	}
}

func TestCache_PropagatesFetchError(t *testing.T) {
	src := newCountingSource(false)
	src.detailsError = ErrNotFound
	c := NewCache(src, nil, nil)

	if _, err := c.ChapterDetails(context.Background(), 1, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
