package assets

import (
	"embed"
	"encoding/json"
	"log/slog"
	"sync"
)

//go:embed narrators.json
var catalogFS embed.FS

// Narrator is one recitation voice track.
type Narrator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// TimingID identifies the narrator on the verse timing service. Zero
	// means only per-verse audio exists.
	TimingID int `json:"timing_id,omitempty"`
}

// SupportsTiming reports whether chapter-level audio with verse timings is
// published for the narrator.
func (n Narrator) SupportsTiming() bool {
	return n.TimingID > 0
}

// Catalog holds the narrators known to the player
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]Narrator
	order []Narrator
}

var (
	catalog  *Catalog
	initOnce sync.Once
)

// GetCatalog returns the singleton narrator catalog
func GetCatalog() *Catalog {
	initOnce.Do(func() {
		data, err := catalogFS.ReadFile("narrators.json")
		if err != nil {
			slog.Error("Failed to read narrator catalog", slog.Any("error", err))
			catalog = NewCatalog(nil)
			return
		}
		var narrators []Narrator
		if err := json.Unmarshal(data, &narrators); err != nil {
			slog.Error("Failed to decode narrator catalog", slog.Any("error", err))
		}
		catalog = NewCatalog(narrators)
	})
	return catalog
}

// NewCatalog builds a catalog from an explicit narrator list.
func NewCatalog(narrators []Narrator) *Catalog {
	c := &Catalog{byID: make(map[string]Narrator, len(narrators))}
	for _, n := range narrators {
		if _, dup := c.byID[n.ID]; dup {
			continue
		}
		c.byID[n.ID] = n
		c.order = append(c.order, n)
	}
	return c
}

// Lookup retrieves a narrator by identifier
func (c *Catalog) Lookup(id string) (Narrator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.byID[id]
	return n, ok
}

// SupportsTiming reports whether the narrator has chapter-level timing data.
// Unknown narrators never do.
func (c *Catalog) SupportsTiming(id string) bool {
	n, ok := c.Lookup(id)
	return ok && n.SupportsTiming()
}

// TimingID returns the narrator's identifier on the verse timing service.
func (c *Catalog) TimingID(id string) (int, bool) {
	n, ok := c.Lookup(id)
	if !ok || !n.SupportsTiming() {
		return 0, false
	}
	return n.TimingID, true
}

// All returns the narrators in catalog order
func (c *Catalog) All() []Narrator {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Narrator, len(c.order))
	copy(out, c.order)
	return out
}
