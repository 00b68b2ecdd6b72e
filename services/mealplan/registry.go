package mealplan

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/antzucaro/matchr"
)

// Canteen is a physical dining location with a stable identifier and a
// display name, as exposed over the API.
type Canteen struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DirectoryStore is the persisted canteen directory the registry keeps
// in sync with its in-memory maps.
type DirectoryStore interface {
	AddCanteen(ctx context.Context, id int64, name string) error
}

// Registry is the name↔id mapping shared by every concurrently running
// refresh unit. Lookups take the shared lock, registration takes the
// exclusive lock only around the map mutation; the persistence write
// happens outside any lock and only in the task that actually won the
// insert.
type Registry struct {
	store DirectoryStore

	mu     sync.RWMutex
	byName map[string]int64
	byID   map[int64]string
}

func NewRegistry(store DirectoryStore, seed map[int64]string) *Registry {
	byName := make(map[string]int64, len(seed))
	byID := make(map[int64]string, len(seed))
	for id, name := range seed {
		byName[name] = id
		byID[id] = name
	}
	return &Registry{
		store:  store,
		byName: byName,
		byID:   byID,
	}
}

func (r *Registry) Resolve(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

func (r *Registry) Name(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byID[id]
	return name, ok
}

// Register inserts a name→id mapping if absent. Losing the insert race
// to another task is benign: the loser skips the persistence write so
// the directory store sees exactly one write per new canteen.
func (r *Registry) Register(ctx context.Context, name string, id int64) error {
	r.mu.Lock()
	existing, ok := r.byName[name]
	if ok {
		r.mu.Unlock()
		if existing != id {
			slog.WarnContext(ctx, "canteen already registered under a different id",
				"canteen", name, "registered", existing, "discarded", id)
		}
		return nil
	}
	r.byName[name] = id
	r.byID[id] = name
	r.mu.Unlock()

	return r.store.AddCanteen(ctx, id, name)
}

// Snapshot returns all known canteens sorted by id.
func (r *Registry) Snapshot() []Canteen {
	r.mu.RLock()
	canteens := make([]Canteen, 0, len(r.byID))
	for id, name := range r.byID {
		canteens = append(canteens, Canteen{ID: id, Name: name})
	}
	r.mu.RUnlock()

	sort.Slice(canteens, func(i, j int) bool {
		return canteens[i].ID < canteens[j].ID
	})
	return canteens
}

// Closest returns the registered name most similar to the given one,
// used to hint at renames when an unknown canteen shows up in a scrape.
func (r *Registry) Closest(name string) (string, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestSimilarity := 0.0
	for known := range r.byName {
		similarity := matchr.JaroWinkler(name, known, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = known
		}
	}
	return best, bestSimilarity
}
