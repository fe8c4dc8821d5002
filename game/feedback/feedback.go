package feedback

import (
	"sort"
	"sync"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Jitter shape: each shake goes out by Distance pixels and back, StepDuration
// seconds per leg.
const (
	Distance     float32 = 5
	Shakes               = 5
	StepDuration float32 = 0.01
)

// Tracker runs rejection jitters for entities. It never blocks: callers
// advance it with Update or Tick and read the current offsets when drawing.
type Tracker struct {
	mu       sync.Mutex
	shakes   map[string]*gween.Sequence
	offsets  map[string]float32
	lastTick time.Time
}

// NewTracker creates an idle tracker
func NewTracker() *Tracker {
	return &Tracker{
		shakes:  make(map[string]*gween.Sequence),
		offsets: make(map[string]float32),
	}
}

func newShake() *gween.Sequence {
	seq := gween.NewSequence()
	for i := 0; i < Shakes; i++ {
		seq.Add(
			gween.New(0, Distance, StepDuration, ease.Linear),
			gween.New(Distance, 0, StepDuration, ease.Linear),
		)
	}
	return seq
}

// Trigger starts a jitter for each id. An entity that is already shaking
// starts over.
func (t *Tracker) Trigger(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		t.shakes[id] = newShake()
		t.offsets[id] = 0
	}
}

// Update advances every running jitter by dt seconds
func (t *Tracker) Update(dt float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(dt)
}

func (t *Tracker) update(dt float32) {
	for id, seq := range t.shakes {
		value, _, finished := seq.Update(dt)
		if finished {
			delete(t.shakes, id)
			delete(t.offsets, id)
			continue
		}
		t.offsets[id] = value
	}
}

// Tick advances the jitters by the wall time since the previous Tick. The
// first call only records the time.
func (t *Tracker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastTick.IsZero() && now.After(t.lastTick) {
		t.update(float32(now.Sub(t.lastTick).Seconds()))
	}
	t.lastTick = now
}

// Offset returns the current horizontal offset of an entity, zero when it
// is not shaking
func (t *Tracker) Offset(id string) float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offsets[id]
}

// Offsets returns a copy of the offsets of every shaking entity
func (t *Tracker) Offsets() map[string]float32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.offsets) == 0 {
		return nil
	}
	out := make(map[string]float32, len(t.offsets))
	for id, v := range t.offsets {
		out[id] = v
	}
	return out
}

// Active returns the ids of the entities that are shaking, sorted
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.shakes))
	for id := range t.shakes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
