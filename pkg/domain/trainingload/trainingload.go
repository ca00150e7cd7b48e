// Package trainingload maintains each athlete's rolling training-load
// state: acute load (ATL), chronic load (CTL), and the stress balance
// derived from them.
package trainingload

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// TauATL and TauCTL are the default exponential time constants, in
	// days, of the acute and chronic load averages.
	TauATL = 7.0
	TauCTL = 42.0
)

// State is the persisted per-athlete load state. ATL and CTL decay
// exponentially between updates; LastUpdate anchors the decay.
type State struct {
	ATL        float64   `json:"atl" firestore:"atl"`
	CTL        float64   `json:"ctl" firestore:"ctl"`
	LastUpdate time.Time `json:"last_update" firestore:"last_update"`
}

// Snapshot is a read-only projection of an athlete's state to a point in
// time. RSB (running stress balance) is CTL minus ATL: positive means
// fresher than baseline, negative means fatigued.
type Snapshot struct {
	ATL            float64   `json:"atl" yaml:"atl"`
	CTL            float64   `json:"ctl" yaml:"ctl"`
	RSB            float64   `json:"rsb" yaml:"rsb"`
	AsOf           time.Time `json:"as_of" yaml:"as_of"`
	Interpretation string    `json:"interpretation" yaml:"interpretation"`
}

// OutOfOrderUpdateError rejects an activity whose completion time
// precedes the athlete's last recorded update. The recurrence only moves
// forward; late arrivals must be replayed in order by the caller.
type OutOfOrderUpdateError struct {
	AthleteID   string
	CompletedAt time.Time
	LastUpdate  time.Time
}

func (e *OutOfOrderUpdateError) Error() string {
	return fmt.Sprintf("out-of-order load update for athlete %s: activity at %s precedes last update %s",
		e.AthleteID, e.CompletedAt.Format(time.RFC3339), e.LastUpdate.Format(time.RFC3339))
}

// Store persists per-athlete load state. Load returns (nil, nil) for an
// athlete with no recorded state yet.
type Store interface {
	Load(ctx context.Context, athleteID string) (*State, error)
	Save(ctx context.Context, athleteID string, state *State) error
}

// MemoryStore is an in-process Store, suitable for tests and the CLI.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Load(_ context.Context, athleteID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[athleteID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, athleteID string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[athleteID] = *state
	return nil
}

// Tracker applies activity stress scores to athlete load state. Updates
// for the same athlete are serialized; different athletes proceed
// concurrently.
type Tracker struct {
	store  Store
	tauATL float64
	tauCTL float64
	locks  sync.Map // athleteID -> *sync.Mutex
}

func NewTracker(store Store) *Tracker {
	return NewTrackerWithTau(store, TauATL, TauCTL)
}

// NewTrackerWithTau builds a tracker with custom time constants in
// days. Non-positive values select the defaults.
func NewTrackerWithTau(store Store, tauATLDays, tauCTLDays float64) *Tracker {
	if tauATLDays <= 0 {
		tauATLDays = TauATL
	}
	if tauCTLDays <= 0 {
		tauCTLDays = TauCTL
	}
	return &Tracker{store: store, tauATL: tauATLDays, tauCTL: tauCTLDays}
}

func (t *Tracker) lockFor(athleteID string) *sync.Mutex {
	mu, _ := t.locks.LoadOrStore(athleteID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FinalizeActivity folds one activity's stress score into the athlete's
// load state and returns the updated state. The first update for an
// athlete is treated as one day elapsed. An activity completed before
// the last update is rejected and leaves the state unchanged.
func (t *Tracker) FinalizeActivity(ctx context.Context, athleteID string, stress float64, completedAt time.Time) (*State, error) {
	mu := t.lockFor(athleteID)
	mu.Lock()
	defer mu.Unlock()

	prev, err := t.store.Load(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading load state for %s: %w", athleteID, err)
	}

	var next State
	if prev == nil {
		elapsed := 1.0
		next = State{
			ATL:        fold(0, stress, elapsed, t.tauATL),
			CTL:        fold(0, stress, elapsed, t.tauCTL),
			LastUpdate: completedAt,
		}
	} else {
		if completedAt.Before(prev.LastUpdate) {
			return nil, &OutOfOrderUpdateError{AthleteID: athleteID, CompletedAt: completedAt, LastUpdate: prev.LastUpdate}
		}
		elapsed := completedAt.Sub(prev.LastUpdate).Hours() / 24
		next = State{
			ATL:        fold(prev.ATL, stress, elapsed, t.tauATL),
			CTL:        fold(prev.CTL, stress, elapsed, t.tauCTL),
			LastUpdate: completedAt,
		}
	}

	if err := t.store.Save(ctx, athleteID, &next); err != nil {
		return nil, fmt.Errorf("saving load state for %s: %w", athleteID, err)
	}
	return &next, nil
}

// Snapshot projects the athlete's state forward to asOf using pure decay
// (no new stress). An athlete with no state snapshots to all zeros. An
// asOf before the last update is an out-of-order read.
func (t *Tracker) Snapshot(ctx context.Context, athleteID string, asOf time.Time) (*Snapshot, error) {
	st, err := t.store.Load(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading load state for %s: %w", athleteID, err)
	}
	if st == nil {
		return &Snapshot{AsOf: asOf, Interpretation: Interpret(0)}, nil
	}
	if asOf.Before(st.LastUpdate) {
		return nil, &OutOfOrderUpdateError{AthleteID: athleteID, CompletedAt: asOf, LastUpdate: st.LastUpdate}
	}

	elapsed := asOf.Sub(st.LastUpdate).Hours() / 24
	atl := st.ATL * math.Exp(-elapsed/t.tauATL)
	ctl := st.CTL * math.Exp(-elapsed/t.tauCTL)
	rsb := ctl - atl
	return &Snapshot{
		ATL:            atl,
		CTL:            ctl,
		RSB:            rsb,
		AsOf:           asOf,
		Interpretation: Interpret(rsb),
	}, nil
}

// fold applies one step of the exponentially weighted recurrence:
// new = old * e^(-dt/tau) + stress * (1 - e^(-dt/tau)).
func fold(old, stress, elapsedDays, tau float64) float64 {
	decay := math.Exp(-elapsedDays / tau)
	return old*decay + stress*(1-decay)
}

// Interpret maps a stress balance to a coaching label.
func Interpret(rsb float64) string {
	switch {
	case rsb > 10:
		return "fresh"
	case rsb > -10:
		return "balanced"
	default:
		return "fatigued"
	}
}

// ComputeRSS estimates the running stress score of an activity from its
// duration and average power relative to the athlete's critical power:
// one hour at critical power scores 100.
func ComputeRSS(durationS, avgPower, criticalPower float64) (float64, error) {
	if criticalPower <= 0 {
		return 0, fmt.Errorf("critical power must be positive, got %.1f", criticalPower)
	}
	if durationS <= 0 || avgPower <= 0 {
		return 0, nil
	}
	ratio := avgPower / criticalPower
	return (durationS / 3600) * ratio * ratio * 100, nil
}
