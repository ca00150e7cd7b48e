package trainingload

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func TestFinalizeActivity_FirstUpdate(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())
	completed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	state, err := tracker.FinalizeActivity(ctx, "athlete-1", 80, completed)
	if err != nil {
		t.Fatalf("FinalizeActivity failed: %v", err)
	}

	// First update folds against zero with one day elapsed.
	wantATL := 80 * (1 - math.Exp(-1.0/TauATL))
	wantCTL := 80 * (1 - math.Exp(-1.0/TauCTL))
	if math.Abs(state.ATL-wantATL) > 1e-9 {
		t.Errorf("Expected ATL %.6f, got %.6f", wantATL, state.ATL)
	}
	if math.Abs(state.CTL-wantCTL) > 1e-9 {
		t.Errorf("Expected CTL %.6f, got %.6f", wantCTL, state.CTL)
	}
	if !state.LastUpdate.Equal(completed) {
		t.Errorf("Expected last update %v, got %v", completed, state.LastUpdate)
	}
}

func TestFinalizeActivity_Recurrence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTracker(store)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, "athlete-1", &State{ATL: 50, CTL: 50, LastUpdate: first}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Exactly tau_ATL days later, with stress 80:
	// ATL = 50*e^-1 + 80*(1 - e^-1) ~= 68.9
	state, err := tracker.FinalizeActivity(ctx, "athlete-1", 80, first.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("FinalizeActivity failed: %v", err)
	}

	wantATL := 50*math.Exp(-1) + 80*(1-math.Exp(-1))
	if math.Abs(state.ATL-wantATL) > 1e-9 {
		t.Errorf("Expected ATL %.6f, got %.6f", wantATL, state.ATL)
	}
	if math.Abs(wantATL-68.9) > 0.1 {
		t.Errorf("Sanity: expected ATL near 68.9, formula gives %.4f", wantATL)
	}

	wantCTL := 50*math.Exp(-7.0/42) + 80*(1-math.Exp(-7.0/42))
	if math.Abs(state.CTL-wantCTL) > 1e-9 {
		t.Errorf("Expected CTL %.6f, got %.6f", wantCTL, state.CTL)
	}

	// ATL moves faster than CTL toward the new stress level.
	if state.ATL <= state.CTL {
		t.Errorf("Expected ATL (%.2f) above CTL (%.2f) after a hard day", state.ATL, state.CTL)
	}
}

func TestFinalizeActivity_CustomTimeConstants(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTrackerWithTau(store, 3, 14)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, "athlete-1", &State{ATL: 50, CTL: 50, LastUpdate: first}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	state, err := tracker.FinalizeActivity(ctx, "athlete-1", 80, first.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("FinalizeActivity failed: %v", err)
	}

	wantATL := 50*math.Exp(-1) + 80*(1-math.Exp(-1))
	wantCTL := 50*math.Exp(-3.0/14) + 80*(1-math.Exp(-3.0/14))
	if math.Abs(state.ATL-wantATL) > 1e-9 {
		t.Errorf("Expected ATL %.6f with tau 3, got %.6f", wantATL, state.ATL)
	}
	if math.Abs(state.CTL-wantCTL) > 1e-9 {
		t.Errorf("Expected CTL %.6f with tau 14, got %.6f", wantCTL, state.CTL)
	}
}

func TestNewTrackerWithTau_ZeroSelectsDefaults(t *testing.T) {
	tracker := NewTrackerWithTau(NewMemoryStore(), 0, -1)
	if tracker.tauATL != TauATL || tracker.tauCTL != TauCTL {
		t.Errorf("Expected default time constants, got %.1f/%.1f", tracker.tauATL, tracker.tauCTL)
	}
}

func TestFinalizeActivity_RejectsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTracker(store)

	last := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	saved := &State{ATL: 60, CTL: 55, LastUpdate: last}
	if err := store.Save(ctx, "athlete-1", saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := tracker.FinalizeActivity(ctx, "athlete-1", 80, last.Add(-24*time.Hour))
	var ooo *OutOfOrderUpdateError
	if !errors.As(err, &ooo) {
		t.Fatalf("Expected OutOfOrderUpdateError, got %v", err)
	}

	// State must be untouched by the rejected update.
	got, err := store.Load(ctx, "athlete-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ATL != saved.ATL || got.CTL != saved.CTL || !got.LastUpdate.Equal(saved.LastUpdate) {
		t.Errorf("Expected state unchanged after rejection, got %+v", got)
	}
}

func TestFinalizeActivity_SameTimestampAccepted(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())
	completed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := tracker.FinalizeActivity(ctx, "athlete-1", 80, completed); err != nil {
		t.Fatalf("First update failed: %v", err)
	}
	// Zero elapsed time decays nothing and adds nothing; not an error.
	if _, err := tracker.FinalizeActivity(ctx, "athlete-1", 40, completed); err != nil {
		t.Errorf("Expected same-timestamp update to be accepted, got %v", err)
	}
}

func TestSnapshot_DecayOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTracker(store)

	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, "athlete-1", &State{ATL: 70, CTL: 60, LastUpdate: last}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err := tracker.Snapshot(ctx, "athlete-1", last.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	wantATL := 70 * math.Exp(-1)
	wantCTL := 60 * math.Exp(-7.0/42)
	if math.Abs(snap.ATL-wantATL) > 1e-9 {
		t.Errorf("Expected ATL %.6f, got %.6f", wantATL, snap.ATL)
	}
	if math.Abs(snap.CTL-wantCTL) > 1e-9 {
		t.Errorf("Expected CTL %.6f, got %.6f", wantCTL, snap.CTL)
	}
	if math.Abs(snap.RSB-(wantCTL-wantATL)) > 1e-9 {
		t.Errorf("Expected RSB %.6f, got %.6f", wantCTL-wantATL, snap.RSB)
	}
	if snap.Interpretation != Interpret(snap.RSB) {
		t.Errorf("Interpretation %q does not match RSB %.2f", snap.Interpretation, snap.RSB)
	}
}

func TestSnapshot_UnknownAthlete(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())

	snap, err := tracker.Snapshot(context.Background(), "nobody", time.Now())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ATL != 0 || snap.CTL != 0 || snap.RSB != 0 {
		t.Errorf("Expected zero state for unknown athlete, got %+v", snap)
	}
}

func TestSnapshot_BeforeLastUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTracker(store)

	last := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, "athlete-1", &State{ATL: 60, CTL: 55, LastUpdate: last}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := tracker.Snapshot(ctx, "athlete-1", last.Add(-time.Hour))
	var ooo *OutOfOrderUpdateError
	if !errors.As(err, &ooo) {
		t.Fatalf("Expected OutOfOrderUpdateError, got %v", err)
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		rsb  float64
		want string
	}{
		{25, "fresh"},
		{10.1, "fresh"},
		{10, "balanced"},
		{0, "balanced"},
		{-10, "fatigued"},
		{-30, "fatigued"},
	}
	for _, tt := range tests {
		if got := Interpret(tt.rsb); got != tt.want {
			t.Errorf("Interpret(%.1f) = %q, want %q", tt.rsb, got, tt.want)
		}
	}
}

func TestComputeRSS(t *testing.T) {
	// One hour at critical power is 100 by definition.
	rss, err := ComputeRSS(3600, 280, 280)
	if err != nil {
		t.Fatalf("ComputeRSS failed: %v", err)
	}
	if math.Abs(rss-100) > 1e-9 {
		t.Errorf("Expected RSS 100, got %.4f", rss)
	}

	// Half an hour at 110% scores (0.5)*(1.21)*100
	rss, err = ComputeRSS(1800, 308, 280)
	if err != nil {
		t.Fatalf("ComputeRSS failed: %v", err)
	}
	if math.Abs(rss-60.5) > 1e-9 {
		t.Errorf("Expected RSS 60.5, got %.4f", rss)
	}

	if _, err := ComputeRSS(3600, 280, 0); err == nil {
		t.Error("Expected error for non-positive critical power")
	}
}

func TestFinalizeActivity_ConcurrentAthletes(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for a := 0; a < 10; a++ {
		athleteID := string(rune('a' + a))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for day := 0; day < 20; day++ {
				if _, err := tracker.FinalizeActivity(ctx, athleteID, 60, base.Add(time.Duration(day)*24*time.Hour)); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent update failed: %v", err)
	}

	snap, err := tracker.Snapshot(ctx, "a", base.Add(19*24*time.Hour))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ATL <= 0 || snap.CTL <= 0 {
		t.Errorf("Expected accumulated load, got %+v", snap)
	}
}
