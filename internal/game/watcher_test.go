package game

import "testing"

func TestWatcherHospitalizationLatches(t *testing.T) {
	w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
	snap := snapshotWith(func(s *Snapshot) { s.Stats.Stress = 100 })

	inst, cond := w.Evaluate(snap, Counters{})
	if inst == nil || cond != ConditionHospitalization {
		t.Fatalf("expected hospitalization, got %v", cond)
	}
	if inst.Template.ID != "c_hosp" || inst.Condition != ConditionHospitalization {
		t.Fatalf("unexpected instance %+v", inst)
	}
	if again, cond := w.Evaluate(snap, Counters{}); again != nil {
		t.Fatalf("latched rule fired twice: %v", cond)
	}

	w.Clear(ConditionHospitalization)
	if again, _ := w.Evaluate(snap, Counters{}); again == nil {
		t.Fatalf("expected rule to fire after clear")
	}
}

func TestWatcherUnlatchedRuleRepeats(t *testing.T) {
	w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
	snap := snapshotWith(func(s *Snapshot) { s.Stats.Reputation = 5 })
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		inst, cond := w.Evaluate(snap, Counters{})
		if inst == nil || cond != ConditionReputationCrisis {
			t.Fatalf("evaluation %d: expected reputation crisis, got %v", i, cond)
		}
		if seen[inst.ID] {
			t.Fatalf("instance id reused")
		}
		seen[inst.ID] = true
	}
}

func TestWatcherRuleOrder(t *testing.T) {
	tests := []struct {
		name     string
		mut      func(*Snapshot)
		counters Counters
		want     Condition
	}{
		{"nothing", func(*Snapshot) {}, Counters{}, ""},
		{"stress beats everything", func(s *Snapshot) {
			s.Stats.Stress = 100
			s.Stats.Emotion = 0
			s.Stats.Reputation = 1
		}, Counters{TurnsWithoutBreak: 9}, ConditionHospitalization},
		{"breakdown before bankruptcy", func(s *Snapshot) {
			s.Stats.Emotion = 0
			s.Financials.BankBalance = -200_000
		}, Counters{}, ConditionMentalBreakdown},
		{"bankruptcy below threshold", func(s *Snapshot) { s.Financials.BankBalance = -100_001 }, Counters{}, ConditionBankruptcy},
		{"bankruptcy threshold is strict", func(s *Snapshot) { s.Financials.BankBalance = -100_000 }, Counters{}, ""},
		{"reputation before karma", func(s *Snapshot) {
			s.Stats.Reputation = 9
			s.Stats.Karma = 9
		}, Counters{}, ConditionReputationCrisis},
		{"karma", func(s *Snapshot) { s.Stats.Karma = 9 }, Counters{}, ConditionMoralReckoning},
		{"burnout", func(*Snapshot) {}, Counters{TurnsWithoutBreak: BurnoutTurns}, ConditionBurnout},
		{"burnout before blackout", func(s *Snapshot) {
			s.Stats.Stress = 95
			s.Stats.Emotion = 5
		}, Counters{TurnsWithoutBreak: BurnoutTurns}, ConditionBurnout},
		{"blackout", func(s *Snapshot) {
			s.Stats.Stress = 90
			s.Stats.Emotion = 10
		}, Counters{}, ConditionBlackout},
	}
	for _, tc := range tests {
		w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
		_, got := w.Evaluate(snapshotWith(tc.mut), tc.counters)
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestWatcherLatchedRuleFallsThrough(t *testing.T) {
	w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
	snap := snapshotWith(func(s *Snapshot) {
		s.Stats.Stress = 100
		s.Stats.Reputation = 3
	})
	if _, cond := w.Evaluate(snap, Counters{}); cond != ConditionHospitalization {
		t.Fatalf("first: got %q", cond)
	}
	if _, cond := w.Evaluate(snap, Counters{}); cond != ConditionReputationCrisis {
		t.Fatalf("second: got %q", cond)
	}
}

func TestWatcherLatchCountdown(t *testing.T) {
	tests := []struct {
		cond  Condition
		mut   func(*Snapshot)
		turns int
	}{
		{ConditionHospitalization, func(s *Snapshot) { s.Stats.Stress = 100 }, 3},
		{ConditionMentalBreakdown, func(s *Snapshot) { s.Stats.Emotion = 0 }, 2},
		{ConditionBlackout, func(s *Snapshot) { s.Stats.Stress = 92; s.Stats.Emotion = 4 }, 1},
	}
	for _, tc := range tests {
		w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
		snap := snapshotWith(tc.mut)
		if _, cond := w.Evaluate(snap, Counters{}); cond != tc.cond {
			t.Fatalf("%s: first evaluation got %q", tc.cond, cond)
		}
		for i := 1; i < tc.turns; i++ {
			w.EndTurn()
			if !w.Latched(tc.cond) {
				t.Fatalf("%s: latch expired after %d turns", tc.cond, i)
			}
		}
		w.EndTurn()
		if w.Latched(tc.cond) {
			t.Fatalf("%s: latch still armed after %d turns", tc.cond, tc.turns)
		}
	}
}

func TestWatcherNeverMutatesSnapshot(t *testing.T) {
	w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
	store := NewAttributeStore(snapshotWith(func(s *Snapshot) { s.Stats.Stress = 100 }))
	before := store.Snapshot()
	w.Evaluate(store.Snapshot(), Counters{})
	if store.Snapshot() != before {
		t.Fatalf("watcher evaluation changed attributes")
	}
}

func TestWatcherRestoreRejectsUnknownCondition(t *testing.T) {
	w := NewSpecialConditionWatcher(testCatalog(t), fixedClock)
	w.Evaluate(snapshotWith(func(s *Snapshot) { s.Stats.Stress = 100 }), Counters{})
	if err := w.restore(map[Condition]Latch{"alien_abduction": {Armed: true, TurnsLeft: 1}}); err == nil {
		t.Fatalf("expected unknown condition to fail")
	}
	if !w.Latched(ConditionHospitalization) {
		t.Fatalf("failed restore dropped existing latches")
	}
}
