package game

import (
	"fmt"
	"time"
)

type Condition string

const (
	ConditionHospitalization  Condition = "hospitalization"
	ConditionMentalBreakdown  Condition = "mental_breakdown"
	ConditionBankruptcy       Condition = "bankruptcy"
	ConditionReputationCrisis Condition = "reputation_crisis"
	ConditionMoralReckoning   Condition = "moral_reckoning"
	ConditionBurnout          Condition = "burnout"
	ConditionBlackout         Condition = "blackout"
)

// Counters are session counters the watcher reads but never writes.
type Counters struct {
	Turn              int `json:"turn"`
	TurnsWithoutBreak int `json:"turns_without_break"`
}

// Latch marks a one-shot crisis as already fired. TurnsLeft counts down on
// every completed turn and the latch clears when it reaches zero.
type Latch struct {
	Armed     bool `json:"armed"`
	TurnsLeft int  `json:"turns_left"`
}

type crisisRule struct {
	condition Condition
	latched   bool
	turns     int
	fires     func(Snapshot, Counters) bool
}

// crisisRules are evaluated in order and the first match wins.
var crisisRules = []crisisRule{
	{ConditionHospitalization, true, 3, func(s Snapshot, _ Counters) bool {
		return s.Stats.Stress >= StatMax
	}},
	{ConditionMentalBreakdown, true, 2, func(s Snapshot, _ Counters) bool {
		return s.Stats.Emotion <= StatMin
	}},
	{ConditionBankruptcy, false, 0, func(s Snapshot, _ Counters) bool {
		return s.Financials.BankBalance < BankruptcyThreshold
	}},
	{ConditionReputationCrisis, false, 0, func(s Snapshot, _ Counters) bool {
		return s.Stats.Reputation < CrisisStatFloor
	}},
	{ConditionMoralReckoning, false, 0, func(s Snapshot, _ Counters) bool {
		return s.Stats.Karma < CrisisStatFloor
	}},
	{ConditionBurnout, false, 0, func(_ Snapshot, c Counters) bool {
		return c.TurnsWithoutBreak >= BurnoutTurns
	}},
	{ConditionBlackout, true, 1, func(s Snapshot, _ Counters) bool {
		return s.Stats.Stress >= 90 && s.Stats.Emotion <= 10
	}},
}

func (c Condition) Valid() bool {
	for _, r := range crisisRules {
		if r.condition == c {
			return true
		}
	}
	return false
}

// SpecialConditionWatcher turns threshold breaches into forced scenarios.
// It owns its latches and never touches the attribute store.
type SpecialConditionWatcher struct {
	crises  map[Condition]Template
	latches map[Condition]Latch
	now     func() time.Time
}

func NewSpecialConditionWatcher(c *Catalog, now func() time.Time) *SpecialConditionWatcher {
	if now == nil {
		now = time.Now
	}
	return &SpecialConditionWatcher{
		crises:  c.Crises,
		latches: make(map[Condition]Latch),
		now:     now,
	}
}

// Evaluate returns the forced scenario for the first matching rule, or nil.
// Firing a latched rule arms its latch so it stays silent until cleared.
func (w *SpecialConditionWatcher) Evaluate(s Snapshot, c Counters) (*Instance, Condition) {
	for _, rule := range crisisRules {
		if rule.latched && w.latches[rule.condition].Armed {
			continue
		}
		if !rule.fires(s, c) {
			continue
		}
		tmpl, ok := w.crises[rule.condition]
		if !ok {
			continue
		}
		if rule.latched {
			w.latches[rule.condition] = Latch{Armed: true, TurnsLeft: rule.turns}
		}
		inst := instantiate(tmpl, rule.condition, w.now())
		return &inst, rule.condition
	}
	return nil, ""
}

func (w *SpecialConditionWatcher) Latched(c Condition) bool {
	return w.latches[c].Armed
}

func (w *SpecialConditionWatcher) Clear(c Condition) {
	delete(w.latches, c)
}

// EndTurn counts down armed latches and clears the expired ones.
func (w *SpecialConditionWatcher) EndTurn() {
	for cond, l := range w.latches {
		l.TurnsLeft--
		if l.TurnsLeft <= 0 {
			delete(w.latches, cond)
			continue
		}
		w.latches[cond] = l
	}
}

func (w *SpecialConditionWatcher) Latches() map[Condition]Latch {
	out := make(map[Condition]Latch, len(w.latches))
	for k, v := range w.latches {
		out[k] = v
	}
	return out
}

func (w *SpecialConditionWatcher) restore(latches map[Condition]Latch) error {
	next := make(map[Condition]Latch, len(latches))
	for cond, l := range latches {
		if !cond.Valid() {
			return fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, cond)
		}
		if l.Armed {
			next[cond] = l
		}
	}
	w.latches = next
	return nil
}
