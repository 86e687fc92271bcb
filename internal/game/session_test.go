package game

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSessionCrisisFlow(t *testing.T) {
	s := testSession(t)
	s.attrs.Restore(snapshotWith(func(snap *Snapshot) { snap.Stats.Stress = 100 }))

	inst, err := s.NextScenario()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if inst.Condition != ConditionHospitalization {
		t.Fatalf("expected forced hospitalization, got %+v", inst)
	}
	again, _ := s.NextScenario()
	if again.ID != inst.ID {
		t.Fatalf("pending scenario was replaced")
	}

	if _, err := s.Choose(inst.ID, "dance"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
	if _, err := s.Choose("other", "ignore"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	res, err := s.Choose(inst.ID, "ignore")
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if res.Forced != nil {
		t.Fatalf("latched crisis fired again: %+v", res.Forced)
	}
	if !s.watcher.Latched(ConditionHospitalization) {
		t.Fatalf("non-recovering option cleared the latch")
	}
	if res.Snapshot.Financials.BankBalance != StarterBankBalance-5000 || res.Snapshot.Stats.Karma != 40 {
		t.Fatalf("delta not applied: %+v", res.Snapshot)
	}
}

func TestSessionRecoveringOptionClearsLatch(t *testing.T) {
	s := testSession(t)
	s.attrs.Restore(snapshotWith(func(snap *Snapshot) { snap.Stats.Stress = 100 }))
	inst, _ := s.NextScenario()

	res, err := s.Choose(inst.ID, "rest")
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if res.Cleared != ConditionHospitalization || s.watcher.Latched(ConditionHospitalization) {
		t.Fatalf("recovering option did not clear latch: %+v", res)
	}
	if res.Snapshot.Stats.Stress != 40 {
		t.Fatalf("stress got=%d want=40", res.Snapshot.Stats.Stress)
	}
}

func TestSessionBurnoutAfterSixTurns(t *testing.T) {
	s := testSession(t)
	for i := 0; i < BurnoutTurns; i++ {
		inst, err := s.NextScenario()
		if err != nil {
			t.Fatalf("turn %d next: %v", i, err)
		}
		if inst.Forced() {
			t.Fatalf("turn %d: crisis too early: %s", i, inst.Condition)
		}
		res, err := s.Choose(inst.ID, "work")
		if err != nil {
			t.Fatalf("turn %d choose: %v", i, err)
		}
		if i == BurnoutTurns-1 {
			if res.Forced == nil || res.Forced.Condition != ConditionBurnout {
				t.Fatalf("expected burnout after %d turns, got %+v", BurnoutTurns, res.Forced)
			}
		}
	}

	inst, _ := s.NextScenario()
	if _, err := s.Choose(inst.ID, "vacation"); err != nil {
		t.Fatalf("vacation: %v", err)
	}
	if got := s.Dashboard().TurnsWithoutBreak; got != 0 {
		t.Fatalf("rest option did not reset counter: %d", got)
	}
}

func TestSessionRestResetsCounter(t *testing.T) {
	s := testSession(t)
	s.counters.TurnsWithoutBreak = 4
	snap, err := s.Rest()
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if s.counters.TurnsWithoutBreak != 0 || snap.Stats.Energy != 95 || snap.Stats.Stress != 15 {
		t.Fatalf("unexpected rest result %+v counters=%+v", snap, s.counters)
	}
}

func TestSessionMutationTriggersWatcher(t *testing.T) {
	s := testSession(t)
	s.attrs.Restore(snapshotWith(func(snap *Snapshot) { snap.Financials.BankBalance = 60_000 }))
	if _, err := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)}); err != nil {
		t.Fatalf("hire: %v", err)
	}
	if s.pending != nil {
		t.Fatalf("unexpected crisis after affordable hire")
	}
	s.attrs.ApplyDelta(Delta{Financial: FinancialDelta{BankBalance: -200_000}})
	if _, err := s.Rest(); err != nil {
		t.Fatalf("rest: %v", err)
	}
	if s.pending == nil || s.pending.Condition != ConditionBankruptcy {
		t.Fatalf("expected bankruptcy to be pending, got %+v", s.pending)
	}
}

func TestSessionAdvanceSettlesMonths(t *testing.T) {
	s := testSession(t)
	report, err := s.Advance(0.25)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.Months != 3 || report.Settled != 135_000 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := s.Snapshot().Financials.BankBalance; got != StarterBankBalance+135_000 {
		t.Fatalf("bank got=%d", got)
	}

	if _, err := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)}); err != nil {
		t.Fatalf("hire: %v", err)
	}
	bank := s.Snapshot().Financials.BankBalance
	report, err = s.Advance(0.25)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if report.Settled != -15_000 || report.PayrollMissed != 0 {
		t.Fatalf("unexpected report with staff %+v", report)
	}
	if got := s.Snapshot().Financials.BankBalance; got != bank-15_000 {
		t.Fatalf("bank got=%d want=%d", got, bank-15_000)
	}

	if _, err := s.Advance(-1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSessionAdvanceClampsToGameLength(t *testing.T) {
	s := testSession(t)
	if _, err := s.Advance(4.5); err != nil {
		t.Fatalf("advance: %v", err)
	}
	rec, err := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)})
	if err != nil {
		t.Fatalf("hire: %v", err)
	}

	done := make(chan AdvanceReport, 1)
	go func() {
		report, err := s.Advance(1e9)
		if err != nil {
			t.Errorf("advance: %v", err)
		}
		done <- report
	}()
	var report AdvanceReport
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Advance(1e9) did not return")
	}

	if report.Months != 6 || report.ElapsedYears != GameLengthYears {
		t.Fatalf("expected 6 months up to the end, got %+v", report)
	}
	if report.Ending == "" {
		t.Fatalf("expected the game to end")
	}
	got := s.Records()[0]
	if got.ID != rec.ID || got.TenureYears != 0.5 {
		t.Fatalf("tenure got=%v want=0.5", got.TenureYears)
	}
}

func TestSessionAdvancePromotesByTenure(t *testing.T) {
	s := testSession(t)
	rec, _ := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)})
	report, err := s.Advance(1)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(report.Tick.Promotions) != 1 || report.Tick.Promotions[0].RecordID != rec.ID {
		t.Fatalf("expected tenure promotion, got %+v", report.Tick)
	}
}

func TestSessionEndings(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Snapshot)
		want Ending
	}{
		{"rich", func(s *Snapshot) { s.Financials.BankBalance = 20_000_000 }, EndingRich},
		{"rich but stressed", func(s *Snapshot) {
			s.Financials.BankBalance = 20_000_000
			s.Stats.Stress = 60
			s.Stats.Emotion = 70
		}, EndingBalanced},
		{"broke", func(*Snapshot) {}, EndingFailure},
	}
	for _, tc := range tests {
		s := testSession(t)
		s.attrs.Restore(snapshotWith(tc.mut))
		report, err := s.Advance(GameLengthYears)
		if err != nil {
			t.Fatalf("%s: advance: %v", tc.name, err)
		}
		if report.Ending != tc.want || s.Ending() != tc.want {
			t.Fatalf("%s: ending got=%q want=%q", tc.name, report.Ending, tc.want)
		}
		if _, err := s.Hire(HireInput{RoleID: "dev"}); !errors.Is(err, ErrGameEnded) {
			t.Fatalf("%s: expected ErrGameEnded, got %v", tc.name, err)
		}
		if _, err := s.NextScenario(); !errors.Is(err, ErrGameEnded) {
			t.Fatalf("%s: expected ErrGameEnded, got %v", tc.name, err)
		}
	}
}

func TestSessionJournalIsBounded(t *testing.T) {
	s := testSession(t)
	for i := 0; i < journalLimit+20; i++ {
		s.record("test", int64(i+1), "")
	}
	d := s.Dashboard()
	if len(d.Journal) != journalLimit {
		t.Fatalf("journal len got=%d", len(d.Journal))
	}
	if d.Journal[0].Amount != 21 {
		t.Fatalf("oldest entry got=%d want=21", d.Journal[0].Amount)
	}
}

func TestSessionSubscribe(t *testing.T) {
	s := testSession(t)
	var kinds []EventKind
	cancel := s.Subscribe(func(ev Event) {
		if ev.PlayerID != "p1" {
			t.Errorf("event for wrong player %q", ev.PlayerID)
		}
		kinds = append(kinds, ev.Kind)
	})
	s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)})
	s.NextScenario()
	cancel()
	s.Rest()

	want := []EventKind{EventPersonnel, EventScenario}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionExportImportRoundTrip(t *testing.T) {
	s := testSession(t)
	rec, _ := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)})
	s.Promote(rec.ID)
	s.AssignSector(rec.ID, "fast_food")
	s.Advance(0.5)
	s.attrs.ApplyDelta(Delta{Stats: StatDelta{Stress: 80}})
	s.Rest()
	s.attrs.ApplyDelta(Delta{Stats: StatDelta{Stress: 100}})
	s.NextScenario()

	save := s.Export()
	if save.Watcher.Pending == nil || len(save.Watcher.Latches) == 0 {
		t.Fatalf("expected pending crisis and latch in save: %+v", save.Watcher)
	}

	restored := testSession(t)
	if err := restored.Import(save); err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(save, restored.Export(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Dashboard(), restored.Dashboard(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("dashboard mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionImportRejectsBadSaves(t *testing.T) {
	s := testSession(t)
	good := s.Export()

	bad := good
	bad.Personnel.Version = 2
	if err := s.Import(bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("version: got %v", err)
	}

	bad = good
	bad.Personnel.Records = []Record{{ID: "x", Level: Level(42)}}
	if err := s.Import(bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("level: got %v", err)
	}
}
