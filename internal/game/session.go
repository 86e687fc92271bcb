package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	mathrand "math/rand"
	"sync"
	"time"
)

const (
	SaveVersion  = 1
	journalLimit = 100
)

type Ending string

const (
	EndingRich     Ending = "rich"
	EndingBalanced Ending = "balanced"
	EndingFailure  Ending = "failure"
)

type EventKind string

const (
	EventAttributes EventKind = "attributes"
	EventPersonnel  EventKind = "personnel"
	EventScenario   EventKind = "scenario"
	EventCrisis     EventKind = "crisis"
	EventEnded      EventKind = "ended"
)

// Event is a change notification for presentation layers.
type Event struct {
	Kind     EventKind `json:"kind"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
	Snapshot Snapshot  `json:"snapshot"`
	Detail   string    `json:"detail,omitempty"`
	Scenario *Instance `json:"scenario,omitempty"`
	Ending   Ending    `json:"ending,omitempty"`
}

// Transaction is one money movement in the session journal.
type Transaction struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Amount  int64     `json:"amount"`
	Balance int64     `json:"balance"`
	Ref     string    `json:"ref,omitempty"`
}

type ChoiceResult struct {
	Applied  Delta     `json:"applied"`
	Snapshot Snapshot  `json:"snapshot"`
	Cleared  Condition `json:"cleared,omitempty"`
	Forced   *Instance `json:"forced,omitempty"`
}

type AdvanceReport struct {
	Tick          TickReport `json:"tick"`
	Months        int        `json:"months"`
	Settled       int64      `json:"settled"`
	PayrollMissed int        `json:"payroll_missed"`
	ElapsedYears  float64    `json:"elapsed_years"`
	Ending        Ending     `json:"ending,omitempty"`
}

type SessionOptions struct {
	Weighting Weighting
	Rand      *mathrand.Rand
	Now       func() time.Time
	Logger    *slog.Logger
}

// Session is one player's game. Every exported method holds the session lock
// for its whole duration, so each call is a single transaction.
type Session struct {
	mu       sync.Mutex
	playerID string
	log      *slog.Logger
	now      func() time.Time

	attrs    *AttributeStore
	staff    *PersonnelLedger
	resolver *ScenarioResolver
	watcher  *SpecialConditionWatcher

	counters Counters
	pending  *Instance
	years    float64
	ending   Ending
	journal  []Transaction

	subs    map[int]func(Event)
	nextSub int
}

func NewSession(playerID string, catalog *Catalog, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		playerID: playerID,
		log:      opts.Logger.With("player_id", playerID),
		now:      opts.Now,
		attrs:    NewAttributeStore(DefaultSnapshot()),
		staff:    NewPersonnelLedger(catalog.Roles, opts.Rand, opts.Now),
		resolver: NewScenarioResolver(catalog, opts.Weighting, opts.Rand, opts.Now),
		watcher:  NewSpecialConditionWatcher(catalog, opts.Now),
		subs:     make(map[int]func(Event)),
	}
}

func (s *Session) PlayerID() string { return s.playerID }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs.Snapshot()
}

// Subscribe registers fn for change events and returns a cancel func. fn runs
// with the session lock held and must not call back into the session.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// NextScenario returns the pending scenario if there is one. Otherwise the
// watcher gets the first say and the resolver fills in.
func (s *Session) NextScenario() (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return Instance{}, ErrGameEnded
	}
	if s.pending != nil {
		return *s.pending, nil
	}
	s.evaluate()
	if s.pending != nil {
		return *s.pending, nil
	}
	inst, err := s.resolver.SelectOrFallback(s.attrs.Snapshot())
	if err != nil {
		return Instance{}, err
	}
	s.pending = &inst
	s.emit(Event{Kind: EventScenario, Scenario: &inst})
	return inst, nil
}

func (s *Session) Choose(instanceID, optionID string) (ChoiceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return ChoiceResult{}, ErrGameEnded
	}
	if s.pending == nil || s.pending.ID != instanceID {
		return ChoiceResult{}, fmt.Errorf("scenario %s: %w", instanceID, ErrNotFound)
	}
	inst := *s.pending
	delta, err := s.resolver.Resolve(inst, optionID)
	if err != nil {
		return ChoiceResult{}, err
	}
	opt, _ := inst.Template.Option(optionID)

	s.attrs.ApplyDelta(delta)
	s.record("scenario", delta.Financial.BankBalance, inst.Template.ID+"/"+optionID)

	var result ChoiceResult
	if inst.Forced() && opt.Recovers {
		s.watcher.Clear(inst.Condition)
		result.Cleared = inst.Condition
	}
	if opt.Rest {
		s.counters.TurnsWithoutBreak = 0
	} else {
		s.counters.TurnsWithoutBreak++
	}
	s.counters.Turn++
	s.watcher.EndTurn()
	s.pending = nil

	s.emit(Event{Kind: EventAttributes, Detail: inst.Template.ID + "/" + optionID})
	s.evaluate()

	result.Applied = delta
	result.Snapshot = s.attrs.Snapshot()
	if s.pending != nil {
		forced := *s.pending
		result.Forced = &forced
	}
	return result, nil
}

func (s *Session) Hire(in HireInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return Record{}, ErrGameEnded
	}
	rec, err := s.staff.Hire(s.attrs, in)
	if err != nil {
		return Record{}, err
	}
	s.record("hire", -rec.MonthlyCost(), rec.ID)
	s.log.Info("staff hired", "record_id", rec.ID, "role", rec.RoleID, "monthly_cost", rec.MonthlyCost())
	s.emit(Event{Kind: EventPersonnel, Detail: "hire " + rec.ID})
	s.evaluate()
	return rec, nil
}

func (s *Session) Promote(id string) (Record, error) {
	return s.personnelOp("promote", func() (Record, error) { return s.staff.Promote(s.attrs, id) })
}

func (s *Session) Demote(id string) (Record, error) {
	return s.personnelOp("demote", func() (Record, error) { return s.staff.Demote(s.attrs, id) })
}

func (s *Session) Fire(id string) (Record, error) {
	return s.personnelOp("fire", func() (Record, error) { return s.staff.Fire(s.attrs, id) })
}

func (s *Session) AssignSector(id string, sector SectorID) (Record, error) {
	return s.personnelOp("sector", func() (Record, error) { return s.staff.AssignSector(id, sector) })
}

func (s *Session) GiveBonus(id string, amount int64) (Record, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return Record{}, 0, ErrGameEnded
	}
	rec, paid, err := s.staff.GiveBonus(s.attrs, id, amount)
	if err != nil {
		return Record{}, 0, err
	}
	s.record("bonus", -paid, rec.ID)
	s.emit(Event{Kind: EventPersonnel, Detail: "bonus " + rec.ID})
	s.evaluate()
	return rec, paid, nil
}

// RunPayroll pays one month of salaries. A missed payroll still lowers morale
// and is reported through ErrInsufficientFunds.
func (s *Session) RunPayroll() (PayrollReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return PayrollReport{}, ErrGameEnded
	}
	report, err := s.staff.RunPayroll(s.attrs)
	s.record("payroll", -report.Paid, "")
	s.emit(Event{Kind: EventPersonnel, Detail: "payroll"})
	s.evaluate()
	return report, err
}

// Rest takes a break: it resets the burnout counter and recovers some energy.
func (s *Session) Rest() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return Snapshot{}, ErrGameEnded
	}
	s.attrs.ApplyDelta(Delta{Stats: StatDelta{Energy: 20, Stress: -15}})
	s.counters.TurnsWithoutBreak = 0
	s.emit(Event{Kind: EventAttributes, Detail: "rest"})
	s.evaluate()
	return s.attrs.Snapshot(), nil
}

// Advance moves simulated time forward. Staff tenure accrues, and every month
// boundary crossed settles income, non-staff expenses and payroll. Reaching
// the end of the game locks the session, so years beyond it are clamped.
func (s *Session) Advance(years float64) (AdvanceReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return AdvanceReport{}, ErrGameEnded
	}
	if !validYears(years) {
		return AdvanceReport{}, fmt.Errorf("%w: years must be positive", ErrInvalidInput)
	}

	// Time past the end of the game is dropped.
	end := s.years + years
	if remaining := GameLengthYears - s.years; years >= remaining {
		years = max(0, remaining)
		end = GameLengthYears
	}

	var report AdvanceReport
	report.Tick = s.staff.Tick(s.attrs, years)
	for _, p := range report.Tick.Promotions {
		s.log.Info("tenure promotion", "record_id", p.RecordID, "from", p.From.String(), "to", p.To.String())
	}

	before := int(math.Floor(s.years * 12))
	s.years = end
	after := int(math.Floor(s.years * 12))
	bankBefore := s.attrs.Snapshot().Financials.BankBalance
	for m := before; m < after; m++ {
		report.Months++
		f := s.attrs.Snapshot().Financials
		other := max(0, f.MonthlyExpenses-s.staff.MonthlyPayroll())
		s.attrs.ApplyDelta(Delta{Financial: FinancialDelta{BankBalance: f.MainIncome + f.SideIncome - other}})
		if _, err := s.staff.RunPayroll(s.attrs); errors.Is(err, ErrInsufficientFunds) {
			report.PayrollMissed++
		}
	}
	if report.Months > 0 {
		report.Settled = s.attrs.Snapshot().Financials.BankBalance - bankBefore
		s.record("settlement", report.Settled, fmt.Sprintf("%d months", report.Months))
	}
	report.ElapsedYears = s.years

	s.emit(Event{Kind: EventAttributes, Detail: "advance"})
	if s.years >= GameLengthYears {
		s.finish()
		report.Ending = s.ending
		return report, nil
	}
	s.evaluate()
	return report, nil
}

func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staff.Records()
}

func (s *Session) Ending() Ending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ending
}

func (s *Session) personnelOp(action string, fn func() (Record, error)) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ending != "" {
		return Record{}, ErrGameEnded
	}
	rec, err := fn()
	if err != nil {
		return Record{}, err
	}
	s.emit(Event{Kind: EventPersonnel, Detail: action + " " + rec.ID})
	s.evaluate()
	return rec, nil
}

// evaluate runs the watcher unless a forced scenario is already waiting.
func (s *Session) evaluate() {
	if s.pending != nil && s.pending.Forced() {
		return
	}
	inst, cond := s.watcher.Evaluate(s.attrs.Snapshot(), s.counters)
	if inst == nil {
		return
	}
	s.pending = inst
	s.log.Warn("crisis triggered", "condition", string(cond), "scenario_id", inst.ID)
	s.emit(Event{Kind: EventCrisis, Scenario: inst, Detail: string(cond)})
}

func (s *Session) finish() {
	snap := s.attrs.Snapshot()
	switch {
	case snap.NetWorth() >= RichNetWorth && snap.Stats.Stress < 50:
		s.ending = EndingRich
	case snap.NetWorth() >= BalancedNetWorth && snap.Stats.Emotion > 60:
		s.ending = EndingBalanced
	default:
		s.ending = EndingFailure
	}
	s.pending = nil
	s.log.Info("game ended", "ending", string(s.ending), "net_worth", snap.NetWorth())
	s.emit(Event{Kind: EventEnded, Ending: s.ending})
}

func (s *Session) record(kind string, amount int64, ref string) {
	if amount == 0 {
		return
	}
	s.journal = append(s.journal, Transaction{
		At:      s.now().UTC(),
		Kind:    kind,
		Amount:  amount,
		Balance: s.attrs.Snapshot().Financials.BankBalance,
		Ref:     ref,
	})
	if over := len(s.journal) - journalLimit; over > 0 {
		s.journal = append([]Transaction(nil), s.journal[over:]...)
	}
}

func (s *Session) emit(ev Event) {
	if len(s.subs) == 0 {
		return
	}
	ev.PlayerID = s.playerID
	ev.At = s.now().UTC()
	ev.Snapshot = s.attrs.Snapshot()
	for _, fn := range s.subs {
		fn(ev)
	}
}
