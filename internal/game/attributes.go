package game

import "fmt"

// Stat names a single player stat. The bounded ones live in [StatMin, StatMax].
type Stat string

const (
	StatLogic      Stat = "logic"
	StatEmotion    Stat = "emotion"
	StatKarma      Stat = "karma"
	StatStress     Stat = "stress"
	StatReputation Stat = "reputation"
	StatEnergy     Stat = "energy"
	StatClarityXP  Stat = "clarity_xp"
	StatLoopScore  Stat = "loop_score"
)

func (s Stat) Valid() bool {
	switch s {
	case StatLogic, StatEmotion, StatKarma, StatStress, StatReputation, StatEnergy, StatClarityXP, StatLoopScore:
		return true
	default:
		return false
	}
}

type Stats struct {
	Logic      int `json:"logic" yaml:"logic"`
	Emotion    int `json:"emotion" yaml:"emotion"`
	Karma      int `json:"karma" yaml:"karma"`
	Stress     int `json:"stress" yaml:"stress"`
	Reputation int `json:"reputation" yaml:"reputation"`
	Energy     int `json:"energy" yaml:"energy"`
	ClarityXP  int `json:"clarity_xp" yaml:"clarity_xp"`
	LoopScore  int `json:"loop_score" yaml:"loop_score"`
}

func (s Stats) Value(stat Stat) int {
	switch stat {
	case StatLogic:
		return s.Logic
	case StatEmotion:
		return s.Emotion
	case StatKarma:
		return s.Karma
	case StatStress:
		return s.Stress
	case StatReputation:
		return s.Reputation
	case StatEnergy:
		return s.Energy
	case StatClarityXP:
		return s.ClarityXP
	case StatLoopScore:
		return s.LoopScore
	default:
		return 0
	}
}

func (s Stats) normalized() Stats {
	s.Logic = clampStat(s.Logic)
	s.Emotion = clampStat(s.Emotion)
	s.Karma = clampStat(s.Karma)
	s.Stress = clampStat(s.Stress)
	s.Reputation = clampStat(s.Reputation)
	s.Energy = clampStat(s.Energy)
	s.ClarityXP = floorZero(s.ClarityXP)
	s.LoopScore = floorZero(s.LoopScore)
	return s
}

// Financials is the player's money ledger. Values are whole currency units and
// are never clamped; BankBalance may go negative.
type Financials struct {
	BankBalance      int64 `json:"bank_balance"`
	MainIncome       int64 `json:"main_income"`
	SideIncome       int64 `json:"side_income"`
	MonthlyExpenses  int64 `json:"monthly_expenses"`
	TotalAssets      int64 `json:"total_assets"`
	TotalLiabilities int64 `json:"total_liabilities"`
}

func (f Financials) NetWorth() int64 {
	return f.BankBalance + f.TotalAssets - f.TotalLiabilities
}

func (f Financials) Cashflow() int64 {
	return f.MainIncome + f.SideIncome - f.MonthlyExpenses
}

// Snapshot is a value copy of the attribute store. Mutating it never touches
// the store it came from.
type Snapshot struct {
	Stats      Stats      `json:"stats"`
	Financials Financials `json:"financials"`
}

func (s Snapshot) NetWorth() int64 { return s.Financials.NetWorth() }

type StatDelta struct {
	Logic      int `json:"logic,omitempty" yaml:"logic"`
	Emotion    int `json:"emotion,omitempty" yaml:"emotion"`
	Karma      int `json:"karma,omitempty" yaml:"karma"`
	Stress     int `json:"stress,omitempty" yaml:"stress"`
	Reputation int `json:"reputation,omitempty" yaml:"reputation"`
	Energy     int `json:"energy,omitempty" yaml:"energy"`
	ClarityXP  int `json:"clarity_xp,omitempty" yaml:"clarity_xp"`
	LoopScore  int `json:"loop_score,omitempty" yaml:"loop_score"`
}

type FinancialDelta struct {
	BankBalance      int64 `json:"bank_balance,omitempty" yaml:"bank_balance"`
	MainIncome       int64 `json:"main_income,omitempty" yaml:"main_income"`
	SideIncome       int64 `json:"side_income,omitempty" yaml:"side_income"`
	MonthlyExpenses  int64 `json:"monthly_expenses,omitempty" yaml:"monthly_expenses"`
	TotalAssets      int64 `json:"total_assets,omitempty" yaml:"total_assets"`
	TotalLiabilities int64 `json:"total_liabilities,omitempty" yaml:"total_liabilities"`
}

// Delta is a signed adjustment to stats and financials. Zero fields are no-ops.
type Delta struct {
	Stats     StatDelta      `json:"stats" yaml:"stats"`
	Financial FinancialDelta `json:"financial" yaml:"financial"`
}

func (d Delta) IsZero() bool {
	return d == Delta{}
}

func (d Delta) String() string {
	return fmt.Sprintf("stats=%+v financial=%+v", d.Stats, d.Financial)
}

// AttributeStore holds one player's stats and financial ledger. It is not safe
// for concurrent use; Session serializes access.
type AttributeStore struct {
	snap Snapshot
}

func DefaultSnapshot() Snapshot {
	return Snapshot{
		Stats: Stats{
			Logic:      45,
			Emotion:    50,
			Karma:      60,
			Stress:     30,
			Reputation: 40,
			Energy:     75,
		},
		Financials: Financials{
			BankBalance:     StarterBankBalance,
			MainIncome:      StarterMainIncome,
			SideIncome:      StarterSideIncome,
			MonthlyExpenses: StarterMonthlyExpenses,
			TotalAssets:     25_000,
		},
	}
}

func NewAttributeStore(initial Snapshot) *AttributeStore {
	a := &AttributeStore{}
	a.Restore(initial)
	return a
}

// ApplyDelta adds d to every field. Bounded stats saturate at the range edges,
// clarity xp and loop score stop at zero, and financials are left unbounded.
func (a *AttributeStore) ApplyDelta(d Delta) {
	s := a.snap.Stats
	s.Logic += d.Stats.Logic
	s.Emotion += d.Stats.Emotion
	s.Karma += d.Stats.Karma
	s.Stress += d.Stats.Stress
	s.Reputation += d.Stats.Reputation
	s.Energy += d.Stats.Energy
	s.ClarityXP += d.Stats.ClarityXP
	s.LoopScore += d.Stats.LoopScore
	a.snap.Stats = s.normalized()

	f := &a.snap.Financials
	f.BankBalance += d.Financial.BankBalance
	f.MainIncome += d.Financial.MainIncome
	f.SideIncome += d.Financial.SideIncome
	f.MonthlyExpenses += d.Financial.MonthlyExpenses
	f.TotalAssets += d.Financial.TotalAssets
	f.TotalLiabilities += d.Financial.TotalLiabilities
}

func (a *AttributeStore) Snapshot() Snapshot {
	return a.snap
}

// Restore replaces the whole state. Out-of-range stats are pulled back into range.
func (a *AttributeStore) Restore(s Snapshot) {
	s.Stats = s.Stats.normalized()
	a.snap = s
}
