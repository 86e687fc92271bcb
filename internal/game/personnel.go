package game

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinExperience     = 0
	MaxExperience     = 10
	DefaultExperience = 5

	rolledExperienceMin = 3
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPromoted Status = "promoted"
	StatusDemoted  Status = "demoted"
)

type Mood string

const (
	MoodNeutral   Mood = "neutral"
	MoodMotivated Mood = "motivated"
	MoodBurntOut  Mood = "burnt_out"
)

type HistoryEntry struct {
	At        time.Time `json:"at"`
	Action    string    `json:"action"`
	FromLevel Level     `json:"from_level"`
	ToLevel   Level     `json:"to_level"`
	Reason    string    `json:"reason"`
}

// Record is one hired staff member. CurrentSalary is annual and always equals
// SalaryFor(BaseSalary, Level).
type Record struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	RoleID          RoleID         `json:"role_id"`
	Department      Department     `json:"department"`
	BaseSalary      int64          `json:"base_salary"`
	CurrentSalary   int64          `json:"current_salary"`
	ExperienceScore int            `json:"experience_score"`
	Level           Level          `json:"level"`
	TenureYears     float64        `json:"tenure_years"`
	Status          Status         `json:"status"`
	Sector          SectorID       `json:"sector,omitempty"`
	Loyalty         int            `json:"loyalty"`
	Energy          int            `json:"energy"`
	Performance     int            `json:"performance"`
	Mood            Mood           `json:"mood"`
	HiredAt         time.Time      `json:"hired_at"`
	History         []HistoryEntry `json:"history"`
}

// MonthlyCost is the per-month expense the record adds to the ledger, scaled by
// experience between 0.8x and 1.2x.
func (r Record) MonthlyCost() int64 {
	return monthlyCharge(r.CurrentSalary, r.ExperienceScore)
}

func monthlyCharge(annual int64, experience int) int64 {
	factorBps := int64(8_000 + experience*400)
	return applyBps(annual/12, factorBps)
}

func (r Record) clone() Record {
	r.History = append([]HistoryEntry(nil), r.History...)
	return r
}

type HireInput struct {
	RoleID     RoleID     `json:"role_id"`
	Department Department `json:"department"`
	Name       string     `json:"name"`
	Experience *int       `json:"experience,omitempty"`
}

type PromotionEvent struct {
	RecordID string `json:"record_id"`
	From     Level  `json:"from"`
	To       Level  `json:"to"`
}

type TickReport struct {
	Years      float64          `json:"years"`
	Promotions []PromotionEvent `json:"promotions,omitempty"`
	// ExpenseDelta is the change applied to monthly expenses.
	ExpenseDelta int64 `json:"expense_delta"`
}

type PayrollReport struct {
	Paid    int64 `json:"paid"`
	Missed  bool  `json:"missed"`
	Records int   `json:"records"`
}

// PersonnelLedger owns the ordered set of staff records. Money effects are
// applied to the AttributeStore passed into each call.
type PersonnelLedger struct {
	catalog *RoleCatalog
	records []Record
	rand    *mathrand.Rand
	now     func() time.Time
}

func NewPersonnelLedger(catalog *RoleCatalog, rng *mathrand.Rand, now func() time.Time) *PersonnelLedger {
	if rng == nil {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &PersonnelLedger{catalog: catalog, rand: rng, now: now}
}

func (p *PersonnelLedger) Records() []Record {
	out := make([]Record, len(p.records))
	for i, r := range p.records {
		out[i] = r.clone()
	}
	return out
}

func (p *PersonnelLedger) Get(id string) (Record, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return p.records[i].clone(), nil
}

func (p *PersonnelLedger) MonthlyPayroll() int64 {
	var total int64
	for _, r := range p.records {
		total += r.MonthlyCost()
	}
	return total
}

func (p *PersonnelLedger) restore(records []Record) {
	p.records = make([]Record, len(records))
	for i, r := range records {
		p.records[i] = r.clone()
	}
}

func (p *PersonnelLedger) index(id string) int {
	for i := range p.records {
		if p.records[i].ID == id {
			return i
		}
	}
	return -1
}

// Hire charges the first month up front. Affordability is checked against the
// amount actually charged, so a failed hire leaves both stores untouched.
func (p *PersonnelLedger) Hire(store *AttributeStore, in HireInput) (Record, error) {
	role, ok := p.catalog.Role(in.RoleID)
	if !ok {
		return Record{}, fmt.Errorf("role %s: %w", in.RoleID, ErrNotFound)
	}
	snap := store.Snapshot()
	if snap.Stats.ClarityXP < role.UnlockClarityXP {
		return Record{}, fmt.Errorf("role %s needs %d clarity xp: %w", role.ID, role.UnlockClarityXP, ErrRoleLocked)
	}
	dept := role.Department
	if in.Department != "" {
		if !in.Department.Valid() {
			return Record{}, fmt.Errorf("%w: unknown department %q", ErrInvalidInput, in.Department)
		}
		dept = in.Department
	}
	var experience int
	if in.Experience != nil {
		if *in.Experience < MinExperience || *in.Experience > MaxExperience {
			return Record{}, fmt.Errorf("%w: experience must be between %d and %d", ErrInvalidInput, MinExperience, MaxExperience)
		}
		experience = *in.Experience
	} else {
		experience = clampInt(role.NominalExperience+p.rand.Intn(3)-1, rolledExperienceMin, MaxExperience)
	}

	salary := SalaryFor(role.BaseSalary, LevelNew)
	charged := monthlyCharge(salary, experience)
	if snap.Financials.BankBalance < charged {
		return Record{}, fmt.Errorf("hire %s costs %d, bank has %d: %w", role.ID, charged, snap.Financials.BankBalance, ErrInsufficientFunds)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = p.randomName()
	}
	rec := Record{
		ID:              uuid.NewString(),
		Name:            name,
		RoleID:          role.ID,
		Department:      dept,
		BaseSalary:      role.BaseSalary,
		CurrentSalary:   salary,
		ExperienceScore: experience,
		Level:           LevelNew,
		Status:          StatusActive,
		Loyalty:         70,
		Energy:          80,
		Performance:     60 + experience*3,
		Mood:            MoodNeutral,
		HiredAt:         p.now().UTC(),
	}
	store.ApplyDelta(Delta{
		Stats:     StatDelta{ClarityXP: HireClarityBonus},
		Financial: FinancialDelta{BankBalance: -charged, MonthlyExpenses: charged},
	})
	p.records = append(p.records, rec)
	return rec.clone(), nil
}

// Tick accrues tenure on every record and raises it to the highest ladder level
// its tenure reaches. Tick never lowers a level.
func (p *PersonnelLedger) Tick(store *AttributeStore, years float64) TickReport {
	report := TickReport{Years: years}
	if !validYears(years) {
		report.Years = 0
		return report
	}
	for i := range p.records {
		rec := &p.records[i]
		rec.TenureYears += years
		target := levelForTenure(rec.TenureYears)
		if target <= rec.Level {
			continue
		}
		from := rec.Level
		report.ExpenseDelta += p.setLevel(rec, target, "tenure")
		rec.Status = StatusPromoted
		report.Promotions = append(report.Promotions, PromotionEvent{RecordID: rec.ID, From: from, To: target})
	}
	if report.ExpenseDelta != 0 {
		store.ApplyDelta(Delta{Financial: FinancialDelta{MonthlyExpenses: report.ExpenseDelta}})
	}
	return report
}

func (p *PersonnelLedger) Promote(store *AttributeStore, id string) (Record, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	rec := &p.records[i]
	if rec.Level >= LevelChief {
		return Record{}, fmt.Errorf("record %s already at %s: %w", id, rec.Level, ErrNotEligible)
	}
	delta := p.setLevel(rec, rec.Level+1, "performance")
	rec.Status = StatusPromoted
	rec.Loyalty = clampStat(rec.Loyalty + 15)
	rec.Energy = clampStat(rec.Energy + 10)
	rec.Mood = MoodMotivated
	store.ApplyDelta(Delta{Financial: FinancialDelta{MonthlyExpenses: delta}})
	return rec.clone(), nil
}

func (p *PersonnelLedger) Demote(store *AttributeStore, id string) (Record, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	rec := &p.records[i]
	if rec.Level <= LevelNew {
		return Record{}, fmt.Errorf("record %s already at %s: %w", id, rec.Level, ErrNotEligible)
	}
	delta := p.setLevel(rec, rec.Level-1, "performance")
	rec.Status = StatusDemoted
	rec.Loyalty = clampStat(rec.Loyalty - 20)
	rec.Energy = max(20, clampStat(rec.Energy-15))
	rec.Mood = MoodBurntOut
	store.ApplyDelta(Delta{Financial: FinancialDelta{MonthlyExpenses: delta}})
	return rec.clone(), nil
}

// Fire drops the record and its monthly cost. No severance is paid.
func (p *PersonnelLedger) Fire(store *AttributeStore, id string) (Record, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	rec := p.records[i]
	p.records = append(p.records[:i], p.records[i+1:]...)
	store.ApplyDelta(Delta{Financial: FinancialDelta{MonthlyExpenses: -rec.MonthlyCost()}})
	return rec, nil
}

func (p *PersonnelLedger) AssignSector(id string, sector SectorID) (Record, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if sector != "" {
		if _, ok := p.catalog.Sector(sector); !ok {
			return Record{}, fmt.Errorf("sector %s: %w", sector, ErrUnknownSector)
		}
	}
	p.records[i].Sector = sector
	return p.records[i].clone(), nil
}

// RunPayroll pays one month for every record. When the bank cannot cover it
// nothing is paid and every record takes a morale hit.
func (p *PersonnelLedger) RunPayroll(store *AttributeStore) (PayrollReport, error) {
	total := p.MonthlyPayroll()
	report := PayrollReport{Records: len(p.records)}
	if total == 0 {
		return report, nil
	}
	bank := store.Snapshot().Financials.BankBalance
	if bank < total {
		for i := range p.records {
			p.records[i].Loyalty = clampStat(p.records[i].Loyalty - 20)
			p.records[i].Performance = clampStat(p.records[i].Performance - 15)
		}
		report.Missed = true
		return report, fmt.Errorf("payroll %d, bank has %d: %w", total, bank, ErrInsufficientFunds)
	}
	store.ApplyDelta(Delta{Financial: FinancialDelta{BankBalance: -total}})
	report.Paid = total
	return report, nil
}

// GiveBonus pays amount to a record. A zero amount pays 10% of salary scaled
// by the record's performance.
func (p *PersonnelLedger) GiveBonus(store *AttributeStore, id string, amount int64) (Record, int64, error) {
	i := p.index(id)
	if i < 0 {
		return Record{}, 0, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if amount < 0 {
		return Record{}, 0, fmt.Errorf("%w: bonus must not be negative", ErrInvalidInput)
	}
	rec := &p.records[i]
	if amount == 0 {
		amount = rec.CurrentSalary / 10 * int64(rec.Performance) / 100
	}
	if bank := store.Snapshot().Financials.BankBalance; bank < amount {
		return Record{}, 0, fmt.Errorf("bonus %d, bank has %d: %w", amount, bank, ErrInsufficientFunds)
	}
	store.ApplyDelta(Delta{Financial: FinancialDelta{BankBalance: -amount}})
	rec.Loyalty = clampStat(rec.Loyalty + 10)
	rec.Performance = clampStat(rec.Performance + 5)
	return rec.clone(), amount, nil
}

// setLevel moves rec to lvl, recomputes salary and returns the monthly cost delta.
func (p *PersonnelLedger) setLevel(rec *Record, lvl Level, reason string) int64 {
	before := rec.MonthlyCost()
	action := "promote"
	if lvl < rec.Level {
		action = "demote"
	}
	rec.History = append(rec.History, HistoryEntry{
		At:        p.now().UTC(),
		Action:    action,
		FromLevel: rec.Level,
		ToLevel:   lvl,
		Reason:    reason,
	})
	rec.Level = lvl
	rec.CurrentSalary = SalaryFor(rec.BaseSalary, lvl)
	return rec.MonthlyCost() - before
}

var (
	firstNames = []string{"Aarav", "Priya", "Rohan", "Ananya", "Vikram", "Meera", "Kabir", "Isha", "Arjun", "Diya", "Nikhil", "Sara"}
	lastNames  = []string{"Sharma", "Patel", "Iyer", "Reddy", "Mehta", "Kapoor", "Nair", "Gupta", "Joshi", "Rao"}
)

func (p *PersonnelLedger) randomName() string {
	return firstNames[p.rand.Intn(len(firstNames))] + " " + lastNames[p.rand.Intn(len(lastNames))]
}
