package game

import "time"

type Dashboard struct {
	PlayerID          string              `json:"player_id"`
	Stats             Stats               `json:"stats"`
	Financials        Financials          `json:"financials"`
	NetWorth          int64               `json:"net_worth"`
	Cashflow          int64               `json:"cashflow"`
	MonthlyPayroll    int64               `json:"monthly_payroll"`
	ElapsedYears      float64             `json:"elapsed_years"`
	Turn              int                 `json:"turn"`
	TurnsWithoutBreak int                 `json:"turns_without_break"`
	Ending            Ending              `json:"ending,omitempty"`
	Pending           *Instance           `json:"pending,omitempty"`
	Latches           map[Condition]Latch `json:"latches,omitempty"`
	Staff             []StaffView         `json:"staff"`
	Journal           []Transaction       `json:"journal"`
}

type StaffView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	RoleID        RoleID     `json:"role_id"`
	Department    Department `json:"department"`
	Level         Level      `json:"level"`
	Status        Status     `json:"status"`
	Sector        SectorID   `json:"sector,omitempty"`
	CurrentSalary int64      `json:"current_salary"`
	MonthlyCost   int64      `json:"monthly_cost"`
	Experience    int        `json:"experience"`
	TenureYears   float64    `json:"tenure_years"`
	Loyalty       int        `json:"loyalty"`
	Energy        int        `json:"energy"`
	Performance   int        `json:"performance"`
	Mood          Mood       `json:"mood"`
	HiredAt       time.Time  `json:"hired_at"`
}

func NewStaffView(r Record) StaffView {
	return StaffView{
		ID:            r.ID,
		Name:          r.Name,
		RoleID:        r.RoleID,
		Department:    r.Department,
		Level:         r.Level,
		Status:        r.Status,
		Sector:        r.Sector,
		CurrentSalary: r.CurrentSalary,
		MonthlyCost:   r.MonthlyCost(),
		Experience:    r.ExperienceScore,
		TenureYears:   r.TenureYears,
		Loyalty:       r.Loyalty,
		Energy:        r.Energy,
		Performance:   r.Performance,
		Mood:          r.Mood,
		HiredAt:       r.HiredAt,
	}
}

type RoleView struct {
	Role
	MonthlyFrom int64 `json:"monthly_from"`
	MonthlyTo   int64 `json:"monthly_to"`
	Unlocked    *bool `json:"unlocked,omitempty"`
}

// ChooseInput is the body of a scenario choice.
type ChooseInput struct {
	InstanceID string `json:"instance_id"`
	OptionID   string `json:"option_id"`
}

type AdvanceInput struct {
	Years float64 `json:"years"`
}

type SectorInput struct {
	Sector SectorID `json:"sector"`
}

type BonusInput struct {
	Amount int64 `json:"amount"`
}

type BonusResult struct {
	Staff StaffView `json:"staff"`
	Paid  int64     `json:"paid"`
}

func (s *Session) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.attrs.Snapshot()
	d := Dashboard{
		PlayerID:          s.playerID,
		Stats:             snap.Stats,
		Financials:        snap.Financials,
		NetWorth:          snap.NetWorth(),
		Cashflow:          snap.Financials.Cashflow(),
		MonthlyPayroll:    s.staff.MonthlyPayroll(),
		ElapsedYears:      s.years,
		Turn:              s.counters.Turn,
		TurnsWithoutBreak: s.counters.TurnsWithoutBreak,
		Ending:            s.ending,
		Latches:           s.watcher.Latches(),
		Staff:             make([]StaffView, 0, len(s.staff.records)),
		Journal:           append([]Transaction{}, s.journal...),
	}
	if s.pending != nil {
		p := *s.pending
		d.Pending = &p
	}
	for _, r := range s.staff.records {
		d.Staff = append(d.Staff, NewStaffView(r))
	}
	return d
}

// RoleViews lists the catalog with the monthly charge range for rolled hires.
// When clarityXP is non-negative each view also reports whether it is unlocked.
func RoleViews(c *RoleCatalog, clarityXP int) []RoleView {
	roles := c.Roles()
	out := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		v := RoleView{
			Role:        r,
			MonthlyFrom: monthlyCharge(SalaryFor(r.BaseSalary, LevelNew), rolledExperienceMin),
			MonthlyTo:   monthlyCharge(SalaryFor(r.BaseSalary, LevelNew), MaxExperience),
		}
		if clarityXP >= 0 {
			ok := clarityXP >= r.UnlockClarityXP
			v.Unlocked = &ok
		}
		out = append(out, v)
	}
	return out
}
