package game

import "fmt"

// Level is a rung on the seniority ladder. Higher values are more senior.
type Level int

const (
	LevelNew Level = iota
	LevelJunior
	LevelMid
	LevelSenior
	LevelVP
	LevelChief
)

type rung struct {
	level    Level
	name     string
	minYears float64
	bps      int64
}

// Ladder thresholds are ascending. Junior to Mid is exactly a 25% raise.
var ladder = []rung{
	{LevelNew, "new", 0, 10_000},
	{LevelJunior, "junior", 1, 13_000},
	{LevelMid, "mid", 3, 16_250},
	{LevelSenior, "senior", 5, 20_000},
	{LevelVP, "vp", 10, 25_000},
	{LevelChief, "chief", 15, 32_000},
}

func (l Level) Valid() bool {
	return l >= LevelNew && l <= LevelChief
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return ladder[l].name
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(ladder[l].name), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	lvl, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

func ParseLevel(s string) (Level, error) {
	for _, r := range ladder {
		if r.name == s {
			return r.level, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown level %q", ErrInvalidInput, s)
}

// Multiplier returns the salary multiplier in basis points.
func (l Level) Multiplier() int64 {
	if !l.Valid() {
		return bpsScale
	}
	return ladder[l].bps
}

// SalaryFor applies the ladder multiplier and the pay floor.
func SalaryFor(base int64, l Level) int64 {
	salary := applyBps(base, l.Multiplier())
	if salary < MinAnnualSalary {
		return MinAnnualSalary
	}
	return salary
}

// levelForTenure returns the highest level whose threshold tenure reaches.
func levelForTenure(years float64) Level {
	lvl := LevelNew
	for _, r := range ladder {
		if years >= r.minYears {
			lvl = r.level
		}
	}
	return lvl
}
