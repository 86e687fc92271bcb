package game

import (
	"errors"
	"math"
)

const (
	StatMin = 0
	StatMax = 100

	StarterBankBalance     = int64(500_000)
	StarterMainIncome      = int64(75_000)
	StarterSideIncome      = int64(15_000)
	StarterMonthlyExpenses = int64(45_000)

	// MinAnnualSalary is the pay floor applied after any seniority change.
	MinAnnualSalary = int64(50_000)

	HireClarityBonus = 10

	BankruptcyThreshold = int64(-100_000)
	CrisisStatFloor     = 10
	BurnoutTurns        = 6

	GameLengthYears  = 5.0
	RichNetWorth     = int64(10_000_000)
	BalancedNetWorth = int64(5_000_000)

	bpsScale = int64(10_000)
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotEligible        = errors.New("not eligible")
	ErrNotFound           = errors.New("not found")
	ErrUnknownOption      = errors.New("unknown option")
	ErrNoEligibleScenario = errors.New("no eligible scenario")
	ErrRoleLocked         = errors.New("role locked: clarity xp below requirement")
	ErrUnknownSector      = errors.New("unknown sector")
	ErrGameEnded          = errors.New("game has ended")
	ErrInvalidInput       = errors.New("invalid input")
)

func clampStat(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applyBps scales v by bps/10_000, truncating toward zero.
func applyBps(v, bps int64) int64 {
	return v * bps / bpsScale
}

func validYears(years float64) bool {
	return years > 0 && !math.IsNaN(years) && !math.IsInf(years, 0)
}
