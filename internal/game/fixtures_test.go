package game

import (
	mathrand "math/rand"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return testNow }

const testCatalogYAML = `
version: 1
roles:
  - {id: exec, name: Executive, department: Executive, base_salary: 1200000, nominal_experience: 5}
  - {id: dev, name: Developer, department: Operations, base_salary: 600000, nominal_experience: 5}
  - {id: chief, name: Chief, department: Executive, base_salary: 200000, nominal_experience: 8, unlock_clarity_xp: 50}
sectors:
  - {id: fast_food, name: Fast Food}
  - {id: healthcare, name: Healthcare}
scenarios:
  - id: high_logic
    category: logic
    title: Puzzle
    description: Only for sharp minds.
    rarity: common
    required_stats: {logic: 80}
    options:
      - {id: solve, text: Solve it, consequence: {stats: {logic: 5, stress: 5}, financial: {bank_balance: 1000}}}
      - {id: nap, text: Take a nap, rest: true, consequence: {stats: {energy: 10}}}
  - id: rare_logic
    category: logic
    title: Rare puzzle
    description: Rarely seen.
    rarity: legendary
    required_stats: {logic: 80}
    options:
      - {id: solve, text: Solve it, consequence: {stats: {logic: 1}}}
defaults:
  - id: fallback
    category: personal
    title: Fallback
    description: Always available.
    rarity: common
    options:
      - {id: work, text: Keep working, consequence: {stats: {stress: 2}}}
      - {id: rest, text: Rest, rest: true, consequence: {stats: {stress: -2}}}
crises:
  hospitalization:
    id: c_hosp
    category: health
    title: Hospital
    description: Collapsed.
    rarity: legendary
    options:
      - {id: rest, text: Rest, recovers: true, rest: true, consequence: {stats: {stress: -60}, financial: {bank_balance: -10000}}}
      - {id: ignore, text: Ignore, consequence: {stats: {karma: -20}, financial: {bank_balance: -5000}}}
  mental_breakdown:
    id: c_breakdown
    category: emotion
    title: Breakdown
    description: Overwhelmed.
    rarity: legendary
    options:
      - {id: therapy, text: Therapy, recovers: true, consequence: {stats: {emotion: 30}}}
  bankruptcy:
    id: c_bankrupt
    category: finance
    title: Bankrupt
    description: Broke.
    rarity: legendary
    options:
      - {id: loan, text: Loan, recovers: true, consequence: {financial: {bank_balance: 150000}}}
  reputation_crisis:
    id: c_rep
    category: business
    title: Reputation
    description: Nobody trusts you.
    rarity: legendary
    options:
      - {id: apologize, text: Apologize, recovers: true, consequence: {stats: {reputation: 15}}}
  moral_reckoning:
    id: c_karma
    category: ethics
    title: Reckoning
    description: Integrity questioned.
    rarity: legendary
    options:
      - {id: charity, text: Charity, recovers: true, consequence: {stats: {karma: 20}}}
  burnout:
    id: c_burnout
    category: health
    title: Burnout
    description: Exhausted.
    rarity: legendary
    options:
      - {id: vacation, text: Vacation, recovers: true, rest: true, consequence: {stats: {stress: -40}}}
      - {id: power_through, text: Power through, consequence: {stats: {stress: 25}}}
  blackout:
    id: c_blackout
    category: health
    title: Blackout
    description: Lost time.
    rarity: legendary
    options:
      - {id: medical, text: Medical help, recovers: true, consequence: {stats: {stress: -30, emotion: 20}}}
      - {id: self_medicate, text: Self medicate, consequence: {stats: {stress: 10}}}
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog(strings.NewReader(testCatalogYAML))
	if err != nil {
		t.Fatalf("load test catalog: %v", err)
	}
	return c
}

func testRand() *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(42))
}

func testSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("p1", testCatalog(t), SessionOptions{Rand: testRand(), Now: fixedClock})
}

func intPtr(v int) *int { return &v }

func snapshotWith(mut func(*Snapshot)) Snapshot {
	s := DefaultSnapshot()
	mut(&s)
	return s
}
