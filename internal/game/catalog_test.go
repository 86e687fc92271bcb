package game

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if got := len(c.Roles.Roles()); got != 16 {
		t.Fatalf("roles got=%d want=16", got)
	}
	if got := len(c.Roles.Sectors()); got != 4 {
		t.Fatalf("sectors got=%d want=4", got)
	}
	for _, rule := range crisisRules {
		tmpl, ok := c.Crises[rule.condition]
		if !ok {
			t.Fatalf("missing crisis %s", rule.condition)
		}
		recovers := false
		for _, o := range tmpl.Options {
			recovers = recovers || o.Recovers
		}
		if !recovers {
			t.Fatalf("crisis %s has no recovering option", rule.condition)
		}
	}
	if len(c.Defaults) == 0 {
		t.Fatalf("expected a fallback pool")
	}
	ceo, ok := c.Roles.Role("ceo")
	if !ok || ceo.UnlockClarityXP != 100 || ceo.BaseSalary != 200_000 {
		t.Fatalf("unexpected ceo %+v", ceo)
	}
}

func TestDefaultCatalogFallbackAlwaysResolves(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	r := NewScenarioResolver(c, nil, testRand(), fixedClock)
	zero := Snapshot{}
	if _, err := r.SelectOrFallback(zero); err != nil {
		t.Fatalf("fallback on empty stats: %v", err)
	}
}

func TestLoadCatalogRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		edit func(string) string
	}{
		{"unknown field", func(s string) string {
			return strings.Replace(s, "required_stats: {logic: 80}", "reqired_stats: {logic: 80}", 1)
		}},
		{"unknown stat", func(s string) string {
			return strings.Replace(s, "required_stats: {logic: 80}", "required_stats: {luck: 80}", 1)
		}},
		{"unknown delta key", func(s string) string {
			return strings.Replace(s, "{stats: {logic: 1}}", "{stats: {luck: 1}}", 1)
		}},
		{"bad version", func(s string) string {
			return strings.Replace(s, "version: 1", "version: 2", 1)
		}},
		{"bad rarity", func(s string) string {
			return strings.Replace(s, "rarity: legendary\n    required_stats", "rarity: mythic\n    required_stats", 1)
		}},
		{"bad department", func(s string) string {
			return strings.Replace(s, "department: Operations", "department: Kitchen", 1)
		}},
		{"missing crisis", func(s string) string {
			i := strings.Index(s, "  blackout:")
			return s[:i]
		}},
		{"conditional default", func(s string) string {
			return strings.Replace(s, "title: Fallback\n", "title: Fallback\n    required_stats: {logic: 1}\n", 1)
		}},
	}
	for _, tc := range tests {
		if _, err := LoadCatalog(strings.NewReader(tc.edit(testCatalogYAML))); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
