package game

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryBusiness   Category = "business"
	CategoryStocks     Category = "stocks"
	CategoryRealEstate Category = "real_estate"
	CategoryEmotion    Category = "emotion"
	CategoryLogic      Category = "logic"
	CategoryHealth     Category = "health"
	CategoryRisk       Category = "risk"
	CategoryEthics     Category = "ethics"
	CategoryPersonal   Category = "personal"
	CategoryFinance    Category = "finance"
	CategoryTeam       Category = "team"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryBusiness, CategoryStocks, CategoryRealEstate, CategoryEmotion, CategoryLogic,
		CategoryHealth, CategoryRisk, CategoryEthics, CategoryPersonal, CategoryFinance, CategoryTeam:
		return true
	default:
		return false
	}
}

// Weighting maps a rarity tier to its relative selection weight.
type Weighting map[Rarity]int

var (
	RarityWeighting  = Weighting{RarityCommon: 60, RarityUncommon: 25, RarityRare: 10, RarityLegendary: 5}
	UniformWeighting = Weighting{RarityCommon: 1, RarityUncommon: 1, RarityRare: 1, RarityLegendary: 1}
)

type Option struct {
	ID          string `yaml:"id" json:"id"`
	Text        string `yaml:"text" json:"text"`
	Consequence Delta  `yaml:"consequence" json:"consequence"`
	// Recovers clears the crisis latch that produced the scenario.
	Recovers bool `yaml:"recovers" json:"recovers,omitempty"`
	// Rest resets the turns-without-break counter.
	Rest bool `yaml:"rest" json:"rest,omitempty"`
}

type Template struct {
	ID            string       `yaml:"id" json:"id"`
	Category      Category     `yaml:"category" json:"category"`
	Title         string       `yaml:"title" json:"title"`
	Description   string       `yaml:"description" json:"description"`
	Context       string       `yaml:"context" json:"context,omitempty"`
	Rarity        Rarity       `yaml:"rarity" json:"rarity"`
	RequiredStats map[Stat]int `yaml:"required_stats" json:"required_stats,omitempty"`
	Options       []Option     `yaml:"options" json:"options"`
}

// Eligible reports whether every required stat is at or above its minimum.
func (t Template) Eligible(s Stats) bool {
	for stat, minimum := range t.RequiredStats {
		if s.Value(stat) < minimum {
			return false
		}
	}
	return true
}

func (t Template) Option(id string) (Option, bool) {
	for _, o := range t.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (t Template) validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("scenario id required")
	}
	if !t.Category.Valid() {
		return fmt.Errorf("scenario %s: unknown category %q", t.ID, t.Category)
	}
	if !t.Rarity.Valid() {
		return fmt.Errorf("scenario %s: unknown rarity %q", t.ID, t.Rarity)
	}
	for stat := range t.RequiredStats {
		if !stat.Valid() {
			return fmt.Errorf("scenario %s: unknown stat %q", t.ID, stat)
		}
	}
	if len(t.Options) == 0 {
		return fmt.Errorf("scenario %s: no options", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Options))
	for _, o := range t.Options {
		if strings.TrimSpace(o.ID) == "" {
			return fmt.Errorf("scenario %s: option id required", t.ID)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("scenario %s: duplicate option %s", t.ID, o.ID)
		}
		seen[o.ID] = struct{}{}
	}
	return nil
}

// Instance is a presented copy of a template with its own identity.
type Instance struct {
	ID        string    `json:"id"`
	Template  Template  `json:"template"`
	Condition Condition `json:"condition,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Instance) Forced() bool { return i.Condition != "" }

func instantiate(t Template, cond Condition, now time.Time) Instance {
	t.Options = append([]Option(nil), t.Options...)
	return Instance{
		ID:        uuid.NewString(),
		Template:  t,
		Condition: cond,
		CreatedAt: now.UTC(),
	}
}

// ScenarioResolver picks eligible scenarios and looks up consequences. It
// never mutates attributes.
type ScenarioResolver struct {
	scenarios []Template
	defaults  []Template
	weights   Weighting
	rand      *mathrand.Rand
	now       func() time.Time
}

func NewScenarioResolver(c *Catalog, weights Weighting, rng *mathrand.Rand, now func() time.Time) *ScenarioResolver {
	if weights == nil {
		weights = RarityWeighting
	}
	if rng == nil {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &ScenarioResolver{
		scenarios: c.Scenarios,
		defaults:  c.Defaults,
		weights:   weights,
		rand:      rng,
		now:       now,
	}
}

func (r *ScenarioResolver) Select(s Snapshot) (Instance, error) {
	candidates := make([]Template, 0, len(r.scenarios))
	for _, t := range r.scenarios {
		if t.Eligible(s.Stats) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return Instance{}, ErrNoEligibleScenario
	}
	return instantiate(r.pick(candidates), "", r.now()), nil
}

// SelectOrFallback draws from the unconditional default pool when nothing in
// the main pool is eligible.
func (r *ScenarioResolver) SelectOrFallback(s Snapshot) (Instance, error) {
	inst, err := r.Select(s)
	if err == nil {
		return inst, nil
	}
	if len(r.defaults) == 0 {
		return Instance{}, err
	}
	return instantiate(r.pick(r.defaults), "", r.now()), nil
}

// Resolve returns the chosen option's declared consequence unchanged.
func (r *ScenarioResolver) Resolve(inst Instance, optionID string) (Delta, error) {
	opt, ok := inst.Template.Option(optionID)
	if !ok {
		return Delta{}, fmt.Errorf("option %q on %s: %w", optionID, inst.Template.ID, ErrUnknownOption)
	}
	return opt.Consequence, nil
}

func (r *ScenarioResolver) pick(candidates []Template) Template {
	total := 0
	for _, t := range candidates {
		total += max(0, r.weights[t.Rarity])
	}
	if total == 0 {
		return candidates[r.rand.Intn(len(candidates))]
	}
	n := r.rand.Intn(total)
	for _, t := range candidates {
		w := max(0, r.weights[t.Rarity])
		if n < w {
			return t
		}
		n -= w
	}
	return candidates[len(candidates)-1]
}
