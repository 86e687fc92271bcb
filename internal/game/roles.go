package game

import (
	"fmt"
	"sort"
	"strings"
)

type RoleID string

type SectorID string

type Department string

const (
	DeptExecutive  Department = "Executive"
	DeptOperations Department = "Operations"
	DeptPublic     Department = "Public"
	DeptCulture    Department = "Culture"
	DeptInnovation Department = "Innovation"
	DeptStrategy   Department = "Strategy"
)

func (d Department) Valid() bool {
	switch d {
	case DeptExecutive, DeptOperations, DeptPublic, DeptCulture, DeptInnovation, DeptStrategy:
		return true
	default:
		return false
	}
}

// Role is an immutable catalog entry describing a hireable position.
type Role struct {
	ID                RoleID     `yaml:"id" json:"id"`
	Name              string     `yaml:"name" json:"name"`
	Department        Department `yaml:"department" json:"department"`
	BaseSalary        int64      `yaml:"base_salary" json:"base_salary"`
	NominalExperience int        `yaml:"nominal_experience" json:"nominal_experience"`
	UnlockClarityXP   int        `yaml:"unlock_clarity_xp" json:"unlock_clarity_xp,omitempty"`
	Skills            []string   `yaml:"skills" json:"skills,omitempty"`
}

func (r Role) validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return fmt.Errorf("role id required")
	}
	if !r.Department.Valid() {
		return fmt.Errorf("role %s: unknown department %q", r.ID, r.Department)
	}
	if r.BaseSalary < MinAnnualSalary {
		return fmt.Errorf("role %s: base salary %d below floor %d", r.ID, r.BaseSalary, MinAnnualSalary)
	}
	if r.NominalExperience < MinExperience || r.NominalExperience > MaxExperience {
		return fmt.Errorf("role %s: nominal experience %d out of range", r.ID, r.NominalExperience)
	}
	if r.UnlockClarityXP < 0 {
		return fmt.Errorf("role %s: negative unlock threshold", r.ID)
	}
	return nil
}

type Sector struct {
	ID          SectorID `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
}

// RoleCatalog is keyed by validated id and is never mutated after load.
type RoleCatalog struct {
	roles   map[RoleID]Role
	sectors map[SectorID]Sector
}

func newRoleCatalog(roles []Role, sectors []Sector) (*RoleCatalog, error) {
	c := &RoleCatalog{
		roles:   make(map[RoleID]Role, len(roles)),
		sectors: make(map[SectorID]Sector, len(sectors)),
	}
	for _, r := range roles {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.roles[r.ID]; dup {
			return nil, fmt.Errorf("duplicate role %s", r.ID)
		}
		if r.NominalExperience == 0 {
			r.NominalExperience = DefaultExperience
		}
		c.roles[r.ID] = r
	}
	for _, s := range sectors {
		if strings.TrimSpace(string(s.ID)) == "" {
			return nil, fmt.Errorf("sector id required")
		}
		if _, dup := c.sectors[s.ID]; dup {
			return nil, fmt.Errorf("duplicate sector %s", s.ID)
		}
		c.sectors[s.ID] = s
	}
	return c, nil
}

func (c *RoleCatalog) Role(id RoleID) (Role, bool) {
	r, ok := c.roles[id]
	return r, ok
}

func (c *RoleCatalog) Sector(id SectorID) (Sector, bool) {
	s, ok := c.sectors[id]
	return s, ok
}

// Roles lists the catalog ordered by department then id.
func (c *RoleCatalog) Roles() []Role {
	out := make([]Role, 0, len(c.roles))
	for _, r := range c.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *RoleCatalog) Sectors() []Sector {
	out := make([]Sector, 0, len(c.sectors))
	for _, s := range c.sectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
