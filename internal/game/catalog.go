package game

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

const CatalogVersion = 1

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the static content a session plays against. It is read-only
// once loaded and may be shared between sessions.
type Catalog struct {
	Roles     *RoleCatalog
	Scenarios []Template
	Defaults  []Template
	Crises    map[Condition]Template
}

type catalogFile struct {
	Version   int                    `yaml:"version"`
	Roles     []Role                 `yaml:"roles"`
	Sectors   []Sector               `yaml:"sectors"`
	Scenarios []Template             `yaml:"scenarios"`
	Defaults  []Template             `yaml:"defaults"`
	Crises    map[Condition]Template `yaml:"crises"`
}

// DefaultCatalog returns the embedded catalog, parsed once.
var DefaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalogYAML))
})

// LoadCatalog decodes a YAML catalog. Unknown keys anywhere in the document are
// rejected, as are unknown stats, rarities and departments.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if f.Version != CatalogVersion {
		return nil, fmt.Errorf("catalog version %d unsupported", f.Version)
	}
	roles, err := newRoleCatalog(f.Roles, f.Sectors)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	check := func(t Template) error {
		if err := t.validate(); err != nil {
			return err
		}
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("duplicate scenario %s", t.ID)
		}
		ids[t.ID] = struct{}{}
		return nil
	}
	for _, t := range f.Scenarios {
		if err := check(t); err != nil {
			return nil, err
		}
	}
	for _, t := range f.Defaults {
		if err := check(t); err != nil {
			return nil, err
		}
		if len(t.RequiredStats) > 0 {
			return nil, fmt.Errorf("default scenario %s must not have required stats", t.ID)
		}
	}
	for cond, t := range f.Crises {
		if !cond.Valid() {
			return nil, fmt.Errorf("unknown crisis condition %q", cond)
		}
		if err := check(t); err != nil {
			return nil, err
		}
	}
	for _, rule := range crisisRules {
		if _, ok := f.Crises[rule.condition]; !ok {
			return nil, fmt.Errorf("missing crisis scenario for %s", rule.condition)
		}
	}

	return &Catalog{
		Roles:     roles,
		Scenarios: f.Scenarios,
		Defaults:  f.Defaults,
		Crises:    f.Crises,
	}, nil
}
