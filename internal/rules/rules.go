// Package rules holds the static planning tables: zone parameters, constraint
// scoring weights and the overlay layer catalog. The tables are embedded YAML
// loaded once at startup and never mutated afterwards.
package rules

import (
	"embed"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Tables bundles every rule table the report pipeline needs.
type Tables struct {
	Zones    *ZoneBook
	Scoring  *Scoring
	Overlays *Catalog
}

// Load parses the embedded tables.
func Load() (*Tables, error) {
	zones, err := LoadZoneBook()
	if err != nil {
		return nil, err
	}
	scoring, err := LoadScoring()
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Tables{Zones: zones, Scoring: scoring, Overlays: catalog}, nil
}

// MustLoad is Load for package-level initialisation and tests.
func MustLoad() *Tables {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

func decode(name string, out interface{}) error {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("failed to read rule table %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse rule table %s: %w", name, err)
	}
	return nil
}

// ZoneBook is the planning scheme's zone parameter table in file order.
type ZoneBook struct {
	Version      int                `yaml:"version"`
	Jurisdiction string             `yaml:"jurisdiction"`
	Entries      []models.ZoneRules `yaml:"zones"`

	byCode map[string]int
}

// LoadZoneBook parses the embedded zone table.
func LoadZoneBook() (*ZoneBook, error) {
	var b ZoneBook
	if err := decode("zone_rules.yaml", &b); err != nil {
		return nil, err
	}
	if err := b.index(); err != nil {
		return nil, err
	}
	return &b, nil
}

// NewZoneBook builds a book from in-memory entries.
func NewZoneBook(entries ...models.ZoneRules) (*ZoneBook, error) {
	b := &ZoneBook{Entries: entries}
	if err := b.index(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *ZoneBook) index() error {
	b.byCode = make(map[string]int, len(b.Entries))
	for i, z := range b.Entries {
		if z.ZoneCode == "" {
			return fmt.Errorf("zone rule %d has no code", i)
		}
		if _, dup := b.byCode[z.ZoneCode]; dup {
			return fmt.Errorf("duplicate zone rule %q", z.ZoneCode)
		}
		b.byCode[z.ZoneCode] = i
	}
	return nil
}

// Lookup finds the rules for a zone code. An exact key wins; otherwise the
// first entry where either name contains the other, case-insensitively.
// The returned copy carries the matched key and its source.
func (b *ZoneBook) Lookup(code string) (models.ZoneRules, bool) {
	if b == nil {
		return models.ZoneRules{}, false
	}
	if i, ok := b.byCode[code]; ok {
		r := b.Entries[i]
		r.Source = models.RuleSourceScheme
		return r, true
	}

	needle := strings.ToLower(strings.TrimSpace(code))
	if needle == "" {
		return models.ZoneRules{}, false
	}
	for _, z := range b.Entries {
		key := strings.ToLower(z.ZoneCode)
		if strings.Contains(key, needle) || strings.Contains(needle, key) {
			z.Source = models.RuleSourceSchemeFuzzy
			return z, true
		}
	}
	return models.ZoneRules{}, false
}

// Color returns the map colour for an exact zone code, or "" when unknown.
func (b *ZoneBook) Color(code string) string {
	if r, ok := b.exact(code); ok {
		return r.Color
	}
	return ""
}

// Link returns the planning scheme page for an exact zone code, or "" when
// unknown.
func (b *ZoneBook) Link(code string) string {
	if r, ok := b.exact(code); ok {
		return r.Link
	}
	return ""
}

func (b *ZoneBook) exact(code string) (models.ZoneRules, bool) {
	if b == nil {
		return models.ZoneRules{}, false
	}
	i, ok := b.byCode[code]
	if !ok {
		return models.ZoneRules{}, false
	}
	return b.Entries[i], true
}
