package rules

import (
	"fmt"
	"strings"
)

// CatalogLayer is one queryable overlay layer.
type CatalogLayer struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// CatalogCategory is a named group of overlay layers.
type CatalogCategory struct {
	Name   string         `yaml:"name"`
	Layers []CatalogLayer `yaml:"layers"`
}

// MapLayerSet is the set of layers drawn on an exported overlay map.
type MapLayerSet struct {
	Key string `yaml:"key"`
	IDs []int  `yaml:"ids"`
}

// Catalog is the overlay layer catalog.
type Catalog struct {
	Version     int               `yaml:"version"`
	HeightLayer int               `yaml:"height_layer"`
	Categories  []CatalogCategory `yaml:"categories"`
	MapLayers   []MapLayerSet     `yaml:"map_layers"`

	byID map[int]LayerInfo
}

// LayerInfo locates a layer within the catalog.
type LayerInfo struct {
	Category string
	Name     string
	Order    int
}

// LoadCatalog parses the embedded overlay catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := decode("overlays.yaml", &c); err != nil {
		return nil, err
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.byID = make(map[int]LayerInfo)
	order := 0
	for _, cat := range c.Categories {
		for _, l := range cat.Layers {
			if _, dup := c.byID[l.ID]; dup {
				return fmt.Errorf("overlay catalog: layer %d listed twice", l.ID)
			}
			c.byID[l.ID] = LayerInfo{Category: cat.Name, Name: l.Name, Order: order}
			order++
		}
	}
	return nil
}

// LayerIDs returns every queryable layer in catalog order.
func (c *Catalog) LayerIDs() []int {
	ids := make([]int, 0, len(c.byID))
	for _, cat := range c.Categories {
		for _, l := range cat.Layers {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// Layer returns the category and name of a layer id.
func (c *Catalog) Layer(id int) (LayerInfo, bool) {
	info, ok := c.byID[id]
	return info, ok
}

// normalizeCategory turns "Biodiversity, Waterways and Wetlands" into
// "biodiversity_waterways_and_wetlands".
func normalizeCategory(category string) string {
	s := strings.ToLower(category)
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ",", "")
}

// MapLayersFor returns the map layer sets matching any of the given
// overlay categories. A set matches when its key and a normalised category
// contain one another.
func (c *Catalog) MapLayersFor(categories []string) []MapLayerSet {
	norm := make([]string, 0, len(categories))
	for _, cat := range categories {
		if n := normalizeCategory(cat); n != "" {
			norm = append(norm, n)
		}
	}

	var out []MapLayerSet
	for _, set := range c.MapLayers {
		for _, n := range norm {
			if strings.Contains(n, set.Key) || strings.Contains(set.Key, n) {
				out = append(out, set)
				break
			}
		}
	}
	return out
}
