package rules

import (
	"fmt"
	"strings"
)

// HazardClass groups overlay categories that share a deduction, a
// buildability note and a report risk.
type HazardClass struct {
	Key      string   `yaml:"key"`
	Match    []string `yaml:"match"`
	PerLayer int      `yaml:"per_layer"`
	Flat     int      `yaml:"flat"`
	Reason   string   `yaml:"reason"`
	Note     string   `yaml:"note"`
	Risk     string   `yaml:"risk"`
}

// Matches reports whether a category name belongs to the class.
func (h HazardClass) Matches(category string) bool {
	c := strings.ToLower(category)
	for _, term := range h.Match {
		if strings.Contains(c, term) {
			return true
		}
	}
	return false
}

// Points is the deduction for a group of n layers.
func (h HazardClass) Points(n int) int {
	if h.PerLayer > 0 {
		return h.PerLayer * n
	}
	return h.Flat
}

// Weight is a fixed deduction.
type Weight struct {
	Reason string `yaml:"reason"`
	Points int    `yaml:"points"`
}

// Deductions are the non-overlay weights.
type Deductions struct {
	FloodMapping    Weight `yaml:"flood_mapping"`
	Easement        Weight `yaml:"easement"`
	Covenant        Weight `yaml:"covenant"`
	Koala           Weight `yaml:"koala"`
	ESA             Weight `yaml:"esa"`
	NoWater         Weight `yaml:"no_water"`
	NoSewer         Weight `yaml:"no_sewer"`
	LotNonCompliant Weight `yaml:"lot_non_compliant"`
}

// ScoreLabel names a score band.
type ScoreLabel struct {
	Min   int    `yaml:"min"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// Scoring is the constraint scoring table.
type Scoring struct {
	Version              int           `yaml:"version"`
	Baseline             int           `yaml:"baseline"`
	MinScore             int           `yaml:"min_score"`
	MaxScore             int           `yaml:"max_score"`
	Hazards              []HazardClass `yaml:"hazards"`
	OtherNote            string        `yaml:"other_note"`
	NoteExcludedCategory string        `yaml:"note_excluded_category"`
	Deductions           Deductions    `yaml:"deductions"`
	Labels               []ScoreLabel  `yaml:"labels"`
}

// LoadScoring parses the embedded scoring table.
func LoadScoring() (*Scoring, error) {
	var s Scoring
	if err := decode("scoring.yaml", &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scoring) validate() error {
	if s.MinScore > s.MaxScore {
		return fmt.Errorf("scoring table: min_score %d above max_score %d", s.MinScore, s.MaxScore)
	}
	if s.Baseline < s.MinScore || s.Baseline > s.MaxScore {
		return fmt.Errorf("scoring table: baseline %d outside [%d,%d]", s.Baseline, s.MinScore, s.MaxScore)
	}
	for _, h := range s.Hazards {
		if h.Key == "" || len(h.Match) == 0 {
			return fmt.Errorf("scoring table: hazard class needs a key and match terms")
		}
		if h.PerLayer < 0 || h.Flat < 0 {
			return fmt.Errorf("scoring table: hazard %q has a negative weight", h.Key)
		}
	}
	for i := 1; i < len(s.Labels); i++ {
		if s.Labels[i].Min >= s.Labels[i-1].Min {
			return fmt.Errorf("scoring table: labels must be ordered by descending min")
		}
	}
	return nil
}

// Classify returns the first hazard class matching the category.
func (s *Scoring) Classify(category string) (HazardClass, bool) {
	for _, h := range s.Hazards {
		if h.Matches(category) {
			return h, true
		}
	}
	return HazardClass{}, false
}

// Clamp bounds a raw score.
func (s *Scoring) Clamp(score int) int {
	if score < s.MinScore {
		return s.MinScore
	}
	if score > s.MaxScore {
		return s.MaxScore
	}
	return score
}

// Label returns the band for a score.
func (s *Scoring) Label(score int) ScoreLabel {
	for _, l := range s.Labels {
		if score >= l.Min {
			return l
		}
	}
	if n := len(s.Labels); n > 0 {
		return s.Labels[n-1]
	}
	return ScoreLabel{}
}

// Note renders the buildability note for one overlay layer. ok is false for
// the excluded category.
func (s *Scoring) Note(category, label string) (kind, text string, ok bool) {
	if strings.EqualFold(category, s.NoteExcludedCategory) {
		return "", "", false
	}
	if h, found := s.Classify(category); found && h.Note != "" {
		return h.Key, strings.ReplaceAll(h.Note, "{label}", label), true
	}
	text = strings.ReplaceAll(s.OtherNote, "{category}", category)
	return "other", strings.ReplaceAll(text, "{label}", label), true
}
