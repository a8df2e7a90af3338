package models

import "strings"

// Parcel is a cadastral record from the local index or the state authority.
// Nullable fields use pointers to distinguish between zero values and NULL.
type Parcel struct {
	Lot         string   `json:"lot"`
	Plan        string   `json:"plan"`
	LotPlanKey  string   `json:"lotplan"`
	ParcelType  string   `json:"parcel_type"`
	CoverType   string   `json:"cover_type"`
	Tenure      string   `json:"tenure"`
	AreaSqm     *float64 `json:"area_sqm"`
	Locality    string   `json:"locality"`
	ShireName   string   `json:"shire_name"`
	FeatureName string   `json:"feature_name"`
}

// CoverTypeBase marks the primary cadastral cover, as opposed to easement covers.
const CoverTypeBase = "Base"

// LotPlan returns the "lot/plan" display form, or "" when either half is missing.
func (p Parcel) LotPlan() string {
	if p.Lot == "" || p.Plan == "" {
		return ""
	}
	return p.Lot + "/" + p.Plan
}

// Area returns the parcel area when it is known and positive.
func (p Parcel) Area() (float64, bool) {
	if p.AreaSqm == nil || *p.AreaSqm <= 0 {
		return 0, false
	}
	return *p.AreaSqm, true
}

// CouncilLotPlan is the council's joined form: lot followed by the plan number
// with its RP/SP prefix removed, e.g. "12" + "RP901532" -> "12901532".
func (p Parcel) CouncilLotPlan() string {
	if p.Lot == "" || p.Plan == "" {
		return ""
	}
	return strings.TrimSpace(p.Lot) + strings.TrimSpace(StripPlanPrefix(p.Plan))
}

// StripPlanPrefix removes the RP and SP survey-plan markers from a plan id.
func StripPlanPrefix(plan string) string {
	return strings.NewReplacer("RP", "", "SP", "").Replace(plan)
}

// AddressCandidate is a geocoded address record linking a street address to a lot/plan.
type AddressCandidate struct {
	Address      string   `json:"address"`
	Locality     string   `json:"locality"`
	Lot          string   `json:"lot"`
	Plan         string   `json:"plan"`
	LotPlanKey   string   `json:"lotplan"`
	StreetName   string   `json:"street_name"`
	StreetNumber string   `json:"street_number"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// Point returns the address location when both coordinates are present.
func (a AddressCandidate) Point() (Point, bool) {
	if a.Lat == nil || a.Lng == nil || *a.Lat == 0 {
		return Point{}, false
	}
	return Point{Lat: *a.Lat, Lng: *a.Lng}, true
}

// HasLotPlan reports whether the candidate names a lot/plan pair.
func (a AddressCandidate) HasLotPlan() bool {
	return a.Lot != "" && a.Plan != ""
}

// Resolution tiers.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// ResolvedParcel is the canonical identity produced by the resolver.
type ResolvedParcel struct {
	Parcel   Parcel            `json:"parcel"`
	Geometry *Geometry         `json:"geometry"`
	Address  *AddressCandidate `json:"address,omitempty"`
	Source   string            `json:"source"`
}

// RepresentativePoint is the point used for provider queries: the matched
// address location when there is one, otherwise the geometry's vertex centroid.
func (r ResolvedParcel) RepresentativePoint() (Point, bool) {
	if r.Address != nil {
		if p, ok := r.Address.Point(); ok {
			return p, true
		}
	}
	return r.Geometry.Centroid()
}
