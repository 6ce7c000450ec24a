package property

import "strings"

// SearchParams filters the public catalog. Zero values mean "no filter".
type SearchParams struct {
	City         string
	Locality     string
	MaxRent      int64
	MinRent      int64
	Sharing      SharingType
	Gender       GenderPreference
	FoodIncluded *bool
	Amenities    []string
	OnlyActive   bool
	Limit        int
	Offset       int
}

const defaultSearchLimit = 50

// Normalized returns a copy with trimmed text filters and bounded paging.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.City = strings.TrimSpace(p.City)
	out.Locality = strings.TrimSpace(p.Locality)
	amenities := make([]string, 0, len(p.Amenities))
	for _, a := range p.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, strings.ToLower(a))
		}
	}
	out.Amenities = amenities
	if out.Limit <= 0 || out.Limit > defaultSearchLimit {
		out.Limit = defaultSearchLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// Matches reports whether a property satisfies the (already normalized) filters.
func (p SearchParams) Matches(prop *Property) bool {
	if p.OnlyActive && !prop.Active {
		return false
	}
	if p.City != "" && !strings.EqualFold(prop.Address.City, p.City) {
		return false
	}
	if p.Locality != "" && !strings.Contains(strings.ToLower(prop.Address.Locality), strings.ToLower(p.Locality)) {
		return false
	}
	if p.MinRent > 0 && prop.MonthlyRent < p.MinRent {
		return false
	}
	if p.MaxRent > 0 && prop.MonthlyRent > p.MaxRent {
		return false
	}
	if p.Sharing != "" && prop.Sharing != p.Sharing {
		return false
	}
	if p.Gender != "" && p.Gender != GenderAny && prop.Gender != GenderAny && prop.Gender != p.Gender {
		return false
	}
	if p.FoodIncluded != nil && prop.FoodIncluded != *p.FoodIncluded {
		return false
	}
	for _, want := range p.Amenities {
		found := false
		for _, have := range prop.Amenities {
			if strings.EqualFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
