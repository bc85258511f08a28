package entities

import "strings"

// ReportImages holds the public URLs of the nine neighborhood report charts.
// Missing charts encode as null.
type ReportImages struct {
	PriceByM2Evolution                     *string `json:"price_by_m2_evolution"`
	PriceEvolution                         *string `json:"price_evolution"`
	BarPriceByAmb                          *string `json:"bar_price_by_amb"`
	BarM2PriceByAmb                        *string `json:"bar_m2_price_by_amb"`
	BarPriceByAmbNeighborhood              *string `json:"bar_price_by_amb_neighborhood"`
	BarM2PriceByAmbNeighborhood            *string `json:"bar_m2_price_by_amb_neighborhood"`
	PiePropertyAmbDistribution             *string `json:"pie_property_amb_distribution"`
	PiePropertyM2DistributionNeighborhood  *string `json:"pie_property_m2_distribution_neighborhood"`
	PiePropertyAmbDistributionNeighborhood *string `json:"pie_property_amb_distribution_neighborhood"`
}

// Set assigns url to the chart whose file stem matches name. It reports
// false for unknown stems.
func (r *ReportImages) Set(name, url string) bool {
	slot := r.slot(strings.ToLower(strings.TrimSpace(name)))
	if slot == nil {
		return false
	}
	u := url
	*slot = &u
	return true
}

// Count returns how many charts were found
func (r *ReportImages) Count() int {
	n := 0
	for _, p := range []*string{
		r.PriceByM2Evolution, r.PriceEvolution, r.BarPriceByAmb, r.BarM2PriceByAmb,
		r.BarPriceByAmbNeighborhood, r.BarM2PriceByAmbNeighborhood, r.PiePropertyAmbDistribution,
		r.PiePropertyM2DistributionNeighborhood, r.PiePropertyAmbDistributionNeighborhood,
	} {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *ReportImages) slot(name string) **string {
	switch name {
	case "price_by_m2_evolution":
		return &r.PriceByM2Evolution
	case "price_evolution":
		return &r.PriceEvolution
	case "bar_price_by_amb":
		return &r.BarPriceByAmb
	case "bar_m2_price_by_amb":
		return &r.BarM2PriceByAmb
	case "bar_price_by_amb_neighborhood":
		return &r.BarPriceByAmbNeighborhood
	case "bar_m2_price_by_amb_neighborhood":
		return &r.BarM2PriceByAmbNeighborhood
	case "pie_property_amb_distribution":
		return &r.PiePropertyAmbDistribution
	case "pie_property_m2_distribution_neighborhood":
		return &r.PiePropertyM2DistributionNeighborhood
	case "pie_property_amb_distribution_neighborhood":
		return &r.PiePropertyAmbDistributionNeighborhood
	}
	return nil
}

// MarketReport bundles the report assets of a neighborhood for one period
type MarketReport struct {
	Barrio  string         `json:"barrio"`
	Period  string         `json:"period"`
	Images  *ReportImages  `json:"images"`
	Metrics map[string]any `json:"metrics"`
}

// Empty reports whether neither charts nor metrics were found
func (m *MarketReport) Empty() bool {
	return (m.Images == nil || m.Images.Count() == 0) && m.Metrics == nil
}
