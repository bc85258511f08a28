package entities

// PlaceCategory is one of the six fixed points-of-interest categories. The
// values double as JSON keys in NearbyPlacesResult.
type PlaceCategory string

const (
	CategoryTransport        PlaceCategory = "transporte"
	CategoryPointsOfInterest PlaceCategory = "sitios_interes"
	CategoryAdministrative   PlaceCategory = "edificios_administrativos"
	CategoryEducation        PlaceCategory = "instituciones_educativas"
	CategoryHealth           PlaceCategory = "centros_salud"
	CategoryRestaurants      PlaceCategory = "restaurantes"
)

// PlaceCategories lists every category in response order
var PlaceCategories = []PlaceCategory{
	CategoryTransport,
	CategoryPointsOfInterest,
	CategoryAdministrative,
	CategoryEducation,
	CategoryHealth,
	CategoryRestaurants,
}

// Coordinates represents a {lat, lng} pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbyPlace is a named point of interest near the query location
type NearbyPlace struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Rating   *float64    `json:"rating"`
	Distance int         `json:"distance"`
	Types    []string    `json:"types"`
	Location Coordinates `json:"location"`
	OSMID    int64       `json:"osm_id"`
	OSMType  string      `json:"osm_type"`
}

// NearbyPlacesSummary counts places per category
type NearbyPlacesSummary struct {
	Total                    int `json:"total"`
	Transporte               int `json:"transporte"`
	SitiosInteres            int `json:"sitios_interes"`
	EdificiosAdministrativos int `json:"edificios_administrativos"`
	InstitucionesEducativas  int `json:"instituciones_educativas"`
	CentrosSalud             int `json:"centros_salud"`
	Restaurantes             int `json:"restaurantes"`
}

// NearbyPlacesResult groups places by category. Lists are never nil so the
// encoded document always carries every key.
type NearbyPlacesResult struct {
	Transporte               []NearbyPlace       `json:"transporte"`
	SitiosInteres            []NearbyPlace       `json:"sitios_interes"`
	EdificiosAdministrativos []NearbyPlace       `json:"edificios_administrativos"`
	InstitucionesEducativas  []NearbyPlace       `json:"instituciones_educativas"`
	CentrosSalud             []NearbyPlace       `json:"centros_salud"`
	Restaurantes             []NearbyPlace       `json:"restaurantes"`
	Coordinates              Coordinates         `json:"coordinates"`
	Summary                  NearbyPlacesSummary `json:"summary"`
}

// NewNearbyPlacesResult returns an empty but structurally complete result
func NewNearbyPlacesResult(at Coordinates) *NearbyPlacesResult {
	return &NearbyPlacesResult{
		Transporte:               []NearbyPlace{},
		SitiosInteres:            []NearbyPlace{},
		EdificiosAdministrativos: []NearbyPlace{},
		InstitucionesEducativas:  []NearbyPlace{},
		CentrosSalud:             []NearbyPlace{},
		Restaurantes:             []NearbyPlace{},
		Coordinates:              at,
	}
}

// Set stores the places of one category and refreshes the summary
func (r *NearbyPlacesResult) Set(category PlaceCategory, places []NearbyPlace) {
	if places == nil {
		places = []NearbyPlace{}
	}
	if slot := r.slot(category); slot != nil {
		*slot = places
	}
	r.refreshSummary()
}

// Places returns the places of one category
func (r *NearbyPlacesResult) Places(category PlaceCategory) []NearbyPlace {
	if slot := r.slot(category); slot != nil {
		return *slot
	}
	return nil
}

func (r *NearbyPlacesResult) slot(category PlaceCategory) *[]NearbyPlace {
	switch category {
	case CategoryTransport:
		return &r.Transporte
	case CategoryPointsOfInterest:
		return &r.SitiosInteres
	case CategoryAdministrative:
		return &r.EdificiosAdministrativos
	case CategoryEducation:
		return &r.InstitucionesEducativas
	case CategoryHealth:
		return &r.CentrosSalud
	case CategoryRestaurants:
		return &r.Restaurantes
	}
	return nil
}

func (r *NearbyPlacesResult) refreshSummary() {
	r.Summary = NearbyPlacesSummary{
		Transporte:               len(r.Transporte),
		SitiosInteres:            len(r.SitiosInteres),
		EdificiosAdministrativos: len(r.EdificiosAdministrativos),
		InstitucionesEducativas:  len(r.InstitucionesEducativas),
		CentrosSalud:             len(r.CentrosSalud),
		Restaurantes:             len(r.Restaurantes),
	}
	r.Summary.Total = r.Summary.Transporte + r.Summary.SitiosInteres + r.Summary.EdificiosAdministrativos +
		r.Summary.InstitucionesEducativas + r.Summary.CentrosSalud + r.Summary.Restaurantes
}
