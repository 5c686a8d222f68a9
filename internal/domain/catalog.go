package domain

// Site describes one disdrometer data set of the catalog.
type Site struct {
	ID             string  `json:"id"`
	Instrument     string  `json:"instrument"`
	AreaInstrument float64 `json:"area_instrument"`
	TimeResolution float64 `json:"time_resolution"`
	CellLimits     string  `json:"cell_limits"`
}

// Catalog maps site acronyms (the ID2 column) to site metadata.
type Catalog struct {
	sites map[string]Site
}

// NewCatalog indexes sites by ID. The first row for an acronym wins.
func NewCatalog(sites []Site) *Catalog {
	c := &Catalog{sites: make(map[string]Site, len(sites))}
	for _, s := range sites {
		if _, seen := c.sites[s.ID]; seen {
			continue
		}
		c.sites[s.ID] = s
	}
	return c
}

// Lookup returns the site for acronym.
func (c *Catalog) Lookup(acronym string) (Site, error) {
	s, ok := c.sites[acronym]
	if !ok {
		return Site{}, &LookupMissError{Kind: "site catalog", Key: acronym}
	}
	return s, nil
}

// Representation is the drop-size representation the moments were derived in.
type Representation string

const (
	RepresentationFlux      Representation = "flux"
	RepresentationCloudExpo Representation = "cloudexpo"
	RepresentationCloudPlaw Representation = "cloudplaw"
	RepresentationCloud2DVD Representation = "cloud2dvd"
)

// ParseRepresentation validates a representation name.
func ParseRepresentation(s string) (Representation, error) {
	switch r := Representation(s); r {
	case RepresentationFlux, RepresentationCloudExpo, RepresentationCloudPlaw, RepresentationCloud2DVD:
		return r, nil
	}
	return "", ConfigErrorf("representation", "%q not one of flux, cloudexpo, cloudplaw, cloud2dvd", s)
}
