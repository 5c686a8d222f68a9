package pipeline

import (
	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// prepared holds the canonical-space view of the inputs.
type prepared struct {
	renorm       domain.Renormalization
	observations []domain.Observation
	skipped      int
	site         domain.Site
}

// transform resolves the site and the renormalization, then maps the moment
// records into the canonical plane. Records with a non-finite coordinate or
// target value are dropped.
func transform(in Inputs, params Params) (prepared, error) {
	var out prepared

	out.site = domain.Site{ID: params.Site}
	if in.Catalog != nil {
		site, err := in.Catalog.Lookup(params.Site)
		if err != nil {
			return prepared{}, err
		}
		out.site = site
	}

	if in.Renorm == nil {
		return prepared{}, domain.ConfigErrorf("renorm_table", "no renormalization table loaded")
	}
	rn, err := domain.ResolveRenormalization(in.Renorm, params.RenormType, params.Target)
	if err != nil {
		return prepared{}, err
	}
	out.renorm = rn
	out.observations, out.skipped = rn.Forward(in.Records)
	return out, nil
}
