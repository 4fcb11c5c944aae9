package scoring

import (
	"context"
	"fmt"
	"slices"

	"github.com/opensource-finance/pepscore/internal/domain"
)

// residentialCities returns the distinct cities of the residential property
// listed on the scored declaration. Properties without a city are skipped.
func residentialCities(ctx context.Context, in *Input) ([]int64, error) {
	props, err := in.Store.ListProperties(ctx, []int64{in.Declaration.ID}, domain.ResidentialPropertyTypes)
	if err != nil {
		return nil, fmt.Errorf("list residential properties: %w", err)
	}
	var cities []int64
	for _, p := range props {
		if p.CityID != nil {
			cities = append(cities, *p.CityID)
		}
	}
	slices.Sort(cities)
	return slices.Compact(cities), nil
}

// liveNowhereCityRule fires when the declared residence city has none of the
// declaration's residential property.
type liveNowhereCityRule struct {
	ruleInfo
}

func (r *liveNowhereCityRule) Evidence() any { return CityEvidence{} }

func (r *liveNowhereCityRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	residence := in.Declaration.CityOfResidenceID
	if residence == nil {
		return 0, nil, nil
	}

	cities, err := residentialCities(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	if slices.Contains(cities, *residence) {
		return 0, nil, nil
	}

	city, err := in.Store.GetCity(ctx, *residence)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve residence city %d: %w", *residence, err)
	}

	return r.weight, CityEvidence{
		DeclarationID: in.Declaration.ID,
		LiveInCityID:  city.ID,
		LiveInCity:    city.Name,
	}, nil
}

// liveNowhereRegionRule fires when the declaration has no residential
// property, or none in the region of the declared residence.
type liveNowhereRegionRule struct {
	ruleInfo
}

func (r *liveNowhereRegionRule) Evidence() any { return RegionEvidence{} }

func (r *liveNowhereRegionRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	residence := in.Declaration.CityOfResidenceID
	if residence == nil {
		return 0, nil, nil
	}

	cities, err := residentialCities(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	if len(cities) == 0 {
		return r.weight, RegionEvidence{DeclarationID: in.Declaration.ID}, nil
	}

	city, err := in.Store.GetCity(ctx, *residence)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve residence city %d: %w", *residence, err)
	}

	propertyCities, err := in.Store.ListCities(ctx, cities)
	if err != nil {
		return 0, nil, fmt.Errorf("list property cities: %w", err)
	}
	if len(propertyCities) != len(cities) {
		return 0, nil, fmt.Errorf("property cities missing from the reference table: %v", missingCities(cities, propertyCities))
	}
	for _, c := range propertyCities {
		if c.RegionID == city.RegionID {
			return 0, nil, nil
		}
	}

	region, err := in.Store.GetRegion(ctx, city.RegionID)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve region %d: %w", city.RegionID, err)
	}

	return r.weight, RegionEvidence{
		DeclarationID:  in.Declaration.ID,
		LiveInRegionID: region.ID,
		LiveInRegion:   region.Name,
	}, nil
}

// missingCities returns the ids in want that found has no city for.
func missingCities(want []int64, found []*domain.RatuCity) []int64 {
	var missing []int64
	for _, id := range want {
		if !slices.ContainsFunc(found, func(c *domain.RatuCity) bool { return c.ID == id }) {
			missing = append(missing, id)
		}
	}
	return missing
}
