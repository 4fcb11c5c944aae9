package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/pepscore/internal/domain"
)

var undisclosedSince = time.Date(UndisclosedSinceYear, time.January, 1, 0, 0, 0, 0, time.UTC)

func realEstateTypes() []domain.PropertyType { return domain.RealEstatePropertyTypes }

func landTypes() []domain.PropertyType { return []domain.PropertyType{domain.PropertyLand} }

// undisclosedPropertyRule fires when the PEP or a family member acquired
// property of the given types without declaring its value.
type undisclosedPropertyRule struct {
	ruleInfo
	types []domain.PropertyType
}

func (r *undisclosedPropertyRule) Evidence() any { return UndisclosedPropertyEvidence{} }

func (r *undisclosedPropertyRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	family, err := in.FamilyIDs(ctx)
	if err != nil {
		return 0, nil, err
	}

	records, err := in.Store.ListPropertyRights(ctx, domain.RightFilter{
		PepIDs:           family,
		PropertyTypes:    r.types,
		ValuationMissing: true,
		AcquiredFrom:     undisclosedSince,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("list property rights: %w", err)
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	assets := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		assets[rec.Property.ID] = struct{}{}
	}

	first := records[0]
	return r.weight, UndisclosedPropertyEvidence{
		PropertyID:    first.Property.ID,
		DeclarationID: first.Property.DeclarationID,
		AssetsCount:   len(assets),
	}, nil
}

// undisclosedVehicleRule fires when the PEP or a family member acquired a
// vehicle without declaring its value.
type undisclosedVehicleRule struct {
	ruleInfo
}

func (r *undisclosedVehicleRule) Evidence() any { return UndisclosedVehicleEvidence{} }

func (r *undisclosedVehicleRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	family, err := in.FamilyIDs(ctx)
	if err != nil {
		return 0, nil, err
	}

	records, err := in.Store.ListVehicleRights(ctx, domain.RightFilter{
		PepIDs:           family,
		ValuationMissing: true,
		AcquiredFrom:     undisclosedSince,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("list vehicle rights: %w", err)
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	assets := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		assets[rec.Vehicle.ID] = struct{}{}
	}

	first := records[0]
	return r.weight, UndisclosedVehicleEvidence{
		VehicleID:     first.Vehicle.ID,
		DeclarationID: first.Vehicle.DeclarationID,
		AssetsCount:   len(assets),
	}, nil
}
