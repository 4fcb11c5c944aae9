package repository

import (
	"context"
	"fmt"

	"github.com/opensource-finance/pepscore/internal/domain"
)

var idKey = []string{"id"}

func requireID(kind string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s id must be positive", ErrInvalidInput, kind)
	}
	return nil
}

// SavePep creates or replaces a PEP.
func (r *SQLRepository) SavePep(ctx context.Context, pep *domain.Pep) error {
	if err := requireID("pep", pep.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tablePeps, idKey,
		[]string{"id", "full_name"},
		pep.ID, pep.FullName,
	)
}

// SaveRelatedPersonsLink creates or replaces a link between two PEPs.
func (r *SQLRepository) SaveRelatedPersonsLink(ctx context.Context, link *domain.RelatedPersonsLink) error {
	if err := requireID("link", link.ID); err != nil {
		return err
	}
	if link.FromPersonID == link.ToPersonID {
		return fmt.Errorf("%w: link %d points to itself", ErrInvalidInput, link.ID)
	}
	return r.upsert(ctx, tableRelatedPersonsLinks, idKey,
		[]string{"id", "from_person_id", "to_person_id", "category", "relationship_type"},
		link.ID, link.FromPersonID, link.ToPersonID, link.Category, link.RelationshipType,
	)
}

// SaveDeclaration creates or replaces a declaration.
func (r *SQLRepository) SaveDeclaration(ctx context.Context, decl *domain.Declaration) error {
	if err := requireID("declaration", decl.ID); err != nil {
		return err
	}
	if decl.PepID <= 0 || decl.Year <= 0 {
		return fmt.Errorf("%w: declaration %d needs a pep and a year", ErrInvalidInput, decl.ID)
	}
	return r.upsert(ctx, tableDeclarations, idKey,
		[]string{"id", "pep_id", "year", "city_of_residence_id", "spouse_declared"},
		decl.ID, decl.PepID, decl.Year, intParam(decl.CityOfResidenceID), boolInt(decl.SpouseDeclared),
	)
}

// SaveProperty creates or replaces a property.
func (r *SQLRepository) SaveProperty(ctx context.Context, p *domain.Property) error {
	if err := requireID("property", p.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableProperties, idKey,
		[]string{"id", "declaration_id", "type", "city_id", "valuation", "acquisition_date"},
		p.ID, p.DeclarationID, string(p.Type), intParam(p.CityID), floatParam(p.Valuation), timeParam(p.AcquisitionDate),
	)
}

// SavePropertyRight creates or replaces a property right.
func (r *SQLRepository) SavePropertyRight(ctx context.Context, right *domain.PropertyRight) error {
	if err := requireID("property right", right.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tablePropertyRights, idKey,
		[]string{"id", "property_id", "pep_id", "acquisition_date"},
		right.ID, right.PropertyID, right.PepID, timeParam(right.AcquisitionDate),
	)
}

// SaveVehicle creates or replaces a vehicle.
func (r *SQLRepository) SaveVehicle(ctx context.Context, v *domain.Vehicle) error {
	if err := requireID("vehicle", v.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableVehicles, idKey,
		[]string{"id", "declaration_id", "type", "brand", "model", "production_year", "is_luxury", "valuation"},
		v.ID, v.DeclarationID, string(v.Type), v.Brand, v.Model, v.ProductionYear, boolInt(v.IsLuxury), floatParam(v.Valuation),
	)
}

// SaveVehicleRight creates or replaces a vehicle right.
func (r *SQLRepository) SaveVehicleRight(ctx context.Context, right *domain.VehicleRight) error {
	if err := requireID("vehicle right", right.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableVehicleRights, idKey,
		[]string{"id", "vehicle_id", "pep_id", "acquisition_date"},
		right.ID, right.VehicleID, right.PepID, timeParam(right.AcquisitionDate),
	)
}

// SaveMoney creates or replaces a money holding.
func (r *SQLRepository) SaveMoney(ctx context.Context, m *domain.Money) error {
	if err := requireID("money", m.ID); err != nil {
		return err
	}
	if m.Currency == "" {
		return fmt.Errorf("%w: money %d has no currency", ErrInvalidInput, m.ID)
	}
	return r.upsert(ctx, tableMoney, idKey,
		[]string{"id", "declaration_id", "type", "amount", "currency"},
		m.ID, m.DeclarationID, string(m.Type), floatParam(m.Amount), m.Currency,
	)
}

// SaveIncome creates or replaces an income entry.
func (r *SQLRepository) SaveIncome(ctx context.Context, i *domain.Income) error {
	if err := requireID("income", i.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableIncomes, idKey,
		[]string{"id", "declaration_id", "type", "amount"},
		i.ID, i.DeclarationID, string(i.Type), floatParam(i.Amount),
	)
}

// SaveTransaction creates or replaces an expenditure.
func (r *SQLRepository) SaveTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := requireID("transaction", t.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableTransactions, idKey,
		[]string{"id", "declaration_id", "type", "amount", "spent_at"},
		t.ID, t.DeclarationID, t.Type, floatParam(t.Amount), timeParam(t.Date),
	)
}

// SaveRegion creates or replaces a region.
func (r *SQLRepository) SaveRegion(ctx context.Context, reg *domain.RatuRegion) error {
	if err := requireID("region", reg.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableRegions, idKey,
		[]string{"id", "name"},
		reg.ID, reg.Name,
	)
}

// SaveCity creates or replaces a city.
func (r *SQLRepository) SaveCity(ctx context.Context, c *domain.RatuCity) error {
	if err := requireID("city", c.ID); err != nil {
		return err
	}
	return r.upsert(ctx, tableCities, idKey,
		[]string{"id", "region_id", "name"},
		c.ID, c.RegionID, c.Name,
	)
}
