package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/opensource-finance/pepscore/internal/domain"
)

const declarationColumns = "id, pep_id, year, city_of_residence_id, spouse_declared"

func scanDeclaration(row interface{ Scan(...any) error }) (*domain.Declaration, error) {
	var d domain.Declaration
	var city sql.NullInt64
	var spouse int
	if err := row.Scan(&d.ID, &d.PepID, &d.Year, &city, &spouse); err != nil {
		return nil, err
	}
	d.CityOfResidenceID = intPtr(city)
	d.SpouseDeclared = spouse == 1
	return &d, nil
}

// GetDeclaration retrieves a declaration by ID.
func (r *SQLRepository) GetDeclaration(ctx context.Context, declarationID int64) (*domain.Declaration, error) {
	q := r.builder().Select(declarationColumns).
		From(tableDeclarations).
		Where(squirrel.Eq{"id": declarationID})

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	d, err := scanDeclaration(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrapErr(err)
	}
	return d, nil
}

// DeclarationExists reports whether a declaration with the ID is stored.
func (r *SQLRepository) DeclarationExists(ctx context.Context, declarationID int64) (bool, error) {
	q := r.builder().Select("COUNT(*)").
		From(tableDeclarations).
		Where(squirrel.Eq{"id": declarationID})

	var n int
	if err := r.queryRow(ctx, q, &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListDeclarationsByPep returns all declarations of a PEP ordered by year.
func (r *SQLRepository) ListDeclarationsByPep(ctx context.Context, pepID int64) ([]*domain.Declaration, error) {
	q := r.builder().Select(declarationColumns).
		From(tableDeclarations).
		Where(squirrel.Eq{"pep_id": pepID}).
		OrderBy("year", "id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decls []*domain.Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

// ListDeclarationIDs returns declaration ids matching the filter in ascending order.
func (r *SQLRepository) ListDeclarationIDs(ctx context.Context, filter domain.DeclarationFilter) ([]int64, error) {
	q := r.builder().Select("id").From(tableDeclarations).OrderBy("id")
	if filter.PepID != 0 {
		q = q.Where(squirrel.Eq{"pep_id": filter.PepID})
	}
	if filter.YearFrom != 0 {
		q = q.Where(squirrel.GtOrEq{"year": filter.YearFrom})
	}
	if filter.YearTo != 0 {
		q = q.Where(squirrel.LtOrEq{"year": filter.YearTo})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetPep retrieves a PEP by ID.
func (r *SQLRepository) GetPep(ctx context.Context, pepID int64) (*domain.Pep, error) {
	q := r.builder().Select("id", "full_name").
		From(tablePeps).
		Where(squirrel.Eq{"id": pepID})

	var p domain.Pep
	if err := r.queryRow(ctx, q, &p.ID, &p.FullName); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListRelatedPersonsLinks returns links touching the PEP from either side.
// An empty category matches every category.
func (r *SQLRepository) ListRelatedPersonsLinks(ctx context.Context, pepID int64, category string) ([]*domain.RelatedPersonsLink, error) {
	q := r.builder().
		Select("id", "from_person_id", "to_person_id", "category", "relationship_type").
		From(tableRelatedPersonsLinks).
		Where(squirrel.Or{
			squirrel.Eq{"from_person_id": pepID},
			squirrel.Eq{"to_person_id": pepID},
		}).
		OrderBy("id")
	if category != "" {
		q = q.Where(squirrel.Eq{"category": category})
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.RelatedPersonsLink
	for rows.Next() {
		var l domain.RelatedPersonsLink
		if err := rows.Scan(&l.ID, &l.FromPersonID, &l.ToPersonID, &l.Category, &l.RelationshipType); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

// ListPropertyRights returns rights held by the filtered people joined with their property.
func (r *SQLRepository) ListPropertyRights(ctx context.Context, filter domain.RightFilter) ([]*domain.PropertyRightRecord, error) {
	if len(filter.PepIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select(
			"pr.id", "pr.property_id", "pr.pep_id", "pr.acquisition_date",
			"p.id", "p.declaration_id", "p.type", "p.city_id", "p.valuation", "p.acquisition_date",
		).
		From(tablePropertyRights + " pr").
		Join(tableProperties + " p ON p.id = pr.property_id").
		Where(squirrel.Eq{"pr.pep_id": filter.PepIDs}).
		OrderBy("pr.id")
	if len(filter.PropertyTypes) > 0 {
		q = q.Where(squirrel.Eq{"p.type": propertyTypeStrings(filter.PropertyTypes)})
	}
	if filter.ValuationMissing {
		q = q.Where(squirrel.Eq{"p.valuation": nil})
	}
	if !filter.AcquiredFrom.IsZero() {
		q = q.Where(squirrel.GtOrEq{"pr.acquisition_date": filter.AcquiredFrom.UTC()})
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PropertyRightRecord
	for rows.Next() {
		var rec domain.PropertyRightRecord
		var rightAcquired, propAcquired sql.NullTime
		var city sql.NullInt64
		var valuation sql.NullFloat64
		var propType string
		if err := rows.Scan(
			&rec.Right.ID, &rec.Right.PropertyID, &rec.Right.PepID, &rightAcquired,
			&rec.Property.ID, &rec.Property.DeclarationID, &propType, &city, &valuation, &propAcquired,
		); err != nil {
			return nil, err
		}
		rec.Right.AcquisitionDate = timePtr(rightAcquired)
		rec.Property.Type = domain.PropertyType(propType)
		rec.Property.CityID = intPtr(city)
		rec.Property.Valuation = floatPtr(valuation)
		rec.Property.AcquisitionDate = timePtr(propAcquired)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// ListVehicleRights returns vehicle rights held by the filtered people joined with their vehicle.
// PropertyTypes in the filter is ignored.
func (r *SQLRepository) ListVehicleRights(ctx context.Context, filter domain.RightFilter) ([]*domain.VehicleRightRecord, error) {
	if len(filter.PepIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select(
			"vr.id", "vr.vehicle_id", "vr.pep_id", "vr.acquisition_date",
			"v.id", "v.declaration_id", "v.type", "v.brand", "v.model",
			"v.production_year", "v.is_luxury", "v.valuation",
		).
		From(tableVehicleRights + " vr").
		Join(tableVehicles + " v ON v.id = vr.vehicle_id").
		Where(squirrel.Eq{"vr.pep_id": filter.PepIDs}).
		OrderBy("vr.id")
	if filter.ValuationMissing {
		q = q.Where(squirrel.Eq{"v.valuation": nil})
	}
	if !filter.AcquiredFrom.IsZero() {
		q = q.Where(squirrel.GtOrEq{"vr.acquisition_date": filter.AcquiredFrom.UTC()})
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.VehicleRightRecord
	for rows.Next() {
		var rec domain.VehicleRightRecord
		var acquired sql.NullTime
		var valuation sql.NullFloat64
		var vehicleType string
		var luxury int
		if err := rows.Scan(
			&rec.Right.ID, &rec.Right.VehicleID, &rec.Right.PepID, &acquired,
			&rec.Vehicle.ID, &rec.Vehicle.DeclarationID, &vehicleType, &rec.Vehicle.Brand, &rec.Vehicle.Model,
			&rec.Vehicle.ProductionYear, &luxury, &valuation,
		); err != nil {
			return nil, err
		}
		rec.Right.AcquisitionDate = timePtr(acquired)
		rec.Vehicle.Type = domain.VehicleType(vehicleType)
		rec.Vehicle.IsLuxury = luxury == 1
		rec.Vehicle.Valuation = floatPtr(valuation)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// ListProperties returns properties attached to the declarations, optionally narrowed by type.
func (r *SQLRepository) ListProperties(ctx context.Context, declarationIDs []int64, types []domain.PropertyType) ([]*domain.Property, error) {
	if len(declarationIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select("id", "declaration_id", "type", "city_id", "valuation", "acquisition_date").
		From(tableProperties).
		Where(squirrel.Eq{"declaration_id": declarationIDs}).
		OrderBy("id")
	if len(types) > 0 {
		q = q.Where(squirrel.Eq{"type": propertyTypeStrings(types)})
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []*domain.Property
	for rows.Next() {
		var p domain.Property
		var propType string
		var city sql.NullInt64
		var valuation sql.NullFloat64
		var acquired sql.NullTime
		if err := rows.Scan(&p.ID, &p.DeclarationID, &propType, &city, &valuation, &acquired); err != nil {
			return nil, err
		}
		p.Type = domain.PropertyType(propType)
		p.CityID = intPtr(city)
		p.Valuation = floatPtr(valuation)
		p.AcquisitionDate = timePtr(acquired)
		props = append(props, &p)
	}
	return props, rows.Err()
}

// ListVehicles returns vehicles attached to the declarations.
func (r *SQLRepository) ListVehicles(ctx context.Context, declarationIDs []int64) ([]*domain.Vehicle, error) {
	if len(declarationIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select("id", "declaration_id", "type", "brand", "model", "production_year", "is_luxury", "valuation").
		From(tableVehicles).
		Where(squirrel.Eq{"declaration_id": declarationIDs}).
		OrderBy("id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		var vehicleType string
		var luxury int
		var valuation sql.NullFloat64
		if err := rows.Scan(&v.ID, &v.DeclarationID, &vehicleType, &v.Brand, &v.Model, &v.ProductionYear, &luxury, &valuation); err != nil {
			return nil, err
		}
		v.Type = domain.VehicleType(vehicleType)
		v.IsLuxury = luxury == 1
		v.Valuation = floatPtr(valuation)
		vehicles = append(vehicles, &v)
	}
	return vehicles, rows.Err()
}

// ListMoney returns money holdings attached to the declarations.
func (r *SQLRepository) ListMoney(ctx context.Context, declarationIDs []int64) ([]*domain.Money, error) {
	if len(declarationIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select("id", "declaration_id", "type", "amount", "currency").
		From(tableMoney).
		Where(squirrel.Eq{"declaration_id": declarationIDs}).
		OrderBy("id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var money []*domain.Money
	for rows.Next() {
		var m domain.Money
		var moneyType string
		var amount sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.DeclarationID, &moneyType, &amount, &m.Currency); err != nil {
			return nil, err
		}
		m.Type = domain.MoneyType(moneyType)
		m.Amount = floatPtr(amount)
		money = append(money, &m)
	}
	return money, rows.Err()
}

// ListIncomes returns incomes attached to the declarations.
func (r *SQLRepository) ListIncomes(ctx context.Context, declarationIDs []int64) ([]*domain.Income, error) {
	if len(declarationIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select("id", "declaration_id", "type", "amount").
		From(tableIncomes).
		Where(squirrel.Eq{"declaration_id": declarationIDs}).
		OrderBy("id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []*domain.Income
	for rows.Next() {
		var i domain.Income
		var incomeType string
		var amount sql.NullFloat64
		if err := rows.Scan(&i.ID, &i.DeclarationID, &incomeType, &amount); err != nil {
			return nil, err
		}
		i.Type = domain.IncomeType(incomeType)
		i.Amount = floatPtr(amount)
		incomes = append(incomes, &i)
	}
	return incomes, rows.Err()
}

// ListTransactions returns expenditures attached to the declarations.
func (r *SQLRepository) ListTransactions(ctx context.Context, declarationIDs []int64) ([]*domain.Transaction, error) {
	if len(declarationIDs) == 0 {
		return nil, nil
	}

	q := r.builder().
		Select("id", "declaration_id", "type", "amount", "spent_at").
		From(tableTransactions).
		Where(squirrel.Eq{"declaration_id": declarationIDs}).
		OrderBy("id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var amount sql.NullFloat64
		var spent sql.NullTime
		if err := rows.Scan(&t.ID, &t.DeclarationID, &t.Type, &amount, &spent); err != nil {
			return nil, err
		}
		t.Amount = floatPtr(amount)
		t.Date = timePtr(spent)
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// GetCity retrieves a city from the reference table.
func (r *SQLRepository) GetCity(ctx context.Context, cityID int64) (*domain.RatuCity, error) {
	q := r.builder().Select("id", "region_id", "name").
		From(tableCities).
		Where(squirrel.Eq{"id": cityID})

	var c domain.RatuCity
	if err := r.queryRow(ctx, q, &c.ID, &c.RegionID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCities returns the cities with the given ids. Unknown ids are skipped.
func (r *SQLRepository) ListCities(ctx context.Context, cityIDs []int64) ([]*domain.RatuCity, error) {
	if len(cityIDs) == 0 {
		return nil, nil
	}

	q := r.builder().Select("id", "region_id", "name").
		From(tableCities).
		Where(squirrel.Eq{"id": cityIDs}).
		OrderBy("id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []*domain.RatuCity
	for rows.Next() {
		var c domain.RatuCity
		if err := rows.Scan(&c.ID, &c.RegionID, &c.Name); err != nil {
			return nil, err
		}
		cities = append(cities, &c)
	}
	return cities, rows.Err()
}

// GetRegion retrieves a region from the reference table.
func (r *SQLRepository) GetRegion(ctx context.Context, regionID int64) (*domain.RatuRegion, error) {
	q := r.builder().Select("id", "name").
		From(tableRegions).
		Where(squirrel.Eq{"id": regionID})

	var reg domain.RatuRegion
	if err := r.queryRow(ctx, q, &reg.ID, &reg.Name); err != nil {
		return nil, err
	}
	return &reg, nil
}
