package repository

// Schema definitions for the pepscore database.
// Compatible with both SQLite and PostgreSQL.

const schemaPeps = `
CREATE TABLE IF NOT EXISTS peps (
    id BIGINT PRIMARY KEY,
    full_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS related_persons_links (
    id BIGINT PRIMARY KEY,
    from_person_id BIGINT NOT NULL,
    to_person_id BIGINT NOT NULL,
    category TEXT NOT NULL,
    relationship_type TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_links_from ON related_persons_links(from_person_id, category);
CREATE INDEX IF NOT EXISTS idx_links_to ON related_persons_links(to_person_id, category);
`

const schemaDeclarations = `
CREATE TABLE IF NOT EXISTS declarations (
    id BIGINT PRIMARY KEY,
    pep_id BIGINT NOT NULL,
    year INTEGER NOT NULL,
    city_of_residence_id BIGINT,
    spouse_declared INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_declarations_pep ON declarations(pep_id, year);
CREATE INDEX IF NOT EXISTS idx_declarations_year ON declarations(year);
`

const schemaAssets = `
CREATE TABLE IF NOT EXISTS properties (
    id BIGINT PRIMARY KEY,
    declaration_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    city_id BIGINT,
    valuation DOUBLE PRECISION,
    acquisition_date TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_properties_declaration ON properties(declaration_id, type);

CREATE TABLE IF NOT EXISTS property_rights (
    id BIGINT PRIMARY KEY,
    property_id BIGINT NOT NULL,
    pep_id BIGINT NOT NULL,
    acquisition_date TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_property_rights_pep ON property_rights(pep_id);

CREATE TABLE IF NOT EXISTS vehicles (
    id BIGINT PRIMARY KEY,
    declaration_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    brand TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    production_year INTEGER NOT NULL DEFAULT 0,
    is_luxury INTEGER NOT NULL DEFAULT 0,
    valuation DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_vehicles_declaration ON vehicles(declaration_id);

CREATE TABLE IF NOT EXISTS vehicle_rights (
    id BIGINT PRIMARY KEY,
    vehicle_id BIGINT NOT NULL,
    pep_id BIGINT NOT NULL,
    acquisition_date TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_vehicle_rights_pep ON vehicle_rights(pep_id);

CREATE TABLE IF NOT EXISTS money_assets (
    id BIGINT PRIMARY KEY,
    declaration_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    amount DOUBLE PRECISION,
    currency TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_money_declaration ON money_assets(declaration_id);

CREATE TABLE IF NOT EXISTS incomes (
    id BIGINT PRIMARY KEY,
    declaration_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    amount DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_incomes_declaration ON incomes(declaration_id);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGINT PRIMARY KEY,
    declaration_id BIGINT NOT NULL,
    type TEXT NOT NULL DEFAULT '',
    amount DOUBLE PRECISION,
    spent_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_declaration ON transactions(declaration_id);
`

const schemaGeography = `
CREATE TABLE IF NOT EXISTS ratu_regions (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ratu_cities (
    id BIGINT PRIMARY KEY,
    region_id BIGINT NOT NULL,
    name TEXT NOT NULL
);
`

const schemaExchangeRates = `
CREATE TABLE IF NOT EXISTS exchange_rates (
    currency TEXT NOT NULL,
    year INTEGER NOT NULL,
    rate_to_usd DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (currency, year)
);
`

// schemaPepScorings stores one row per (declaration, pep, rule).
// The composite key serialises concurrent upserts of the same result.
const schemaPepScorings = `
CREATE TABLE IF NOT EXISTS pep_scorings (
    declaration_id BIGINT NOT NULL,
    pep_id BIGINT NOT NULL,
    rule_id TEXT NOT NULL,
    score DOUBLE PRECISION NOT NULL,
    data TEXT NOT NULL,
    calculated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (declaration_id, pep_id, rule_id)
);

CREATE INDEX IF NOT EXISTS idx_pep_scorings_pep ON pep_scorings(pep_id);
CREATE INDEX IF NOT EXISTS idx_pep_scorings_rule ON pep_scorings(rule_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPeps,
		schemaDeclarations,
		schemaAssets,
		schemaGeography,
		schemaExchangeRates,
		schemaPepScorings,
	}
}
