package scoring

// Evidence payloads persisted in pep_scorings.data. Field names are part of
// the stored format.

// UndisclosedPropertyEvidence backs PEP03_home and PEP03_land.
type UndisclosedPropertyEvidence struct {
	PropertyID    int64 `json:"property_id" validate:"gt=0"`
	DeclarationID int64 `json:"declaration_id" validate:"gt=0"`
	AssetsCount   int   `json:"assets_count" validate:"gte=1"`
}

// UndisclosedVehicleEvidence backs PEP03_car.
type UndisclosedVehicleEvidence struct {
	VehicleID     int64 `json:"vehicle_id" validate:"gt=0"`
	DeclarationID int64 `json:"declaration_id" validate:"gt=0"`
	AssetsCount   int   `json:"assets_count" validate:"gte=1"`
}

// CityEvidence backs PEP04_adr.
type CityEvidence struct {
	DeclarationID int64  `json:"declaration_id" validate:"gt=0"`
	LiveInCityID  int64  `json:"live_in_city_id" validate:"gt=0"`
	LiveInCity    string `json:"live_in_city" validate:"required,max=100"`
}

// RegionEvidence backs PEP04_reg. The region fields are omitted when the
// declaration lists no residential property at all.
type RegionEvidence struct {
	DeclarationID  int64  `json:"declaration_id" validate:"gt=0"`
	LiveInRegionID int64  `json:"live_in_region_id,omitempty" validate:"required_with=LiveInRegion"`
	LiveInRegion   string `json:"live_in_region,omitempty" validate:"required_with=LiveInRegionID,max=30"`
}

// GrowthEvidence backs the PEP01 rules. Sums are in USD.
type GrowthEvidence struct {
	OldSum float64  `json:"old_sum" validate:"gte=0"`
	NewSum float64  `json:"new_sum" validate:"gte=0"`
	Year   int      `json:"year" validate:"gt=0"`
	Income *float64 `json:"income,omitempty" validate:"omitempty,gte=0"`
}

// NewCarEvidence backs PEP02_new_car.
type NewCarEvidence struct {
	VehicleID      int64 `json:"vehicle_id" validate:"gt=0"`
	ProductionYear int   `json:"production_year" validate:"gt=0"`
}

// LuxuryCarEvidence backs PEP02_lux_car.
type LuxuryCarEvidence struct {
	VehicleID int64  `json:"vehicle_id" validate:"gt=0"`
	Brand     string `json:"brand" validate:"max=100"`
	Model     string `json:"model" validate:"max=100"`
}

// CarsCountEvidence backs PEP02_cars.
type CarsCountEvidence struct {
	CarsCount int `json:"cars_count" validate:"gt=5"`
}

// GiftsEvidence backs PEP05_gifts. The price is in national currency.
type GiftsEvidence struct {
	PresentsPrice float64 `json:"presents_price" validate:"gt=100000"`
}

// ExpendituresEvidence backs PEP05_expend. Amounts are in USD.
type ExpendituresEvidence struct {
	Expenditures float64 `json:"expenditures" validate:"gt=0"`
	Income       float64 `json:"income" validate:"gte=0"`
	Money        float64 `json:"money" validate:"gte=0"`
}

// CashEvidence backs PEP05_cash. Amounts are in USD.
type CashEvidence struct {
	CashUSD      float64 `json:"cash_usd" validate:"gt=0"`
	ThresholdUSD float64 `json:"threshold_usd" validate:"gt=0"`
}

// SpouseEvidence backs PEP06_spouse.
type SpouseEvidence struct {
	SpouseID         int64  `json:"spouse_id" validate:"gt=0"`
	RelationshipType string `json:"relationship_type" validate:"required,max=100"`
}

// CreativeEvidence backs PEP07_creative. Amounts are in national currency.
type CreativeEvidence struct {
	CreativeIncome float64 `json:"creative_income" validate:"gt=0"`
	TotalIncome    float64 `json:"total_income" validate:"gt=0"`
	Share          float64 `json:"share" validate:"gt=0,lte=1"`
}
