package domain

import (
	"time"
)

// NationalCurrency is the currency of valuations declared on properties,
// vehicles, incomes and expenditures.
const NationalCurrency = "UAH"

// Declaration is one PEP's asset disclosure for one calendar year.
// Declarations are read-only for the scoring engine.
type Declaration struct {
	ID                int64  `json:"id"`
	PepID             int64  `json:"pepId"`
	Year              int    `json:"year"`
	CityOfResidenceID *int64 `json:"cityOfResidenceId,omitempty"`
	SpouseDeclared    bool   `json:"spouseDeclared"`
}

// Pep is a politically exposed person.
type Pep struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
}

// Relationship categories of RelatedPersonsLink.
const (
	RelationshipFamily   = "family"
	RelationshipBusiness = "business"
	RelationshipPersonal = "personal"
)

// RelatedPersonsLink is a directed edge between two PEPs.
// RelationshipType is a free-text label such as "wife" or "husband".
type RelatedPersonsLink struct {
	ID               int64  `json:"id"`
	FromPersonID     int64  `json:"fromPersonId"`
	ToPersonID       int64  `json:"toPersonId"`
	Category         string `json:"category"`
	RelationshipType string `json:"relationshipType"`
}

// Other returns the id on the opposite end of the link from pepID.
func (l *RelatedPersonsLink) Other(pepID int64) int64 {
	if l.FromPersonID == pepID {
		return l.ToPersonID
	}
	return l.FromPersonID
}

// PropertyType enumerates declared real estate kinds.
type PropertyType string

const (
	PropertyHouse       PropertyType = "house"
	PropertySummerHouse PropertyType = "summer_house"
	PropertyApartment   PropertyType = "apartment"
	PropertyRoom        PropertyType = "room"
	PropertyGarage      PropertyType = "garage"
	PropertyLand        PropertyType = "land"
	PropertyOther       PropertyType = "other"
)

// ResidentialPropertyTypes are the property types a person can live in.
var ResidentialPropertyTypes = []PropertyType{
	PropertyHouse,
	PropertySummerHouse,
	PropertyApartment,
	PropertyRoom,
}

// RealEstatePropertyTypes are all built property types, i.e. everything except land.
var RealEstatePropertyTypes = []PropertyType{
	PropertyHouse,
	PropertySummerHouse,
	PropertyApartment,
	PropertyRoom,
	PropertyGarage,
	PropertyOther,
}

// Property is a real estate item attached to a declaration.
// Valuation is in NationalCurrency and nil when undisclosed.
type Property struct {
	ID              int64        `json:"id"`
	DeclarationID   int64        `json:"declarationId"`
	Type            PropertyType `json:"type"`
	CityID          *int64       `json:"cityId,omitempty"`
	Valuation       *float64     `json:"valuation,omitempty"`
	AcquisitionDate *time.Time   `json:"acquisitionDate,omitempty"`
}

// VehicleType enumerates declared vehicle kinds.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleTruck      VehicleType = "truck"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBoat       VehicleType = "boat"
	VehicleOther      VehicleType = "other"
)

// Vehicle is a vehicle attached to a declaration.
type Vehicle struct {
	ID             int64       `json:"id"`
	DeclarationID  int64       `json:"declarationId"`
	Type           VehicleType `json:"type"`
	Brand          string      `json:"brand"`
	Model          string      `json:"model"`
	ProductionYear int         `json:"productionYear"`
	IsLuxury       bool        `json:"isLuxury"`
	Valuation      *float64    `json:"valuation,omitempty"`
}

// MoneyType enumerates declared money holdings.
type MoneyType string

const (
	MoneyCash        MoneyType = "cash"
	MoneyBankAccount MoneyType = "bank_account"
	MoneyOther       MoneyType = "other"
)

// Money is a monetary holding in its own currency.
type Money struct {
	ID            int64     `json:"id"`
	DeclarationID int64     `json:"declarationId"`
	Type          MoneyType `json:"type"`
	Amount        *float64  `json:"amount,omitempty"`
	Currency      string    `json:"currency"`
}

// IncomeType enumerates declared income sources.
type IncomeType string

const (
	IncomeSalary   IncomeType = "salary"
	IncomeGift     IncomeType = "gift"
	IncomeCreative IncomeType = "creative"
	IncomePartTime IncomeType = "part_time"
	IncomeBusiness IncomeType = "business"
	IncomeInterest IncomeType = "interest"
	IncomeOther    IncomeType = "other"
)

// Income is an income entry in NationalCurrency.
type Income struct {
	ID            int64      `json:"id"`
	DeclarationID int64      `json:"declarationId"`
	Type          IncomeType `json:"type"`
	Amount        *float64   `json:"amount,omitempty"`
}

// Transaction is a declared expenditure in NationalCurrency.
type Transaction struct {
	ID            int64      `json:"id"`
	DeclarationID int64      `json:"declarationId"`
	Type          string     `json:"type"`
	Amount        *float64   `json:"amount,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

// PropertyRight is a person's claim on a property. The right holder may
// differ from the person whose declaration lists the property.
type PropertyRight struct {
	ID              int64      `json:"id"`
	PropertyID      int64      `json:"propertyId"`
	PepID           int64      `json:"pepId"`
	AcquisitionDate *time.Time `json:"acquisitionDate,omitempty"`
}

// VehicleRight is a person's claim on a vehicle.
type VehicleRight struct {
	ID              int64      `json:"id"`
	VehicleID       int64      `json:"vehicleId"`
	PepID           int64      `json:"pepId"`
	AcquisitionDate *time.Time `json:"acquisitionDate,omitempty"`
}

// PropertyRightRecord is a right joined with the property it points to.
type PropertyRightRecord struct {
	Right    PropertyRight
	Property Property
}

// VehicleRightRecord is a right joined with the vehicle it points to.
type VehicleRightRecord struct {
	Right   VehicleRight
	Vehicle Vehicle
}

// RatuCity is a city from the administrative-territorial reference table.
type RatuCity struct {
	ID       int64  `json:"id"`
	RegionID int64  `json:"regionId"`
	Name     string `json:"name"`
}

// RatuRegion is a region from the administrative-territorial reference table.
type RatuRegion struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ExchangeRate is the yearly rate of one currency unit expressed in USD.
type ExchangeRate struct {
	Currency  string  `json:"currency"`
	Year      int     `json:"year"`
	RateToUSD float64 `json:"rateToUsd"`
}
