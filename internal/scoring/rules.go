package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Built-in rule ids.
const (
	RuleRealEstateWithoutValue RuleID = "PEP03_home"
	RuleLandWithoutValue       RuleID = "PEP03_land"
	RuleVehicleWithoutValue    RuleID = "PEP03_car"
	RuleLiveNowhereCity        RuleID = "PEP04_adr"
	RuleLiveNowhereRegion      RuleID = "PEP04_reg"
	RuleGettingRicher          RuleID = "PEP01_rich"
	RuleSpendingMore           RuleID = "PEP01_spend"
	RuleMoneyFromNowhere       RuleID = "PEP01_nowhere"
	RuleMultiplyingMoney       RuleID = "PEP01_multi"
	RuleNewCars                RuleID = "PEP02_new_car"
	RuleLuxuryCars             RuleID = "PEP02_lux_car"
	RuleManyCars               RuleID = "PEP02_cars"
	RuleCostlyPresents         RuleID = "PEP05_gifts"
	RuleBigExpenditures        RuleID = "PEP05_expend"
	RuleCashTotal              RuleID = "PEP05_cash"
	RuleSpouseNotDeclared      RuleID = "PEP06_spouse"
	RuleVeryCreative           RuleID = "PEP07_creative"
)

// Thresholds of the built-in rules.
const (
	// Earliest acquisition date considered for undisclosed valuations.
	UndisclosedSinceYear = 2015

	RicherRatio       = 5.0
	MultiplyingRatio  = 2.0
	NewCarMaxAge      = 2
	ManyCarsCount     = 5.0
	PresentsThreshold = 100000.0
	CashThresholdUAH  = 1500000.0
	CreativeShare     = 0.3
)

func defaultRules() []Rule {
	return []Rule{
		&undisclosedPropertyRule{
			ruleInfo: ruleInfo{RuleRealEstateWithoutValue, CategoryUndisclosedValue, 0.4},
			types:    realEstateTypes(),
		},
		&undisclosedPropertyRule{
			ruleInfo: ruleInfo{RuleLandWithoutValue, CategoryUndisclosedValue, 0.1},
			types:    landTypes(),
		},
		&undisclosedVehicleRule{
			ruleInfo: ruleInfo{RuleVehicleWithoutValue, CategoryUndisclosedValue, 0.4},
		},

		&liveNowhereCityRule{ruleInfo{RuleLiveNowhereCity, CategoryResidence, 0.7}},
		&liveNowhereRegionRule{ruleInfo{RuleLiveNowhereRegion, CategoryResidence, 0.1}},

		&growthRule{
			ruleInfo:  ruleInfo{RuleGettingRicher, CategoryAssetGrowth, 0.6},
			measure:   func(s YearSnapshot) decimal.Decimal { return s.Assets() },
			predicate: mustPredicate(fmt.Sprintf("prev > 0.0 && curr > %.1f * prev", RicherRatio), growthVars...),
		},
		&growthRule{
			ruleInfo:   ruleInfo{RuleSpendingMore, CategoryAssetGrowth, 0.5},
			measure:    func(s YearSnapshot) decimal.Decimal { return s.Expenditures },
			predicate:  mustPredicate("curr - prev > income", growthVars...),
			withIncome: true,
		},
		&growthRule{
			ruleInfo:   ruleInfo{RuleMoneyFromNowhere, CategoryAssetGrowth, 0.7},
			measure:    func(s YearSnapshot) decimal.Decimal { return s.Money },
			predicate:  mustPredicate("curr - prev > income", growthVars...),
			withIncome: true,
		},
		&growthRule{
			ruleInfo:  ruleInfo{RuleMultiplyingMoney, CategoryAssetGrowth, 0.3},
			measure:   func(s YearSnapshot) decimal.Decimal { return s.Money },
			predicate: mustPredicate(fmt.Sprintf("prev > 0.0 && curr > %.1f * prev", MultiplyingRatio), growthVars...),
		},

		&newCarsRule{ruleInfo{RuleNewCars, CategoryThreshold, 0.3}},
		&luxuryCarsRule{ruleInfo{RuleLuxuryCars, CategoryThreshold, 0.5}},
		&manyCarsRule{
			ruleInfo:  ruleInfo{RuleManyCars, CategoryThreshold, 0.3},
			predicate: mustPredicate(fmt.Sprintf("cars > %.1f", ManyCarsCount), "cars"),
		},
		&costlyPresentsRule{
			ruleInfo:  ruleInfo{RuleCostlyPresents, CategoryThreshold, 0.8},
			predicate: mustPredicate(fmt.Sprintf("gifts > %.1f", PresentsThreshold), "gifts"),
		},
		&bigExpendituresRule{
			ruleInfo:  ruleInfo{RuleBigExpenditures, CategoryThreshold, 0.6},
			predicate: mustPredicate("expenditures > income + money", "expenditures", "income", "money"),
		},
		&cashTotalRule{
			ruleInfo:  ruleInfo{RuleCashTotal, CategoryThreshold, 0.5},
			predicate: mustPredicate("cash > threshold", "cash", "threshold"),
		},
		&spouseNotDeclaredRule{ruleInfo{RuleSpouseNotDeclared, CategoryThreshold, 0.5}},
		&veryCreativeRule{
			ruleInfo:  ruleInfo{RuleVeryCreative, CategoryThreshold, 0.2},
			predicate: mustPredicate(fmt.Sprintf("total > 0.0 && creative / total > %.1f", CreativeShare), "creative", "total"),
		},
	}
}
