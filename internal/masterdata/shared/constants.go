package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Unit enumerates the units of measure a catalog item can be priced in.
type Unit string

const (
	UnitKilogram   Unit = "KG"
	UnitLiter      Unit = "L"
	UnitGram       Unit = "G"
	UnitMilliliter Unit = "ML"
	UnitBag        Unit = "BAG"
	UnitSack       Unit = "SACK"
	UnitContainer  Unit = "CONTAINER"
	UnitHour       Unit = "HOUR"
	UnitDay        Unit = "DAY"
	UnitService    Unit = "SERVICE"
)

var knownUnits = map[Unit]struct{}{
	UnitKilogram: {}, UnitLiter: {}, UnitGram: {}, UnitMilliliter: {},
	UnitBag: {}, UnitSack: {}, UnitContainer: {}, UnitHour: {}, UnitDay: {}, UnitService: {},
}

// ValidUnit reports whether u is one of the supported units of measure.
func ValidUnit(u Unit) bool {
	_, ok := knownUnits[u]
	return ok
}
