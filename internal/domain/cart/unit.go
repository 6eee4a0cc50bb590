package cart

import "strings"

// Unit is a UN/CEFACT unit-of-measure code accepted by the retailer cart API.
type Unit string

const (
	UnitPiece      Unit = "EA"
	UnitKilogram   Unit = "KGM"
	UnitGram       Unit = "GRM"
	UnitPound      Unit = "LBR"
	UnitLiter      Unit = "LTR"
	UnitMilliliter Unit = "MLT"
)

// MeasurementType groups units by what they measure. Weight and volume
// items are sold fractionally, piece items in whole counts.
type MeasurementType string

const (
	MeasurementPiece  MeasurementType = "piece"
	MeasurementWeight MeasurementType = "weight"
	MeasurementVolume MeasurementType = "volume"
)

// unitAliases maps the spellings customers actually type (Spanish
// included) to canonical unit codes. Lookup is case-insensitive.
var unitAliases = map[string]Unit{
	"ea":      UnitPiece,
	"c62":     UnitPiece,
	"pieza":   UnitPiece,
	"piezas":  UnitPiece,
	"pza":     UnitPiece,
	"pz":      UnitPiece,
	"pzas":    UnitPiece,
	"pcs":     UnitPiece,
	"pc":      UnitPiece,
	"unidad":  UnitPiece,
	"u":       UnitPiece,
	"kgm":     UnitKilogram,
	"kg":      UnitKilogram,
	"kilo":    UnitKilogram,
	"kilos":   UnitKilogram,
	"grm":     UnitGram,
	"g":       UnitGram,
	"gr":      UnitGram,
	"gramo":   UnitGram,
	"gramos":  UnitGram,
	"lbr":     UnitPound,
	"lb":      UnitPound,
	"libra":   UnitPound,
	"libras":  UnitPound,
	"ltr":     UnitLiter,
	"l":       UnitLiter,
	"lt":      UnitLiter,
	"litro":   UnitLiter,
	"litros":  UnitLiter,
	"mlt":     UnitMilliliter,
	"ml":      UnitMilliliter,
	"mililitro": UnitMilliliter,
}

var unitMeasurements = map[Unit]MeasurementType{
	UnitPiece:      MeasurementPiece,
	UnitKilogram:   MeasurementWeight,
	UnitGram:       MeasurementWeight,
	UnitPound:      MeasurementWeight,
	UnitLiter:      MeasurementVolume,
	UnitMilliliter: MeasurementVolume,
}

var measurementDefaults = map[MeasurementType]Unit{
	MeasurementPiece:  UnitPiece,
	MeasurementWeight: UnitKilogram,
	MeasurementVolume: UnitLiter,
}

// IsValid reports whether u is one of the known unit codes.
func (u Unit) IsValid() bool {
	_, ok := unitMeasurements[u]
	return ok
}

// Measurement returns the measurement type u belongs to. Unknown units
// are treated as whole pieces.
func (u Unit) Measurement() MeasurementType {
	if m, ok := unitMeasurements[u]; ok {
		return m
	}
	return MeasurementPiece
}

// IsFractional reports whether quantities in u may carry decimals.
func (u Unit) IsFractional() bool {
	return u.Measurement() != MeasurementPiece
}

// IsValid reports whether m is a known measurement type.
func (m MeasurementType) IsValid() bool {
	_, ok := measurementDefaults[m]
	return ok
}

// DefaultUnit returns the unit sent upstream when the caller named a
// measurement type but no unit.
func (m MeasurementType) DefaultUnit() Unit {
	if u, ok := measurementDefaults[m]; ok {
		return u
	}
	return UnitPiece
}

// NormalizeUnit resolves raw customer input ("kg", "Piezas", "KGM") to
// a canonical unit code. It returns false when the input names no
// known unit.
func NormalizeUnit(raw string) (Unit, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if u, ok := unitAliases[key]; ok {
		return u, true
	}
	u := Unit(strings.ToUpper(key))
	if u.IsValid() {
		return u, true
	}
	return "", false
}

// ResolveUnit combines an optional unit string and an optional
// measurement type into the unit code to send upstream. Unit wins over
// measurement; unrecognized input falls back to pieces. The bool is
// false only when both inputs are empty.
func ResolveUnit(rawUnit string, measurement MeasurementType) (Unit, bool) {
	if u, ok := NormalizeUnit(rawUnit); ok {
		return u, true
	}
	if measurement != "" {
		return measurement.DefaultUnit(), true
	}
	if strings.TrimSpace(rawUnit) != "" {
		return UnitPiece, true
	}
	return "", false
}
