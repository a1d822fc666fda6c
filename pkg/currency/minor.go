package currency

// Gateway amount fields are integers in the currency's minor unit
// (paise for INR). All conversions go through this package so order
// creation and refunds truncate the same way.

// ToMinorUnits converts a major-unit amount (e.g. rupees) to the
// gateway's integer minor unit (paise). Fractions beyond two decimal
// places are truncated, matching the gateway's own rounding.
func ToMinorUnits(amount float64) int64 {
	return int64(amount * 100)
}

// FromMinorUnits converts an integer minor-unit amount back to major units.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
