package emodul

import "fmt"

// Vendor text ids naming tile kinds when a tile carries no txtId of its own.
// Derived from the fixture set; newly observed kinds fall back to a literal
// "type N" label.
var txtIDByType = map[int]int{
	tileTypeFireSensor:  205,
	tileTypeFan:         4135,
	tileTypeValve:       991,
	tileTypeMixingValve: 5731,
	tileTypeFuelSupply:  961,
}

// Languages the i18n endpoint accepts. Anything else makes the API return
// 400, so unknown codes are swapped for English up front.
var supportedLanguages = map[string]bool{
	"en": true,
	"pl": true,
	"de": true,
	"cs": true,
	"sk": true,
	"hu": true,
	"ru": true,
}

// DefaultLanguage is used when a requested language pack does not exist.
const DefaultLanguage = "en"

// FallbackTxtID returns the kind-level text id for a tile type, or zero when
// none is known.
func FallbackTxtID(tileType int) int {
	return txtIDByType[tileType]
}

// FallbackLabel is the label of last resort for an unnamed tile.
func FallbackLabel(tileType int) string {
	return fmt.Sprintf("type %d", tileType)
}
