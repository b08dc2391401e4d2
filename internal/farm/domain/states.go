package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// stateNames asocia cada abreviatura postal con su nombre completo.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// stateAbbreviations es el índice inverso: nombre plegado -> abreviatura.
var stateAbbreviations = func() map[string]string {
	idx := make(map[string]string, len(stateNames))
	for abbr, name := range stateNames {
		idx[foldStateName(name)] = abbr
	}
	return idx
}()

func foldStateName(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// StateAbbreviation reconoce una abreviatura de dos letras o un nombre
// completo de estado y devuelve la abreviatura en mayúsculas.
func StateAbbreviation(term string) (string, bool) {
	term = strings.TrimSpace(term)
	if len(term) == 2 {
		abbr := strings.ToUpper(term)
		if _, ok := stateNames[abbr]; ok {
			return abbr, true
		}
		return "", false
	}
	abbr, ok := stateAbbreviations[foldStateName(term)]
	return abbr, ok
}

// StateName devuelve el nombre completo para una abreviatura.
func StateName(abbr string) (string, bool) {
	name, ok := stateNames[strings.ToUpper(strings.TrimSpace(abbr))]
	return name, ok
}
