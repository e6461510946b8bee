package legiscan

import "strings"

// States lists the jurisdiction codes LegiScan accepts as "state": the 50
// states, DC, Congress (US) and the territories.
var States = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "DC", "WV", "WI",
	"WY", "US", "AS", "GU", "MP", "PR", "VI",
}

var stateSet = func() map[string]bool {
	m := make(map[string]bool, len(States))
	for _, s := range States {
		m[s] = true
	}
	return m
}()

// ValidState reports whether abbr is a known jurisdiction code.
func ValidState(abbr string) bool {
	return stateSet[strings.ToUpper(abbr)]
}
