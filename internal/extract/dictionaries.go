// Package extract implements the P&ID tag and spec extraction engine.
package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionaries holds the read-only lookup tables the engine classifies
// against. Built once and shared across concurrent extractions.
type Dictionaries struct {
	knownPrefixes    map[string]bool
	compoundKeywords map[string]string // "SET PRESS" -> "Set Pressure"
	singleKeywords   map[string]string // "PRESS" -> "Pressure"
	units            map[string]bool   // lower-cased unit spellings
}

// DictionaryOverlay is the YAML shape for site-specific additions merged
// over the built-in tables.
type DictionaryOverlay struct {
	Prefixes         []string          `yaml:"prefixes"`
	CompoundKeywords map[string]string `yaml:"compound_keywords"`
	SingleKeywords   map[string]string `yaml:"single_keywords"`
	Units            []string          `yaml:"units"`
}

// DefaultDictionaries returns the built-in EPC vocabulary.
func DefaultDictionaries() *Dictionaries {
	return &Dictionaries{
		knownPrefixes:    buildKnownPrefixes(),
		compoundKeywords: buildCompoundKeywords(),
		singleKeywords:   buildSingleKeywords(),
		units:            buildUnits(),
	}
}

// LoadDictionaries returns the built-in tables merged with the overlay at
// path. An empty path returns the built-ins unchanged.
func LoadDictionaries(path string) (*Dictionaries, error) {
	d := DefaultDictionaries()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary file: %w", err)
	}

	var overlay DictionaryOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse dictionary file: %w", err)
	}

	d.Merge(overlay)
	return d, nil
}

// Merge folds an overlay into the dictionaries. Overlay entries win on
// keyword label collisions.
func (d *Dictionaries) Merge(overlay DictionaryOverlay) {
	for _, p := range overlay.Prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			d.knownPrefixes[p] = true
		}
	}
	for phrase, label := range overlay.CompoundKeywords {
		d.compoundKeywords[strings.ToUpper(strings.TrimSpace(phrase))] = label
	}
	for word, label := range overlay.SingleKeywords {
		d.singleKeywords[strings.ToUpper(strings.TrimSpace(word))] = label
	}
	for _, u := range overlay.Units {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			d.units[u] = true
		}
	}
}

// DictionaryStats summarizes table sizes, for diagnostics.
type DictionaryStats struct {
	Prefixes         int `json:"prefixes"`
	CompoundKeywords int `json:"compoundKeywords"`
	SingleKeywords   int `json:"singleKeywords"`
	Units            int `json:"units"`
}

// Stats returns the current table sizes.
func (d *Dictionaries) Stats() DictionaryStats {
	return DictionaryStats{
		Prefixes:         len(d.knownPrefixes),
		CompoundKeywords: len(d.compoundKeywords),
		SingleKeywords:   len(d.singleKeywords),
		Units:            len(d.units),
	}
}

// IsKnownPrefix reports whether s is a whitelisted instrument or equipment
// prefix. Matching is exact and upper-case.
func (d *Dictionaries) IsKnownPrefix(s string) bool {
	return d.knownPrefixes[s]
}

// CompoundKeyword looks up a two-word phrase (already upper-cased, space
// joined) and returns its canonical label.
func (d *Dictionaries) CompoundKeyword(phrase string) (string, bool) {
	label, ok := d.compoundKeywords[phrase]
	return label, ok
}

// SingleKeyword looks up a one-word phrase (already upper-cased) and
// returns its canonical label.
func (d *Dictionaries) SingleKeyword(word string) (string, bool) {
	label, ok := d.singleKeywords[word]
	return label, ok
}

// IsUnit reports whether the token is a recognized engineering unit.
func (d *Dictionaries) IsUnit(s string) bool {
	return d.units[strings.ToLower(s)]
}

// IsKeywordToken reports whether the token participates in any keyword
// phrase, compound or single. Used by the unit scan, which tolerates
// keywords without stopping.
func (d *Dictionaries) IsKeywordToken(s string) bool {
	upper := strings.ToUpper(s)
	if _, ok := d.singleKeywords[upper]; ok {
		return true
	}
	for phrase := range d.compoundKeywords {
		for _, part := range strings.Fields(phrase) {
			if part == upper {
				return true
			}
		}
	}
	return false
}

// buildKnownPrefixes returns the instrument/equipment prefix whitelist.
// EPC tag prefixes are a closed vocabulary; matching only against this set
// keeps arbitrary two-letter abbreviations from being read as tags.
func buildKnownPrefixes() map[string]bool {
	prefixes := []string{
		// Pressure instruments
		"PT", "PI", "PG", "PS", "PSH", "PSL", "PSHH", "PSLL",
		"PDT", "PDI", "PDG", "PDS", "PIC", "PIT", "PC",
		// Pressure relief and control valves
		"PSV", "PRV", "PCV", "PV", "TRV", "VRV",
		// Temperature instruments
		"TT", "TI", "TG", "TE", "TW", "TS", "TSH", "TSL", "TSHH", "TSLL",
		"TIC", "TIT", "TCV", "TV", "TC",
		// Flow instruments
		"FT", "FI", "FE", "FG", "FO", "FQ", "FS", "FSL", "FSH",
		"FIC", "FIT", "FCV", "FV", "FC",
		// Level instruments
		"LT", "LI", "LG", "LS", "LSH", "LSL", "LSHH", "LSLL",
		"LIC", "LIT", "LCV", "LV", "LC",
		// Analyzers and misc instruments
		"AT", "AI", "AE", "AIT", "HS", "HV", "HC", "XA", "XL",
		"ZSO", "ZSC", "ZSH", "ZSL", "SV", "SC", "ST", "SI",
		"VT", "VI", "VE", "WT", "WI",
		// Actuated and shutdown valves
		"XV", "SDV", "BDV", "ESV", "ESDV", "MOV", "AOV", "ROV",
		// Equipment classes
		"PU", "CP", "CPR", "KO", "HX", "EX", "AC", "AF",
		"TK", "VSL", "DR", "FLT", "STR", "EJ", "AG", "MX",
	}

	m := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		m[p] = true
	}
	return m
}

// buildCompoundKeywords returns the two-word phrase table. Keys are the
// upper-cased OCR spellings, values the canonical spec labels.
func buildCompoundKeywords() map[string]string {
	return map[string]string{
		"SET PRESS":             "Set Pressure",
		"SET PRESSURE":          "Set Pressure",
		"SET PR":                "Set Pressure",
		"DES PRESS":             "Design Pressure",
		"DESIGN PRESS":          "Design Pressure",
		"DESIGN PRESSURE":       "Design Pressure",
		"OPER PRESS":            "Operating Pressure",
		"OP PRESS":              "Operating Pressure",
		"OPERATING PRESSURE":    "Operating Pressure",
		"TEST PRESS":            "Test Pressure",
		"TEST PRESSURE":         "Test Pressure",
		"DES TEMP":              "Design Temperature",
		"DESIGN TEMP":           "Design Temperature",
		"DESIGN TEMPERATURE":    "Design Temperature",
		"OPER TEMP":             "Operating Temperature",
		"OP TEMP":               "Operating Temperature",
		"OPERATING TEMPERATURE": "Operating Temperature",
		"RELIEF TEMP":           "Relieving Temperature",
		"FLOW RATE":             "Flow Rate",
		"DESIGN FLOW":           "Design Flow",
		"NORMAL FLOW":           "Normal Flow",
		"INSUL THK":             "Insulation Thickness",
		"WALL THK":              "Wall Thickness",
		"CORR ALLOW":            "Corrosion Allowance",
		"HEAT DUTY":             "Heat Duty",
		"DESIGN LEVEL":          "Design Level",
		"NORMAL LEVEL":          "Normal Level",
	}
}

// buildSingleKeywords returns the one-word phrase table.
func buildSingleKeywords() map[string]string {
	return map[string]string{
		"PRESS":       "Pressure",
		"PRESSURE":    "Pressure",
		"TEMP":        "Temperature",
		"TEMPERATURE": "Temperature",
		"FLOW":        "Flow",
		"CAPACITY":    "Capacity",
		"DUTY":        "Duty",
		"LEVEL":       "Level",
		"ELEV":        "Elevation",
		"ELEVATION":   "Elevation",
		"RATING":      "Rating",
		"DENSITY":     "Density",
		"VISCOSITY":   "Viscosity",
		"THICKNESS":   "Thickness",
		"DIA":         "Diameter",
		"DIAMETER":    "Diameter",
	}
}

// buildUnits returns the recognized unit spellings, lower-cased. Pressure
// units carry the g/a suffix variants OCR actually produces on P&IDs.
func buildUnits() map[string]bool {
	units := []string{
		// Pressure
		"kg/cm2", "kg/cm2g", "kg/cm2a", "kg/cm²", "kg/cm²g", "kg/cm²a",
		"bar", "barg", "bara", "mbar", "mbarg",
		"psi", "psig", "psia",
		"kpa", "kpag", "kpaa", "mpa", "mpag", "mpaa",
		"mmh2o", "mmhg",
		// Temperature
		"°c", "°f", "degc", "degf", "deg.c", "deg.f", "c", "f",
		// Length
		"mm", "cm", "m", "in", "inch",
		// Flow
		"m3/h", "m3/hr", "nm3/h", "nm3/hr", "am3/h", "am3/hr",
		"kg/h", "kg/hr", "t/h", "t/hr", "l/min", "l/h", "l/hr",
		"gpm", "bpd",
		// Misc engineering
		"kw", "mw", "kcal/h", "kcal/hr", "rpm",
		"cst", "cp", "ppm", "ppmw", "%", "wt%", "mol%",
		"kg/m3", "g/cm3",
	}

	m := make(map[string]bool, len(units))
	for _, u := range units {
		m[u] = true
	}
	return m
}
