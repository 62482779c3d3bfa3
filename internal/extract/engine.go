package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Classification patterns, compiled once and reused across calls.
var (
	// Full tag already produced as one OCR fragment, e.g. "PSV-0905A".
	completeTagRe = regexp.MustCompile(`^[A-Z]{2,5}-?[0-9]+[A-Z0-9]*$`)
	// Candidate prefix for adjacent-merge, e.g. "PSV".
	prefixRe = regexp.MustCompile(`^[A-Z]{2,5}$`)
	// Tag number awaited after a prefix, e.g. "0905A".
	tagNumberRe = regexp.MustCompile(`^[0-9]+[A-Z0-9]*$`)
	// Plain numeric value, e.g. "39.9".
	numberRe = regexp.MustCompile(`^[0-9]+\.?[0-9]*$`)
	// Inch size with optional service-code suffix, e.g. `6"` or `4"B2`.
	inchSpecRe = regexp.MustCompile(`^([0-9]+)(["″“”])([A-Za-z0-9-]*)$`)
	// Spec code, e.g. "1.5F2".
	specCodeRe = regexp.MustCompile(`^[0-9]+\.?[0-9]*[A-Z][A-Z0-9]*$`)
	// Non-token characters stripped when rendering hashtag-style tags.
	tagSanitizeRe = regexp.MustCompile(`[^A-Za-z0-9.]+`)
)

// Trailing OCR junk stripped from tag-number candidates.
const trailingPunct = `/\%,;:)`

// Config holds the engine tuning constants. The scan boundaries are
// heuristics calibrated against OCR output, not load-bearing semantics.
type Config struct {
	MergeLookahead   int // forward window for prefix+number merges
	KeywordScanRange int // backward/forward keyword search distance
	UnitScanRange    int // forward unit search distance
	MinLineLength    int // minimum length of a piping line number
}

// DefaultConfig returns the tuning constants the engine ships with.
func DefaultConfig() Config {
	return Config{
		MergeLookahead:   2,
		KeywordScanRange: 3,
		UnitScanRange:    3,
		MinLineLength:    8,
	}
}

// SpecEntry is a normalized engineering attribute. Label is empty when no
// keyword context was found around the value.
type SpecEntry struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Unit    string `json:"unit"`
	Display string `json:"display"`
	Tag     string `json:"tag"`
}

// ParsedTags is the engine output: three deduplicated categories in
// discovery order.
type ParsedTags struct {
	Equipment []string    `json:"equipment"`
	Lines     []string    `json:"lines"`
	Specs     []SpecEntry `json:"specs"`
}

// Engine converts an unordered, noisy array of OCR words from a P&ID page
// into equipment tags, pipe line numbers, and engineering specs. It holds
// only read-only state and is safe for concurrent use.
type Engine struct {
	dict *Dictionaries
	cfg  Config
}

// NewEngine creates an engine. A nil dict uses the built-in vocabulary;
// zero-valued config fields fall back to defaults.
func NewEngine(dict *Dictionaries, cfg Config) *Engine {
	if dict == nil {
		dict = DefaultDictionaries()
	}
	def := DefaultConfig()
	if cfg.MergeLookahead <= 0 {
		cfg.MergeLookahead = def.MergeLookahead
	}
	if cfg.KeywordScanRange <= 0 {
		cfg.KeywordScanRange = def.KeywordScanRange
	}
	if cfg.UnitScanRange <= 0 {
		cfg.UnitScanRange = def.UnitScanRange
	}
	if cfg.MinLineLength <= 0 {
		cfg.MinLineLength = def.MinLineLength
	}
	return &Engine{dict: dict, cfg: cfg}
}

// Extract runs the classification passes over one page of OCR words.
// Passes consume token indices so later passes never re-examine them; each
// input token contributes to at most one output entity. Empty input yields
// an empty result, never an error.
func (e *Engine) Extract(words []string) ParsedTags {
	x := &extraction{
		engine:    e,
		words:     words,
		consumed:  make([]bool, len(words)),
		seenEquip: make(map[string]bool),
		seenLines: make(map[string]bool),
		seenSpecs: make(map[string]bool),
	}

	x.lineNumbers()
	x.completeTags()
	x.adjacentMergeTags()
	x.contextualSpecs()
	x.residualSpecs()

	return ParsedTags{
		Equipment: x.equipment,
		Lines:     x.lines,
		Specs:     x.specs,
	}
}

// extraction is the per-call working state: the consumption set and the
// output buffers with their dedup indexes.
type extraction struct {
	engine   *Engine
	words    []string
	consumed []bool

	equipment []string
	lines     []string
	specs     []SpecEntry

	seenEquip map[string]bool
	seenLines map[string]bool
	seenSpecs map[string]bool
}

// lineNumbers runs first: piping line numbers are the most distinctive
// pattern and must be removed before their embedded digits can be mistaken
// for tag numbers or specs.
func (x *extraction) lineNumbers() {
	for i, w := range x.words {
		if x.consumed[i] {
			continue
		}
		if strings.Count(w, "-") >= 2 && hasDigit(w) && len(w) >= x.engine.cfg.MinLineLength {
			x.consumed[i] = true
			x.addLine(w)
		}
	}
}

// completeTags handles the case where OCR already produced the whole tag
// as one fragment. The hyphen is stripped from the emitted tag.
func (x *extraction) completeTags() {
	for i, w := range x.words {
		if x.consumed[i] {
			continue
		}
		if completeTagRe.MatchString(w) {
			x.consumed[i] = true
			x.addEquipment(strings.ReplaceAll(w, "-", ""))
		}
	}
}

// adjacentMergeTags joins a whitelisted prefix with a tag number OCR split
// into a later fragment. Tokens strictly between the two are consumed as
// noise. A token of length > 1 carrying at least two alphanumeric
// characters that is not the awaited number stops the scan: it belongs to
// something else.
func (x *extraction) adjacentMergeTags() {
	for i, w := range x.words {
		if x.consumed[i] {
			continue
		}
		if !prefixRe.MatchString(w) || !x.engine.dict.IsKnownPrefix(w) {
			continue
		}

		for d := 1; d <= x.engine.cfg.MergeLookahead; d++ {
			j := i + d
			if j >= len(x.words) || x.consumed[j] {
				break
			}

			candidate := strings.TrimRight(x.words[j], trailingPunct)
			if len(candidate) >= 2 && tagNumberRe.MatchString(candidate) {
				for k := i; k <= j; k++ {
					x.consumed[k] = true
				}
				x.addEquipment(w + candidate)
				break
			}

			if len(x.words[j]) > 1 && alnumCount(x.words[j]) >= 2 {
				break
			}
		}
	}
}

// contextualSpecs reconstructs "label: value unit" triples scattered by OCR
// around a plain number. Backward keyword attachment wins over forward;
// compound phrases win over single words at the same position. A number
// with neither keyword nor unit context is abandoned as low-confidence
// noise.
func (x *extraction) contextualSpecs() {
	for i, w := range x.words {
		if x.consumed[i] || !numberRe.MatchString(w) {
			continue
		}

		label, claimed := x.keywordBackward(i)
		if label == "" {
			label, claimed = x.keywordForward(i)
		}
		unit, unitIdx := x.unitForward(i, claimed)

		if label == "" && unit == "" {
			continue
		}

		x.consumed[i] = true
		for _, c := range claimed {
			x.consumed[c] = true
		}
		if unitIdx >= 0 {
			x.consumed[unitIdx] = true
		}

		x.addSpec(x.engine.newSpecEntry(label, w, unit))
	}
}

// keywordBackward searches the tokens preceding a number for a keyword,
// nearest first. Compound phrases ending at the scanned position are
// checked before single words. The scan stops at the first token that is
// neither a keyword nor noise: such a token means the number belongs to a
// different context.
func (x *extraction) keywordBackward(i int) (string, []int) {
	for d := 1; d <= x.engine.cfg.KeywordScanRange; d++ {
		pos := i - d
		if pos < 0 || x.consumed[pos] {
			break
		}

		if pos-1 >= 0 && !x.consumed[pos-1] {
			phrase := strings.ToUpper(x.words[pos-1]) + " " + strings.ToUpper(x.words[pos])
			if label, ok := x.engine.dict.CompoundKeyword(phrase); ok {
				return label, []int{pos - 1, pos}
			}
		}
		if label, ok := x.engine.dict.SingleKeyword(strings.ToUpper(x.words[pos])); ok {
			return label, []int{pos}
		}
		if isNoise(x.words[pos]) {
			continue
		}
		break
	}
	return "", nil
}

// keywordForward mirrors the backward search after it came up empty.
// Unlike the backward scan it tolerates unit tokens without stopping,
// since unit and keyword may land on either side of the value.
func (x *extraction) keywordForward(i int) (string, []int) {
	for d := 1; d <= x.engine.cfg.KeywordScanRange; d++ {
		pos := i + d
		if pos >= len(x.words) || x.consumed[pos] {
			break
		}

		if pos+1 < len(x.words) && !x.consumed[pos+1] {
			phrase := strings.ToUpper(x.words[pos]) + " " + strings.ToUpper(x.words[pos+1])
			if label, ok := x.engine.dict.CompoundKeyword(phrase); ok {
				return label, []int{pos, pos + 1}
			}
		}
		if label, ok := x.engine.dict.SingleKeyword(strings.ToUpper(x.words[pos])); ok {
			return label, []int{pos}
		}
		if x.engine.dict.IsUnit(x.words[pos]) {
			continue
		}
		if isNoise(x.words[pos]) {
			continue
		}
		break
	}
	return "", nil
}

// unitForward finds the first unit token after the number, skipping tokens
// claimed by the keyword match, noise, and consumed indices. Anything that
// is neither a unit, noise, nor a recognized keyword stops the scan.
func (x *extraction) unitForward(i int, claimed []int) (string, int) {
	for d := 1; d <= x.engine.cfg.UnitScanRange; d++ {
		pos := i + d
		if pos >= len(x.words) {
			break
		}
		if containsIndex(claimed, pos) || x.consumed[pos] {
			continue
		}
		if x.engine.dict.IsUnit(x.words[pos]) {
			return x.words[pos], pos
		}
		if isNoise(x.words[pos]) {
			continue
		}
		if x.engine.dict.IsKeywordToken(x.words[pos]) {
			continue
		}
		break
	}
	return "", -1
}

// residualSpecs sweeps up inch sizes and spec codes that survived every
// earlier pass. Whatever remains after it is discarded as noise.
func (x *extraction) residualSpecs() {
	for i, w := range x.words {
		if x.consumed[i] {
			continue
		}

		if m := inchSpecRe.FindStringSubmatch(w); m != nil {
			size, quote, service := m[1], m[2], m[3]
			label := "Size"
			if service != "" {
				label = "Pipe"
			}
			x.consumed[i] = true
			x.addSpec(x.engine.newSpecEntry(label, size+quote+service, ""))
			continue
		}

		if specCodeRe.MatchString(w) {
			x.consumed[i] = true
			x.addSpec(x.engine.newSpecEntry("Spec", w, ""))
		}
	}
}

// newSpecEntry assembles a SpecEntry with its display and hashtag
// renderings, e.g. "Set Pressure: 39.9 kg/cm2g" / "#SetPressure_39.9".
func (e *Engine) newSpecEntry(label, value, unit string) SpecEntry {
	display := strings.TrimSpace(value + " " + unit)
	if label != "" {
		display = label + ": " + display
	}

	var tag string
	switch {
	case label != "":
		tag = "#" + strings.ReplaceAll(label, " ", "") + "_" + sanitizeTagPart(value)
	case unit != "":
		tag = "#" + sanitizeTagPart(value) + "_" + sanitizeTagPart(unit)
	default:
		tag = "#" + sanitizeTagPart(value)
	}

	return SpecEntry{
		Label:   label,
		Value:   value,
		Unit:    unit,
		Display: display,
		Tag:     tag,
	}
}

func (x *extraction) addEquipment(tag string) {
	if x.seenEquip[tag] {
		return
	}
	x.seenEquip[tag] = true
	x.equipment = append(x.equipment, tag)
}

func (x *extraction) addLine(line string) {
	if x.seenLines[line] {
		return
	}
	x.seenLines[line] = true
	x.lines = append(x.lines, line)
}

func (x *extraction) addSpec(spec SpecEntry) {
	if x.seenSpecs[spec.Display] {
		return
	}
	x.seenSpecs[spec.Display] = true
	x.specs = append(x.specs, spec)
}

// sanitizeTagPart collapses everything except letters, digits, and dots
// into underscores, so "kg/cm2g" renders as "kg_cm2g".
func sanitizeTagPart(s string) string {
	return strings.Trim(tagSanitizeRe.ReplaceAllString(s, "_"), "_")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func alnumCount(s string) int {
	n := 0
	for _, r := range s {
		if isAlnum(r) {
			n++
		}
	}
	return n
}

// isNoise reports whether a token is OCR debris: a single character or a
// run of pure punctuation.
func isNoise(s string) bool {
	if len(s) <= 1 {
		return true
	}
	return alnumCount(s) == 0
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func containsIndex(indices []int, idx int) bool {
	for _, v := range indices {
		if v == idx {
			return true
		}
	}
	return false
}

// String renders a compact human-readable summary, handy in CLI output.
func (t ParsedTags) String() string {
	return fmt.Sprintf("equipment=%d lines=%d specs=%d",
		len(t.Equipment), len(t.Lines), len(t.Specs))
}
