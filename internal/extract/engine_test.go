package extract

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(nil, DefaultConfig())
}

func TestEngine_EmptyInput(t *testing.T) {
	engine := newTestEngine()

	for _, words := range [][]string{nil, {}} {
		tags := engine.Extract(words)
		assert.Empty(t, tags.Equipment)
		assert.Empty(t, tags.Lines)
		assert.Empty(t, tags.Specs)
	}
}

func TestEngine_Determinism(t *testing.T) {
	engine := newTestEngine()
	words := []string{"PSV", "0905A/", "39.9", "kg/cm2g", `4"-PL-21-009013-B2A1-H`, "SET", "PRESS", "12.5"}

	first := engine.Extract(words)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Extract(words))
	}
}

func TestEngine_LineNumbers(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name   string
		word   string
		isLine bool
	}{
		{"typical line number", `4"-PL-21-009013-B2A1-H`, true},
		{"short line rejected", "A-B-1", false},
		{"no digits rejected", "AA-BB-CC-DD", false},
		{"one hyphen rejected", "PSV-0905A", false},
		{"minimum length boundary", "1-AB-C2-D", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := engine.Extract([]string{tc.word})
			if tc.isLine {
				require.Len(t, tags.Lines, 1)
				// Verbatim, no normalization
				assert.Equal(t, tc.word, tags.Lines[0])
				assert.Empty(t, tags.Equipment)
				assert.Empty(t, tags.Specs)
			} else {
				assert.Empty(t, tags.Lines)
			}
		})
	}
}

func TestEngine_LineNumberPrecedence(t *testing.T) {
	engine := newTestEngine()

	// A line number must never be fragmented into equipment or specs even
	// though its pieces look like tag material.
	tags := engine.Extract([]string{`4"-PL-21-009013-B2A1-H`})
	assert.Equal(t, []string{`4"-PL-21-009013-B2A1-H`}, tags.Lines)
	assert.Empty(t, tags.Equipment)
	assert.Empty(t, tags.Specs)
}

func TestEngine_CompleteTags(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name     string
		word     string
		expected string
	}{
		{"hyphenated tag", "PSV-0905A", "PSV0905A"},
		{"unhyphenated tag", "PT123", "PT123"},
		{"already merged tag", "PSV0905A", "PSV0905A"},
		{"long prefix", "ESDV-001", "ESDV001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := engine.Extract([]string{tc.word})
			assert.Equal(t, []string{tc.expected}, tags.Equipment)
		})
	}
}

func TestEngine_IdempotentRefeed(t *testing.T) {
	engine := newTestEngine()

	// Feeding a finished tag back in must not merge or corrupt it further.
	first := engine.Extract([]string{"PSV-0905A"})
	require.Equal(t, []string{"PSV0905A"}, first.Equipment)

	second := engine.Extract(first.Equipment)
	assert.Equal(t, first.Equipment, second.Equipment)
	assert.Empty(t, second.Lines)
	assert.Empty(t, second.Specs)
}

func TestEngine_AdjacentMergeWithNoise(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"PSV", "/", "0905A"})
	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
	// The "/" is consumed as intervening noise, never surfaced
	assert.Empty(t, tags.Lines)
	assert.Empty(t, tags.Specs)
}

func TestEngine_AdjacentMergeTrailingJunk(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"PSV", "0905A/"})
	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
}

func TestEngine_AdjacentMergeBlocked(t *testing.T) {
	engine := newTestEngine()

	// A substantial token that is not the awaited number stops the scan
	tags := engine.Extract([]string{"PSV", "VALVE", "0905A"})
	assert.Empty(t, tags.Equipment)
}

func TestEngine_AdjacentMergeLookaheadWindow(t *testing.T) {
	engine := newTestEngine()

	// Number beyond the lookahead window of 2 is not merged
	tags := engine.Extract([]string{"PSV", "/", "@", "0905A"})
	assert.Empty(t, tags.Equipment)
}

func TestEngine_WhitelistGating(t *testing.T) {
	engine := newTestEngine()

	// An unknown prefix followed by a number must not produce a tag
	tags := engine.Extract([]string{"ZZ", "1234"})
	assert.Empty(t, tags.Equipment)
	assert.Empty(t, tags.Lines)
	assert.Empty(t, tags.Specs)
}

func TestEngine_SpecOrderRobustness(t *testing.T) {
	engine := newTestEngine()

	expected := SpecEntry{
		Label:   "Set Pressure",
		Value:   "39.9",
		Unit:    "kg/cm2g",
		Display: "Set Pressure: 39.9 kg/cm2g",
		Tag:     "#SetPressure_39.9",
	}

	tests := []struct {
		name  string
		words []string
	}{
		{"keyword before value", []string{"SET", "PRESS", "39.9", "kg/cm2g"}},
		{"keyword after value", []string{"39.9", "SET", "PRESS", "kg/cm2g"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := engine.Extract(tc.words)
			require.Len(t, tags.Specs, 1)
			assert.Equal(t, expected, tags.Specs[0])
		})
	}
}

func TestEngine_CompoundBeatsSingle(t *testing.T) {
	engine := newTestEngine()

	// "PRESS" alone would match as a single keyword, but the compound
	// phrase ending at the same position wins
	tags := engine.Extract([]string{"SET", "PRESS", "39.9"})
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, "Set Pressure", tags.Specs[0].Label)
	assert.Equal(t, "39.9", tags.Specs[0].Value)
	assert.Empty(t, tags.Specs[0].Unit)
	assert.Equal(t, "#SetPressure_39.9", tags.Specs[0].Tag)
}

func TestEngine_BackwardBeatsForward(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"PRESS", "39.9", "TEMP"})
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, "Pressure", tags.Specs[0].Label)
}

func TestEngine_NoiseRejection(t *testing.T) {
	engine := newTestEngine()

	// "NOTE" is neither keyword nor noise, so the backward scan stops
	// before it ever reaches "SET"; the bare number is then abandoned
	tags := engine.Extract([]string{"SET", "NOTE", "@", "150"})
	assert.Empty(t, tags.Equipment)
	assert.Empty(t, tags.Lines)
	assert.Empty(t, tags.Specs)
}

func TestEngine_BareNumberAbandoned(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"150"})
	assert.Empty(t, tags.Specs)
}

func TestEngine_UnitOnlySpec(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"39.9", "kg/cm2g"})
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, SpecEntry{
		Label:   "",
		Value:   "39.9",
		Unit:    "kg/cm2g",
		Display: "39.9 kg/cm2g",
		Tag:     "#39.9_kg_cm2g",
	}, tags.Specs[0])
}

func TestEngine_KeywordScanSkipsNoise(t *testing.T) {
	engine := newTestEngine()

	// Stray punctuation between keyword and value is skipped, not a blocker
	tags := engine.Extract([]string{"TEMP", "@", "120", "degC"})
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, "Temperature", tags.Specs[0].Label)
	assert.Equal(t, "120", tags.Specs[0].Value)
	assert.Equal(t, "degC", tags.Specs[0].Unit)
}

func TestEngine_ForwardScanToleratesUnit(t *testing.T) {
	engine := newTestEngine()

	// Unit sits between value and keyword; forward keyword scan skips it
	tags := engine.Extract([]string{"120", "degC", "TEMP"})
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, "Temperature", tags.Specs[0].Label)
	assert.Equal(t, "degC", tags.Specs[0].Unit)
}

func TestEngine_ResidualSpecs(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name     string
		word     string
		expected *SpecEntry
	}{
		{
			name: "bare inch size",
			word: `6"`,
			expected: &SpecEntry{
				Label: "Size", Value: `6"`, Unit: "",
				Display: `Size: 6"`, Tag: "#Size_6",
			},
		},
		{
			name: "inch size with service code",
			word: `4"B2`,
			expected: &SpecEntry{
				Label: "Pipe", Value: `4"B2`, Unit: "",
				Display: `Pipe: 4"B2`, Tag: "#Pipe_4_B2",
			},
		},
		{
			name: "spec code",
			word: "1.5F2",
			expected: &SpecEntry{
				Label: "Spec", Value: "1.5F2", Unit: "",
				Display: "Spec: 1.5F2", Tag: "#Spec_1.5F2",
			},
		},
		{name: "bare number discarded", word: "150", expected: nil},
		{name: "single letter discarded", word: "X", expected: nil},
		{name: "punctuation discarded", word: "@", expected: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := engine.Extract([]string{tc.word})
			if tc.expected == nil {
				assert.Empty(t, tags.Specs)
			} else {
				require.Len(t, tags.Specs, 1)
				assert.Equal(t, *tc.expected, tags.Specs[0])
			}
		})
	}
}

func TestEngine_IndexExclusivity(t *testing.T) {
	engine := newTestEngine()

	// The tag number consumed by the adjacent merge must not resurface as
	// a residual spec code, and line tokens never reach later passes.
	tags := engine.Extract([]string{"PSV", "0905A", `4"-PL-21-009013-B2A1-H`})
	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
	assert.Equal(t, []string{`4"-PL-21-009013-B2A1-H`}, tags.Lines)
	assert.Empty(t, tags.Specs)
}

func TestEngine_Deduplication(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{
		"PSV-0905A", "PSV-0905A",
		`4"-PL-21-009013-B2A1-H`, `4"-PL-21-009013-B2A1-H`,
		"SET", "PRESS", "39.9", "kg/cm2g",
		"SET", "PRESS", "39.9", "kg/cm2g",
	})

	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
	assert.Equal(t, []string{`4"-PL-21-009013-B2A1-H`}, tags.Lines)
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, "Set Pressure: 39.9 kg/cm2g", tags.Specs[0].Display)
}

func TestEngine_EndToEnd(t *testing.T) {
	engine := newTestEngine()

	tags := engine.Extract([]string{"PSV", "0905A/", "39.9", "kg/cm2g", `4"-PL-21-009013-B2A1-H`})

	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
	assert.Equal(t, []string{`4"-PL-21-009013-B2A1-H`}, tags.Lines)
	require.Len(t, tags.Specs, 1)
	assert.Equal(t, SpecEntry{
		Label:   "",
		Value:   "39.9",
		Unit:    "kg/cm2g",
		Display: "39.9 kg/cm2g",
		Tag:     "#39.9_kg_cm2g",
	}, tags.Specs[0])
}

func TestEngine_ConcurrentUse(t *testing.T) {
	engine := newTestEngine()
	words := []string{"PSV", "0905A/", "39.9", "kg/cm2g", `4"-PL-21-009013-B2A1-H`}
	expected := engine.Extract(words)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, expected, engine.Extract(words))
		}()
	}
	wg.Wait()
}

func TestEngine_TunableLookahead(t *testing.T) {
	dict := DefaultDictionaries()

	// With a wider merge window the far number is reachable
	wide := NewEngine(dict, Config{MergeLookahead: 3})
	tags := wide.Extract([]string{"PSV", "/", "@", "0905A"})
	assert.Equal(t, []string{"PSV0905A"}, tags.Equipment)
}

func TestSanitizeTagPart(t *testing.T) {
	assert.Equal(t, "39.9", sanitizeTagPart("39.9"))
	assert.Equal(t, "kg_cm2g", sanitizeTagPart("kg/cm2g"))
	assert.Equal(t, "4_B2", sanitizeTagPart(`4"B2`))
	assert.Equal(t, "6", sanitizeTagPart(`6"`))
}

func TestIsNoise(t *testing.T) {
	assert.True(t, isNoise("/"))
	assert.True(t, isNoise("@"))
	assert.True(t, isNoise("X"))
	assert.True(t, isNoise("--"))
	assert.False(t, isNoise("NOTE"))
	assert.False(t, isNoise("kg"))
}
