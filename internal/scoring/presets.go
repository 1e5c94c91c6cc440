package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/hotscore/internal/contracts"
)

// Preset names
const (
	PresetDefault     = "default"
	PresetAggressive  = "aggressive"
	PresetRecommended = "recommended" // alias of aggressive
)

// DefaultParams returns the conservative preset
func DefaultParams() contracts.ScoringParameters {
	return contracts.ScoringParameters{
		DropSensitivity:     15,
		DropMaxScore:        70,
		VolatilityThreshold: 2.0,
		VolatilityMaxBonus:  30,
		DowntrendPenalty:    0.5,
		StableMultiplier:    0.7,
		UptrendMultiplier:   1.0,
		TrendBoundary:       3.0,
	}
}

// AggressiveParams returns the recommended preset: reacts to smaller drops
// and rewards volatility more.
func AggressiveParams() contracts.ScoringParameters {
	return contracts.ScoringParameters{
		DropSensitivity:     20,
		DropMaxScore:        75,
		VolatilityThreshold: 1.5,
		VolatilityMaxBonus:  35,
		DowntrendPenalty:    0.4,
		StableMultiplier:    0.75,
		UptrendMultiplier:   1.1,
		TrendBoundary:       2.5,
	}
}

// Preset resolves a preset by name (case-insensitive)
func Preset(name string) (contracts.ScoringParameters, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetDefault, "":
		return DefaultParams(), nil
	case PresetAggressive, PresetRecommended:
		return AggressiveParams(), nil
	default:
		return contracts.ScoringParameters{}, fmt.Errorf("%w: unknown preset %q", contracts.ErrInvalidParameter, name)
	}
}

// Presets returns every named preset keyed by name
func Presets() map[string]contracts.ScoringParameters {
	return map[string]contracts.ScoringParameters{
		PresetDefault:    DefaultParams(),
		PresetAggressive: AggressiveParams(),
	}
}

// PresetNames returns the documented preset names in sorted order
func PresetNames() []string {
	names := make([]string, 0, 2)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
