package session

import (
	"sort"

	"github.com/jsphweid/chordcoach/chord"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned for unknown difficulty tiers and malformed
// options. Sessions never fall back to defaults silently.
var ErrInvalidConfig = errors.New("invalid config")

// Tier restricts which roots and chord templates a session draws tasks
// from.
type Tier struct {
	Name              string
	Roots             []string
	Templates         []string
	RequireInversions bool
}

var triads = []string{"major", "minor", "diminished", "augmented", "sus2", "sus4"}

var tiers = map[string]Tier{
	"beginner": {
		Name:      "beginner",
		Roots:     []string{"C", "G", "F", "D", "A"},
		Templates: []string{"major", "minor"},
	},
	"intermediate": {
		Name:      "intermediate",
		Roots:     []string{"C", "G", "F", "D", "A", "E", "A#", "D#"},
		Templates: triads,
	},
	"advanced": {
		Name:              "advanced",
		Roots:             chord.PitchClassNames(),
		Templates:         append(append([]string{}, triads...), "major7", "minor7", "dominant7"),
		RequireInversions: true,
	},
	"expert": {
		Name:              "expert",
		Roots:             chord.PitchClassNames(),
		Templates:         templateNames(),
		RequireInversions: true,
	},
}

func templateNames() []string {
	var res []string
	for _, t := range chord.Templates() {
		res = append(res, t.Name)
	}
	return res
}

func LookupTier(name string) (Tier, error) {
	t, ok := tiers[name]
	if !ok {
		return Tier{}, errors.Wrapf(ErrInvalidConfig, "unknown difficulty tier %q", name)
	}
	return t, nil
}

func TierNames() []string {
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
