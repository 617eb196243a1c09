package preset

import (
	"fmt"
	"sort"
	"strings"
)

// Level is a named quality tier.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// Preset maps a tier to a fixed encoder quality in [0,1].
type Preset struct {
	Level   Level
	Quality float64
}

// Built-in presets.
var presets = map[Level]Preset{
	High:   {Level: High, Quality: 0.8},
	Medium: {Level: Medium, Quality: 0.6},
	Low:    {Level: Low, Quality: 0.4},
}

// Get returns the preset for a level.
func Get(l Level) (Preset, error) {
	if p, ok := presets[Level(strings.ToLower(string(l)))]; ok {
		return p, nil
	}
	return Preset{}, fmt.Errorf("unknown preset %q (want one of %s)", l, strings.Join(Names(), ", "))
}

// Names returns all preset names ordered from highest to lowest quality.
func Names() []string {
	all := make([]Preset, 0, len(presets))
	for _, p := range presets {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Quality > all[j].Quality })

	names := make([]string, len(all))
	for i, p := range all {
		names[i] = string(p.Level)
	}
	return names
}
