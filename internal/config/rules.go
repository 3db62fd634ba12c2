package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// GameRules are the per-game thresholds used when a finished match is
// classified.
type GameRules struct {
	MinDuration       time.Duration `yaml:"min_duration"`
	SupportedMaps     []int         `yaml:"supported_maps"`
	UnsupportedQueues []int         `yaml:"unsupported_queues"`
}

// AllowsMap reports whether matches on the map count. An empty list allows
// every map.
func (r GameRules) AllowsMap(mapID int) bool {
	return len(r.SupportedMaps) == 0 || slices.Contains(r.SupportedMaps, mapID)
}

// AllowsQueue reports whether matches from the queue count.
func (r GameRules) AllowsQueue(queueID int) bool {
	return !slices.Contains(r.UnsupportedQueues, queueID)
}

// RulesFile is the layout of the game rules YAML file.
type RulesFile struct {
	Games map[string]GameRules `yaml:"games"`
}

// DefaultRules returns the rules used for games missing from the file.
func DefaultRules() map[string]GameRules {
	return map[string]GameRules{
		"lol": {
			// Anything shorter is a remake.
			MinDuration: 5 * time.Minute,
			// Summoner's Rift and Howling Abyss.
			SupportedMaps: []int{11, 12},
			// Arena, Nexus Blitz, Ultimate Spellbook and the practice tool.
			UnsupportedQueues: []int{1700, 1300, 1400, 0},
		},
		"tft": {
			MinDuration: 10 * time.Minute,
			// Double Up is played in pairs and cannot be compared.
			UnsupportedQueues: []int{1160},
		},
	}
}

// LoadRules reads the rules file at path and fills in defaults for games it
// does not mention. A missing file yields the defaults.
func LoadRules(path string) (map[string]GameRules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return nil, fmt.Errorf("failed to read game rules: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse game rules: %w", err)
	}

	for name, r := range file.Games {
		if r.MinDuration < 0 {
			return nil, fmt.Errorf("game %s: min_duration cannot be negative", name)
		}
		rules[name] = r
	}
	return rules, nil
}
