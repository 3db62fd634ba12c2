package game

import (
	"fmt"
	"sort"
)

// Registry is the closed table of supported games, built once at startup.
type Registry struct {
	providers map[GameType]Provider
}

// NewRegistry creates a registry holding the given providers. A later
// provider with the same type replaces an earlier one.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[GameType]Provider, len(providers)),
	}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

// Get retrieves a provider by game type
func (r *Registry) Get(gameType GameType) (Provider, error) {
	p, ok := r.providers[gameType]
	if !ok {
		return nil, fmt.Errorf("unknown game type: %s", gameType)
	}
	return p, nil
}

// GetAll returns all registered providers ordered by game type
func (r *Registry) GetAll() []Provider {
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Type() < providers[j].Type()
	})
	return providers
}

// List returns information about all registered games
func (r *Registry) List() []GameInfo {
	providers := r.GetAll()
	games := make([]GameInfo, 0, len(providers))
	for _, p := range providers {
		games = append(games, GameInfo{
			Type:        p.Type(),
			Name:        p.Name(),
			Description: p.Description(),
		})
	}
	return games
}

// GameInfo contains display information about a game
type GameInfo struct {
	Type        GameType
	Name        string
	Description string
}
