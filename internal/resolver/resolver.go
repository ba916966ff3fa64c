package resolver

import (
	"fmt"
	"sort"
	"strings"

	"route2lnm/internal/directory"
	"route2lnm/internal/models"
)

// DefaultWorld names the reference dataset in resolution failures
const DefaultWorld = "FSEconomy world"

// ResolutionError reports input tokens that match neither a canonical identifier
// nor an alias of the selected simulator
type ResolutionError struct {
	World      string
	Unresolved []string // Sorted, deduplicated
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("ICAO codes not found in %s: %s", e.World, strings.Join(e.Unresolved, ", "))
}

// Resolver turns free text into canonical identifiers
type Resolver struct {
	dir   directory.Lookup
	world string
}

// New creates a Resolver over dir. world names the dataset in error messages.
func New(dir directory.Lookup, world string) *Resolver {
	if world == "" {
		world = DefaultWorld
	}
	return &Resolver{dir: dir, world: world}
}

// Normalize upper-cases text and splits it on every character that is not A-Z or 0-9
func Normalize(text string) []string {
	return strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

// NormalizedText returns the tokens of text joined by single spaces
func NormalizedText(text string) string {
	return strings.Join(Normalize(text), " ")
}

// Resolve returns the canonical identifiers named in text, deduplicated in order of first occurrence.
// Tokens are matched against canonical identifiers first and then against the aliases of sim.
// If any token cannot be matched a *ResolutionError is returned and no identifiers.
func (r *Resolver) Resolve(text string, sim models.Simulator) ([]string, error) {
	var idents []string
	seen := make(map[string]bool)
	unresolved := make(map[string]bool)

	for _, token := range Normalize(text) {
		ident, ok := r.resolveToken(token, sim)
		if !ok {
			unresolved[token] = true
			continue
		}
		if !seen[ident] {
			seen[ident] = true
			idents = append(idents, ident)
		}
	}

	if len(unresolved) > 0 {
		tokens := make([]string, 0, len(unresolved))
		for token := range unresolved {
			tokens = append(tokens, token)
		}
		sort.Strings(tokens)
		return nil, &ResolutionError{World: r.world, Unresolved: tokens}
	}

	return idents, nil
}

func (r *Resolver) resolveToken(token string, sim models.Simulator) (string, bool) {
	if _, ok := r.dir.Lookup(token); ok {
		return token, true
	}
	return r.dir.FindByAlias(sim, token)
}
