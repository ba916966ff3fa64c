package directory

import (
	"fmt"
	"sort"
	"strings"

	"route2lnm/internal/models"
)

// Lookup is the read-only view of the airport reference data used by the planner
type Lookup interface {
	Lookup(ident string) (models.Airport, bool)
	FindByAlias(sim models.Simulator, alias string) (string, bool)
}

// Source provides the airports a Directory is built from
type Source interface {
	All() ([]models.Airport, error)
}

// Directory is an immutable index of airports by canonical identifier and by simulator alias.
// It is safe for concurrent use.
type Directory struct {
	airports map[string]models.Airport
	aliases  map[models.Simulator]map[string]string // sim -> alias -> canonical identifier
}

// New builds a Directory from airport records. When several airports share an alias
// under the same simulator, the alias resolves to the lowest canonical identifier.
func New(airports []models.Airport) *Directory {
	d := &Directory{
		airports: make(map[string]models.Airport, len(airports)),
		aliases:  make(map[models.Simulator]map[string]string),
	}

	sorted := make([]models.Airport, len(airports))
	copy(sorted, airports)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ident < sorted[j].Ident })

	for _, ap := range sorted {
		ap.Ident = strings.ToUpper(ap.Ident)
		ap.Aliases = copyAliases(ap.Aliases)
		d.airports[ap.Ident] = ap

		for sim, list := range ap.Aliases {
			index, ok := d.aliases[sim]
			if !ok {
				index = make(map[string]string)
				d.aliases[sim] = index
			}
			for _, alias := range list {
				if _, taken := index[alias]; !taken {
					index[alias] = ap.Ident
				}
			}
		}
	}

	return d
}

// Load builds a Directory from a Source, typically the airport repository
func Load(src Source) (*Directory, error) {
	airports, err := src.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load airports: %w", err)
	}
	return New(airports), nil
}

func copyAliases(in map[models.Simulator][]string) map[models.Simulator][]string {
	out := make(map[models.Simulator][]string, len(in))
	for sim, list := range in {
		out[sim] = append([]string(nil), list...)
	}
	return out
}

// Lookup returns the airport with the given canonical identifier
func (d *Directory) Lookup(ident string) (models.Airport, bool) {
	ap, ok := d.airports[ident]
	return ap, ok
}

// FindByAlias returns the canonical identifier of the airport the simulator knows as alias
func (d *Directory) FindByAlias(sim models.Simulator, alias string) (string, bool) {
	ident, ok := d.aliases[sim][alias]
	return ident, ok
}

// Len returns the number of airports in the directory
func (d *Directory) Len() int {
	return len(d.airports)
}
