// Package analysis derives aggregate tables from a cleaned incident table.
// Every derivation is a pure function of its inputs.
package analysis

import (
	"errors"
	"sort"
	"sync"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

var (
	ErrUnknownGranularity    = errors.New("unknown granularity")
	ErrRankingRequired       = errors.New("category ranking required")
	ErrIncompleteYear        = errors.New("year has no December rows")
	ErrTopCategoriesRequired = errors.New("top category list required")
	ErrAreasRequired         = errors.New("area table required")
	ErrUnknownDerivation     = errors.New("unknown derivation")
)

// Inputs are the tables a derivation reads
type Inputs struct {
	Incidents *models.IncidentTable
	Areas     *models.AreaTable
}

// Version identifies the inputs; derivations over equal versions are equal
func (in Inputs) Version() string {
	v := ""
	if in.Incidents != nil {
		v = in.Incidents.Version
	}
	if in.Areas != nil {
		v += "+" + in.Areas.Version
	}
	return v
}

// Derivation computes one aggregate table
type Derivation func(in Inputs) (any, error)

// Derivation names
const (
	DerivationCategoryRanking = "category_ranking"
	DerivationTopCategories   = "top_categories"
	DerivationAreaDensity     = "area_density"
	DerivationTimeOfDay       = "time_of_day"
	DerivationSummary         = "summary"
)

// PeriodDerivation returns the derivation name of the period counts at g
func PeriodDerivation(g models.Granularity) string {
	return "periods." + string(g)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Derivation)
)

// Register adds a derivation under name, replacing any previous one
func Register(name string, d Derivation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = d
}

// Lookup returns the derivation registered under name
func Lookup(name string) (Derivation, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns every registered derivation name, sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	for _, g := range models.Granularities {
		g := g
		Register(PeriodDerivation(g), func(in Inputs) (any, error) {
			return PeriodCounts(in.Incidents, g)
		})
	}

	Register(DerivationCategoryRanking, func(in Inputs) (any, error) {
		return BuildCategoryRanking(in.Incidents), nil
	})
	Register(DerivationTopCategories, func(in Inputs) (any, error) {
		return CurrentTopCategories(BuildCategoryRanking(in.Incidents))
	})
	Register(DerivationAreaDensity, func(in Inputs) (any, error) {
		return AreaYearDensity(in.Incidents, in.Areas)
	})
	Register(DerivationTimeOfDay, func(in Inputs) (any, error) {
		top, err := CurrentTopCategories(BuildCategoryRanking(in.Incidents))
		if err != nil {
			return nil, err
		}
		return TimeOfDay(in.Incidents, top.Names())
	})
	Register(DerivationSummary, func(in Inputs) (any, error) {
		return Summarize(in.Incidents, in.Areas), nil
	})
}
