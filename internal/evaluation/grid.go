package evaluation

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

// Grid lists the candidate values of each tier weight. An empty axis keeps
// the base weight's value.
type Grid struct {
	Original []float64 `json:"original" yaml:"original"`
	Synonym  []float64 `json:"synonym" yaml:"synonym"`
	Semantic []float64 `json:"semantic" yaml:"semantic"`
	Keyword  []float64 `json:"keyword" yaml:"keyword"`
}

// DefaultGrid returns the grid searched when none is configured.
func DefaultGrid() Grid {
	return Grid{
		Original: []float64{1.0, 1.5, 2.0},
		Synonym:  []float64{0.2, 0.4, 0.6, 0.8, 1.0},
		Semantic: []float64{0.4},
		Keyword:  []float64{0, 0.15, 0.3, 0.5},
	}
}

// LoadGrid reads a grid from a YAML file.
func LoadGrid(path string) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, apperrors.FixtureError("reading grid", err).WithDetail("path", path)
	}

	var g Grid
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Grid{}, apperrors.FixtureError("parsing grid", err).WithDetail("path", path)
	}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// Validate rejects negative candidates.
func (g Grid) Validate() error {
	axes := []struct {
		name   string
		values []float64
	}{
		{"original", g.Original},
		{"synonym", g.Synonym},
		{"semantic", g.Semantic},
		{"keyword", g.Keyword},
	}
	for _, a := range axes {
		for _, v := range a.values {
			if v < 0 {
				return apperrors.ValidationError("grid weights must not be negative").WithDetail("axis", a.name)
			}
		}
	}
	return nil
}

// Size returns the number of combinations the grid yields.
func (g Grid) Size() int {
	return axisLen(g.Original) * axisLen(g.Synonym) * axisLen(g.Semantic) * axisLen(g.Keyword)
}

// Combinations expands the grid in a fixed order: original varies slowest,
// keyword fastest. Fields the grid does not cover are taken from base.
func (g Grid) Combinations(base search.Weights) []search.Weights {
	out := make([]search.Weights, 0, g.Size())
	for _, o := range axis(g.Original, base.Original) {
		for _, s := range axis(g.Synonym, base.Synonym) {
			for _, sem := range axis(g.Semantic, base.Semantic) {
				for _, k := range axis(g.Keyword, base.Keyword) {
					w := base
					w.Original = o
					w.Synonym = s
					w.Semantic = sem
					w.Keyword = k
					out = append(out, w)
				}
			}
		}
	}
	return out
}

func axis(values []float64, fallback float64) []float64 {
	if len(values) == 0 {
		return []float64{fallback}
	}
	return values
}

func axisLen(values []float64) int {
	if len(values) == 0 {
		return 1
	}
	return len(values)
}
