// Package synonym holds the bilingual synonym dictionary and the expansion
// engine that widens a token set with dictionary alternates.
package synonym

import (
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ricesearch/relevance/internal/analysis"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// DefaultEntries is the built-in English/Spanish dictionary for legal and
// business document templates. Both languages share one namespace, so a
// Spanish query reaches English documents and the other way round. That
// raises recall at some cost in precision; weights, not the dictionary,
// decide how much a synonym hit is worth.
var DefaultEntries = map[string][]string{
	"contract":        {"agreement", "deal", "contrato", "acuerdo"},
	"employment":      {"job", "work", "labor", "empleo", "trabajo"},
	"employee":        {"worker", "staff", "empleado", "trabajador"},
	"employer":        {"company", "empleador", "patron"},
	"confidentiality": {"nda", "non-disclosure", "secrecy", "confidencialidad"},
	"non-compete":     {"noncompete", "restrictive covenant", "no competencia"},
	"lease":           {"rental", "tenancy", "arrendamiento", "alquiler"},
	"rent":            {"lease", "alquiler", "renta"},
	"sale":            {"purchase", "sell", "venta", "compraventa"},
	"partnership":     {"partner", "sociedad", "socio"},
	"company":         {"business", "corporation", "firm", "empresa"},
	"invoice":         {"bill", "receipt", "factura"},
	"loan":            {"credit", "lending", "prestamo"},
	"attorney":        {"proxy", "lawyer", "poder", "apoderado", "abogado"},
	"testament":       {"will", "inheritance", "testamento", "herencia"},
	"termination":     {"dismissal", "cancellation", "despido", "rescision"},
	"service":         {"servicio", "consulting"},
	"freelance":       {"contractor", "independent", "autonomo"},
	"privacy":         {"data protection", "gdpr", "privacidad"},
	"house":           {"home", "property", "vivienda", "casa"},
	"vehicle":         {"car", "auto", "coche", "vehiculo"},
	"divorce":         {"separation", "divorcio"},
	"template":        {"form", "model", "plantilla", "modelo"},
	"letter":          {"notice", "carta"},
	"claim":           {"complaint", "reclamacion", "demanda"},
	"temporary":       {"fixed-term", "temporal"},
}

// Map is an immutable synonym dictionary. Lookups are symmetric: every
// synonym also resolves back to its canonical term, and both forms are
// reachable through their stems.
type Map struct {
	entries map[string][]string
	index   map[string][]string
}

// New builds a Map from canonical -> synonyms entries. Terms are normalized
// (lowercased, diacritics stripped); empty terms are dropped.
func New(entries map[string][]string) *Map {
	m := &Map{
		entries: make(map[string][]string, len(entries)),
		index:   make(map[string][]string, len(entries)*4),
	}

	canonicals := make([]string, 0, len(entries))
	for k := range entries {
		canonicals = append(canonicals, k)
	}
	sort.Strings(canonicals)

	for _, raw := range canonicals {
		canonical := analysis.Normalize(raw)
		if canonical == "" {
			continue
		}

		synonyms := make([]string, 0, len(entries[raw]))
		for _, s := range entries[raw] {
			if n := analysis.Normalize(s); n != "" && n != canonical && !slices.Contains(synonyms, n) {
				synonyms = append(synonyms, n)
			}
		}
		m.entries[canonical] = append(m.entries[canonical], synonyms...)

		for _, s := range synonyms {
			m.link(canonical, s)
			m.link(s, canonical)
		}
	}

	return m
}

// link records to as an alternate of from, under from and its stem.
func (m *Map) link(from, to string) {
	keys := []string{from}
	if !strings.Contains(from, " ") {
		if stem := analysis.Stem(from); stem != from {
			keys = append(keys, stem)
		}
	}
	for _, k := range keys {
		if !slices.Contains(m.index[k], to) {
			m.index[k] = append(m.index[k], to)
		}
	}
}

// Default returns a Map built from DefaultEntries.
func Default() *Map {
	return New(DefaultEntries)
}

// Load reads a YAML mapping of canonical term to synonym list.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.DictionaryError("reading synonym dictionary", err).WithDetail("path", path)
	}

	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.DictionaryError("parsing synonym dictionary", err).WithDetail("path", path)
	}

	return New(entries), nil
}

// Lookup returns the alternates of term in dictionary order. The returned
// slice is a copy.
func (m *Map) Lookup(term string) []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.index[term])
}

// Len returns the number of canonical entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns a copy of the canonical entries.
func (m *Map) Entries() map[string][]string {
	out := make(map[string][]string, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.entries {
		out[k] = slices.Clone(v)
	}
	return out
}
