package evaluation

import (
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

//go:embed fixtures/documents.json fixtures/samples.json
var fixtures embed.FS

// DefaultDocuments returns the embedded bilingual legal-template catalog.
func DefaultDocuments() ([]search.Document, error) {
	data, err := fixtures.ReadFile("fixtures/documents.json")
	if err != nil {
		return nil, apperrors.FixtureError("reading embedded documents", err)
	}
	docs, err := search.ParseDocuments(data, ".json")
	if err != nil {
		return nil, apperrors.FixtureError("parsing embedded documents", err)
	}
	return docs, nil
}

// DefaultSamples returns the embedded labeled queries for DefaultDocuments.
func DefaultSamples() ([]Sample, error) {
	data, err := fixtures.ReadFile("fixtures/samples.json")
	if err != nil {
		return nil, apperrors.FixtureError("reading embedded samples", err)
	}
	samples, err := ParseSamples(data, ".json")
	if err != nil {
		return nil, apperrors.FixtureError("parsing embedded samples", err)
	}
	return samples, nil
}

// LoadSamples reads labeled queries from a JSON or YAML file.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.FixtureError("reading samples", err).WithDetail("path", path)
	}
	samples, err := ParseSamples(data, filepath.Ext(path))
	if err != nil {
		return nil, apperrors.FixtureError("parsing samples", err).WithDetail("path", path)
	}
	return samples, nil
}

// ParseSamples decodes and validates a sample list. ext selects YAML for
// ".yaml" and ".yml" and JSON otherwise.
func ParseSamples(data []byte, ext string) ([]Sample, error) {
	var samples []Sample
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &samples); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &samples); err != nil {
			return nil, err
		}
	}

	for i, s := range samples {
		if err := s.Validate(); err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok {
				return nil, appErr.WithDetail("index", strconv.Itoa(i))
			}
			return nil, err
		}
	}
	return samples, nil
}
