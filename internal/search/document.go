package search

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ricesearch/relevance/internal/analysis"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// Document is the searchable surrogate of a catalog item.
type Document struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords"`
}

// Result is a scored document.
type Result struct {
	DocumentID string   `json:"document_id"`
	Score      float64  `json:"score"`
	Document   Document `json:"document"`
}

// fields holds a document's normalized text.
type fields struct {
	name        string
	description string
	keywords    []string
}

func prepareFields(d Document) fields {
	f := fields{
		name:        analysis.Normalize(d.Name),
		description: analysis.Normalize(d.Description),
		keywords:    make([]string, 0, len(d.Keywords)),
	}
	for _, kw := range d.Keywords {
		if n := analysis.Normalize(kw); n != "" {
			f.keywords = append(f.keywords, n)
		}
	}
	return f
}

// Collection is an immutable document list with its normalized fields
// computed once.
type Collection struct {
	docs   []Document
	fields []fields
	byID   map[string]int
}

// NewCollection copies docs and prepares them for scoring. Input order is
// the tie-break order of every ranking over the collection.
func NewCollection(docs []Document) *Collection {
	c := &Collection{
		docs:   make([]Document, len(docs)),
		fields: make([]fields, len(docs)),
		byID:   make(map[string]int, len(docs)),
	}
	copy(c.docs, docs)
	for i, d := range c.docs {
		c.fields[i] = prepareFields(d)
		if _, dup := c.byID[d.ID]; !dup {
			c.byID[d.ID] = i
		}
	}
	return c
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	return len(c.docs)
}

// Documents returns a copy of the documents in collection order.
func (c *Collection) Documents() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Get returns the first document with the given ID.
func (c *Collection) Get(id string) (Document, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// filter returns the sub-collection of documents keep accepts, reusing
// their prepared fields.
func (c *Collection) filter(keep func(Document) bool) *Collection {
	out := &Collection{byID: make(map[string]int)}
	for i, d := range c.docs {
		if !keep(d) {
			continue
		}
		if _, dup := out.byID[d.ID]; !dup {
			out.byID[d.ID] = len(out.docs)
		}
		out.docs = append(out.docs, d)
		out.fields = append(out.fields, c.fields[i])
	}
	return out
}

// LoadDocuments reads a document list from a JSON or YAML file, chosen by
// extension.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.FixtureError("reading documents", err).WithDetail("path", path)
	}
	docs, err := ParseDocuments(data, filepath.Ext(path))
	if err != nil {
		return nil, apperrors.FixtureError("parsing documents", err).WithDetail("path", path)
	}
	return docs, nil
}

// ParseDocuments decodes a document list. ext selects YAML for ".yaml" and
// ".yml" and JSON otherwise.
func ParseDocuments(data []byte, ext string) ([]Document, error) {
	var docs []Document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
	}

	for i, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return nil, apperrors.ValidationError("document without id").WithDetail("index", strconv.Itoa(i))
		}
	}
	return docs, nil
}
