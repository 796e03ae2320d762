package synonym

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

func TestMap_Lookup(t *testing.T) {
	m := New(map[string][]string{
		"Contract": {"Agreement", "deal", "", "deal"},
		"letter":   {"carta"},
	})

	tests := []struct {
		term string
		want []string
	}{
		{"contract", []string{"agreement", "deal"}},
		{"agreement", []string{"contract"}},
		{"deal", []string{"contract"}},
		{"letter", []string{"carta"}},
		{"lett", []string{"carta"}},
		{"carta", []string{"letter"}},
		{"unknown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := m.Lookup(tt.term); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMap_LookupReturnsCopy(t *testing.T) {
	m := New(map[string][]string{"contract": {"agreement"}})

	got := m.Lookup("contract")
	got[0] = "mutated"

	if again := m.Lookup("contract"); again[0] != "agreement" {
		t.Errorf("dictionary mutated through Lookup result: %v", again)
	}

	entries := m.Entries()
	entries["contract"][0] = "mutated"
	if again := m.Lookup("contract"); again[0] != "agreement" {
		t.Errorf("dictionary mutated through Entries result: %v", again)
	}
}

func TestMap_Nil(t *testing.T) {
	var m *Map
	if got := m.Lookup("contract"); got != nil {
		t.Errorf("nil Map Lookup = %v, want nil", got)
	}
	if m.Len() != 0 {
		t.Errorf("nil Map Len = %d, want 0", m.Len())
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Len() != len(DefaultEntries) {
		t.Errorf("Len() = %d, want %d", m.Len(), len(DefaultEntries))
	}

	// Cross-language bridge in both directions.
	if got := m.Lookup("contrato"); !reflect.DeepEqual(got, []string{"contract"}) {
		t.Errorf("Lookup(contrato) = %v", got)
	}
	if got := m.Lookup("employment"); len(got) == 0 || got[0] != "job" {
		t.Errorf("Lookup(employment) = %v", got)
	}
}

func TestExpander_Expand(t *testing.T) {
	e := NewExpander(New(map[string][]string{
		"contract": {"agreement", "deal"},
		"letter":   {"carta"},
	}))

	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"empty", []string{}, []string{}},
		{"canonical", []string{"contract"}, []string{"contract", "agreement", "deal"}},
		{"reverse", []string{"agreement"}, []string{"agreement", "contract"}},
		{"stem bridge", []string{"contracts"}, []string{"contracts", "contract", "agreement", "deal"}},
		{"stemmed key", []string{"lett"}, []string{"lett", "carta"}},
		{"no duplicates", []string{"contract", "deal"}, []string{"contract", "deal", "agreement"}},
		{"empty tokens dropped", []string{"", "deal"}, []string{"deal", "contract"}},
		{"unknown passes through", []string{"zebra"}, []string{"zebra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Expand(tt.tokens)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand(%v) = %v, want %v", tt.tokens, got, tt.want)
			}
		})
	}
}

func TestExpander_Superset(t *testing.T) {
	e := NewExpander(Default())
	tokens := []string{"employment", "contrato", "lease", "nda"}

	got := e.Expand(tokens)
	for i, tok := range tokens {
		if got[i] != tok {
			t.Errorf("Expand()[%d] = %q, want base token %q first", i, got[i], tok)
		}
	}

	seen := make(map[string]bool)
	for _, term := range got {
		if term == "" {
			t.Error("Expand() returned an empty term")
		}
		if seen[term] {
			t.Errorf("Expand() returned duplicate %q", term)
		}
		seen[term] = true
	}

	if again := e.Expand(tokens); !reflect.DeepEqual(again, got) {
		t.Errorf("Expand() not deterministic: %v vs %v", again, got)
	}
}

func TestExpander_NilDictionary(t *testing.T) {
	e := NewExpander(nil)
	got := e.Expand([]string{"contracts"})
	want := []string{"contracts", "contract"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand() = %v, want %v", got, want)
	}
}

func TestPureSynonyms(t *testing.T) {
	got := PureSynonyms([]string{"contract"}, []string{"contract", "agreement", "deal"})
	want := []string{"agreement", "deal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PureSynonyms() = %v, want %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	content := "contrato:\n  - contract\n  - Acuerdo\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Lookup("contrato"); !reflect.DeepEqual(got, []string{"contract", "acuerdo"}) {
		t.Errorf("Lookup(contrato) = %v", got)
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	if !apperrors.HasCode(err, apperrors.CodeDictionary) {
		t.Errorf("missing file error = %v, want DICTIONARY_ERROR", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("- just\n- a list\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for non-mapping dictionary")
	}
}
