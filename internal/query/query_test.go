package query

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Parsed
	}{
		{
			name:  "empty",
			input: "",
			want:  Parsed{Positive: []string{}, Negatives: []string{}, Phrases: []string{}},
		},
		{
			name:  "phrase negative positive",
			input: `employment "non compete" -temporary`,
			want: Parsed{
				Positive:  []string{"employment"},
				Negatives: []string{"temporary"},
				Phrases:   []string{"non compete"},
			},
		},
		{
			name:  "unterminated quote keeps last token",
			input: `employment "unclosed quote contract`,
			want: Parsed{
				Positive:  []string{"employment", "contract"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "unterminated quote keeps hyphenated last token as positive",
			input: `employment "unclosed -temporary`,
			want: Parsed{
				Positive:  []string{"employment", "temporary"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "phrase words elsewhere are not loose terms",
			input: `"non compete" non compete`,
			want: Parsed{
				Positive:  []string{},
				Negatives: []string{},
				Phrases:   []string{"non compete"},
			},
		},
		{
			name:  "phrase removal matches whole tokens only",
			input: `"non compete" Non  Compete clause non-compete -non compete`,
			want: Parsed{
				Positive:  []string{"clause", "non-compete", "compete"},
				Negatives: []string{"non"},
				Phrases:   []string{"non compete"},
			},
		},
		{
			name:  "partial phrase run stays",
			input: `"fixed term" fixed rent`,
			want: Parsed{
				Positive:  []string{"fixed", "rent"},
				Negatives: []string{},
				Phrases:   []string{"fixed term"},
			},
		},
		{
			name:  "whitespace-only phrase discarded",
			input: `lease "   " rental`,
			want: Parsed{
				Positive:  []string{"lease", "rental"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "bare hyphen discarded",
			input: `contract - nda`,
			want: Parsed{
				Positive:  []string{"contract", "nda"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "internal hyphen kept",
			input: `non-compete -fixed-term`,
			want: Parsed{
				Positive:  []string{"non-compete"},
				Negatives: []string{"fixed-term"},
				Phrases:   []string{},
			},
		},
		{
			name:  "case and diacritics folded, duplicates removed",
			input: `Contrato CONTRATO Empleo -Tempóral -temporal "Acuerdo  de Confidencialidad" "acuerdo de confidencialidad"`,
			want: Parsed{
				Positive:  []string{"contrato", "empleo"},
				Negatives: []string{"temporal"},
				Phrases:   []string{"acuerdo de confidencialidad"},
			},
		},
		{
			name:  "markup is inert text",
			input: `<script>alert('x')</script>`,
			want: Parsed{
				Positive:  []string{"script", "alert", "x"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "control characters",
			input: "lease\x00\x1b[31m\tsale",
			want: Parsed{
				Positive:  []string{"lease", "31m", "sale"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
		{
			name:  "double hyphen is not a negative",
			input: `--drop table`,
			want: Parsed{
				Positive:  []string{"table"},
				Negatives: []string{},
				Phrases:   []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_NoEmptyStrings(t *testing.T) {
	inputs := []string{
		`""`,
		`"`,
		`-`,
		`- - -`,
		`"" "" -`,
		`" -`,
		"\x00\x01\x02",
		`"a" "b`,
		strings.Repeat(`"`, 7),
	}

	for _, in := range inputs {
		p := Parse(in)
		for _, list := range [][]string{p.Positive, p.Negatives, p.Phrases} {
			for _, term := range list {
				if term == "" {
					t.Errorf("Parse(%q) produced an empty term: %+v", in, p)
				}
			}
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := `employment "non compete" -temporary contrato "unclosed`
	first := Parse(input)
	for i := 0; i < 10; i++ {
		if got := Parse(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("Parse() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestValidate(t *testing.T) {
	many := make([]string, 100)
	for i := range many {
		many[i] = fmt.Sprintf("term%d", i)
	}

	got := Validate(Parsed{Positive: many}, DefaultLimits())
	if len(got.Positive) != 50 {
		t.Errorf("len(Positive) = %d, want 50", len(got.Positive))
	}
	if got.Positive[0] != "term0" || got.Positive[49] != "term49" {
		t.Errorf("truncation kept wrong terms: %s..%s", got.Positive[0], got.Positive[49])
	}

	long := strings.Repeat("a", 200)
	got = Validate(Parsed{
		Positive:  []string{"lease", long},
		Negatives: []string{long},
		Phrases:   []string{long, "non compete"},
	}, DefaultLimits())
	if !reflect.DeepEqual(got.Positive, []string{"lease"}) {
		t.Errorf("Positive = %v, want [lease]", got.Positive)
	}
	if len(got.Negatives) != 0 {
		t.Errorf("Negatives = %v, want empty", got.Negatives)
	}
	if !reflect.DeepEqual(got.Phrases, []string{"non compete"}) {
		t.Errorf("Phrases = %v, want [non compete]", got.Phrases)
	}
}

func TestValidate_LimitsAndInput(t *testing.T) {
	in := Parsed{Positive: []string{"a", "bb", "ccc", "dddd"}}

	got := Validate(in, Limits{MaxTerms: 2, MaxTermLength: 2})
	if !reflect.DeepEqual(got.Positive, []string{"a", "bb"}) {
		t.Errorf("Positive = %v, want [a bb]", got.Positive)
	}

	got = Validate(in, Limits{MaxTerms: 2, MaxTermLength: 3})
	if !reflect.DeepEqual(got.Positive, []string{"a", "bb"}) {
		t.Errorf("Positive = %v, want [a bb]", got.Positive)
	}

	// Over-long terms do not take a slot.
	got = Validate(Parsed{Positive: []string{"toolong", "a", "b"}}, Limits{MaxTerms: 2, MaxTermLength: 3})
	if !reflect.DeepEqual(got.Positive, []string{"a", "b"}) {
		t.Errorf("Positive = %v, want [a b]", got.Positive)
	}

	// Zero limits fall back to defaults.
	got = Validate(in, Limits{})
	if !reflect.DeepEqual(got.Positive, in.Positive) {
		t.Errorf("Positive = %v, want %v", got.Positive, in.Positive)
	}

	if len(in.Positive) != 4 {
		t.Error("Validate modified its input")
	}
}

func TestNegativeExcluded(t *testing.T) {
	p := Parse(`employment -temporary`)

	tests := []struct {
		name     string
		keywords []string
		want     bool
	}{
		{"excluded", []string{"employment", "temporary"}, true},
		{"case folded", []string{"Temporary Contract"}, true},
		{"substring does not exclude", []string{"temporarily"}, false},
		{"no match", []string{"employment"}, false},
		{"no keywords", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NegativeExcluded(tt.keywords, p); got != tt.want {
				t.Errorf("NegativeExcluded(%v) = %v, want %v", tt.keywords, got, tt.want)
			}
		})
	}

	if NegativeExcluded([]string{"temporary"}, Parse("employment")) {
		t.Error("empty negatives must never exclude")
	}
}

func TestPhrasesCovered(t *testing.T) {
	p := Parse(`"non compete"`)

	tests := []struct {
		name     string
		keywords []string
		want     bool
	}{
		{"contiguous across keywords", []string{"non", "compete", "clause"}, true},
		{"inside one keyword", []string{"Non Compete agreement"}, true},
		{"order matters", []string{"compete", "non"}, false},
		{"gap breaks run", []string{"non", "clause", "compete"}, false},
		{"hyphenated is one token", []string{"non-compete"}, false},
		{"no stemming", []string{"non", "competes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhrasesCovered(tt.keywords, p); got != tt.want {
				t.Errorf("PhrasesCovered(%v) = %v, want %v", tt.keywords, got, tt.want)
			}
		})
	}

	if !PhrasesCovered(nil, Parse("contract")) {
		t.Error("empty phrase list must always be covered")
	}
}

func TestPositivesCovered(t *testing.T) {
	p := Parse("employment contract")

	if !PositivesCovered([]string{"contract", "Employment"}, p) {
		t.Error("expected all positives covered")
	}
	if PositivesCovered([]string{"employment", "contracts"}, p) {
		t.Error("positive membership must be exact")
	}
}

func TestMatches(t *testing.T) {
	p := Parse(`employment "non compete" -temporary`)

	tests := []struct {
		name     string
		keywords []string
		want     bool
	}{
		{"all satisfied", []string{"employment", "non", "compete"}, true},
		{"negative wins", []string{"employment", "non", "compete", "temporary"}, false},
		{"phrase missing", []string{"employment", "compete"}, false},
		{"positive missing", []string{"non", "compete"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.keywords, p); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.keywords, got, tt.want)
			}
		})
	}
}
