package hash

import (
	"strings"
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256String(t *testing.T) {
	got := SHA256String("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if got != want {
		t.Errorf("SHA256String(hello) = %s, want %s", got, want)
	}
}

func TestSHA256Short(t *testing.T) {
	hash := SHA256([]byte("hello"))

	tests := []struct {
		n    int
		want string
	}{
		{8, hash[:8]},
		{16, hash[:16]},
		{32, hash[:32]},
		{64, hash},  // full hash
		{100, hash}, // exceeds length, returns full
	}

	for _, tt := range tests {
		got := SHA256Short([]byte("hello"), tt.n)
		if got != tt.want {
			t.Errorf("SHA256Short(hello, %d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	type doc struct {
		ID       string   `json:"id"`
		Keywords []string `json:"keywords"`
	}
	docs := []doc{{ID: "lease", Keywords: []string{"rent"}}}

	fp1, err := Fingerprint(docs, "samples")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, _ := Fingerprint([]doc{{ID: "lease", Keywords: []string{"rent"}}}, "samples")
	if fp1 != fp2 {
		t.Errorf("Fingerprint not deterministic: %s != %s", fp1, fp2)
	}

	fp3, _ := Fingerprint([]doc{{ID: "lease", Keywords: []string{"lease"}}}, "samples")
	if fp1 == fp3 {
		t.Errorf("Fingerprint collision: %s == %s", fp1, fp3)
	}

	// Argument order matters.
	fp4, _ := Fingerprint("samples", docs)
	if fp1 == fp4 {
		t.Errorf("Fingerprint ignores order: %s == %s", fp1, fp4)
	}

	if len(fp1) != FingerprintLength {
		t.Errorf("Fingerprint length = %d, want %d", len(fp1), FingerprintLength)
	}
	for _, c := range fp1 {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("Fingerprint contains non-hex character: %c", c)
		}
	}
}

func TestFingerprint_Unencodable(t *testing.T) {
	if _, err := Fingerprint(make(chan int)); err == nil {
		t.Error("Fingerprint(chan) should fail")
	}
}

func BenchmarkSHA256(b *testing.B) {
	data := []byte("benchmark test data for hashing performance measurement")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SHA256(data)
	}
}
