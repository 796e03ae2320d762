package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

// RecordVersion is the current best-weights record format.
const RecordVersion = 1

// regressionTolerance absorbs float noise between runs.
const regressionTolerance = 1e-9

// Record is the machine-readable outcome of a run: the winning weights and
// the scores they achieved.
type Record struct {
	Version      int            `json:"version"`
	GeneratedAt  time.Time      `json:"generated_at"`
	K            int            `json:"k"`
	Samples      int            `json:"samples"`
	Combinations int            `json:"combinations"`
	Weights      search.Weights `json:"weights"`
	Precision    float64        `json:"precision"`
	NDCG         float64        `json:"ndcg"`
	Objective    float64        `json:"objective"`
	Recall       float64        `json:"recall"`
	MRR          float64        `json:"mrr"`
	MAP          float64        `json:"map"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
}

// NewRecord extracts the best-weights record from a report.
func NewRecord(r *Report) Record {
	return Record{
		Version:      RecordVersion,
		GeneratedAt:  r.GeneratedAt,
		K:            r.K,
		Samples:      r.Samples,
		Combinations: r.Combinations,
		Weights:      r.Best.Weights,
		Precision:    r.Best.MeanPrecision,
		NDCG:         r.Best.MeanNDCG,
		Objective:    r.Best.Objective,
		Recall:       r.Best.MeanRecall,
		MRR:          r.Best.MeanMRR,
		MAP:          r.Best.MAP,
		Fingerprint:  r.Fingerprint,
	}
}

// WriteRecord writes rec as indented JSON, replacing path atomically.
func WriteRecord(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.InternalError("encoding weights record", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.FixtureError("creating record directory", err).WithDetail("path", path)
	}

	tmp, err := os.CreateTemp(dir, ".weights-*.json")
	if err != nil {
		return apperrors.FixtureError("writing weights record", err).WithDetail("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.FixtureError("writing weights record", err).WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.FixtureError("writing weights record", err).WithDetail("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.FixtureError("writing weights record", err).WithDetail("path", path)
	}
	return nil
}

// LoadRecord reads a record written by WriteRecord.
func LoadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, apperrors.FixtureError("reading weights record", err).WithDetail("path", path)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, apperrors.FixtureError("parsing weights record", err).WithDetail("path", path)
	}
	if rec.Version != RecordVersion {
		return Record{}, apperrors.FixtureError(fmt.Sprintf("unsupported record version %d", rec.Version), nil).
			WithDetail("path", path)
	}
	if err := rec.Weights.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CheckRegression fails when cur's NDCG falls below prev's.
func CheckRegression(prev, cur Record) error {
	if cur.NDCG+regressionTolerance < prev.NDCG {
		return apperrors.RegressionError(fmt.Sprintf("NDCG@%d dropped from %.4f to %.4f", cur.K, prev.NDCG, cur.NDCG)).
			WithDetail("previous", fmt.Sprintf("%.6f", prev.NDCG)).
			WithDetail("current", fmt.Sprintf("%.6f", cur.NDCG))
	}
	return nil
}
