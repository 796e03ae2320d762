package metrics

// Metric names emitted by the engine, server and evaluation harness.
const (
	// Query path.
	SearchRequests   = "relevance_search_requests_total"
	SearchDuration   = "relevance_search_duration_ms"
	SearchMatched    = "relevance_search_matched_documents"
	ExpansionTerms   = "relevance_query_expansion_terms"
	QueriesParsed    = "relevance_query_parsed_total"
	QueriesClamped   = "relevance_query_clamped_total"
	ExcludedDocs     = "relevance_query_excluded_documents_total"
	WeightUpdates    = "relevance_weight_updates_total"
	CatalogDocuments = "relevance_catalog_documents"

	// Evaluation harness.
	EvaluationRuns         = "relevance_evaluation_runs_total"
	EvaluationCombinations = "relevance_evaluation_combinations_total"
	EvaluationDuration     = "relevance_evaluation_duration_ms"
	EvaluationBestNDCG     = "relevance_evaluation_best_ndcg"
	EvaluationBestScore    = "relevance_evaluation_best_objective"

	// HTTP.
	HTTPRequests = "relevance_http_requests_total"
	HTTPDuration = "relevance_http_duration_ms"

	// Event bus.
	BusPublished = "relevance_bus_events_published_total"
	BusErrors    = "relevance_bus_errors_total"
)

// Descriptor documents a known metric.
type Descriptor struct {
	Name    string
	Kind    Kind
	Help    string
	Buckets []float64
}

var countBuckets = []float64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}

// Catalog lists every metric the module emits.
var Catalog = []Descriptor{
	{Name: SearchRequests, Kind: KindCounter, Help: "Total number of ranking requests"},
	{Name: SearchDuration, Kind: KindHistogram, Help: "Ranking latency in milliseconds"},
	{Name: SearchMatched, Kind: KindHistogram, Help: "Documents with a positive score per ranking request", Buckets: countBuckets},
	{Name: ExpansionTerms, Kind: KindHistogram, Help: "Expanded term count per query", Buckets: countBuckets},
	{Name: QueriesParsed, Kind: KindCounter, Help: "Total number of parsed queries"},
	{Name: QueriesClamped, Kind: KindCounter, Help: "Parsed queries shortened by validation"},
	{Name: ExcludedDocs, Kind: KindCounter, Help: "Documents removed by negative terms or phrases"},
	{Name: WeightUpdates, Kind: KindCounter, Help: "Rank weight replacements"},
	{Name: CatalogDocuments, Kind: KindGauge, Help: "Documents in the served catalog"},
	{Name: EvaluationRuns, Kind: KindCounter, Help: "Completed evaluation runs"},
	{Name: EvaluationCombinations, Kind: KindCounter, Help: "Weight combinations scored"},
	{Name: EvaluationDuration, Kind: KindHistogram, Help: "Evaluation run duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}},
	{Name: EvaluationBestNDCG, Kind: KindGauge, Help: "Mean NDCG@10 of the best weight combination"},
	{Name: EvaluationBestScore, Kind: KindGauge, Help: "Objective of the best weight combination"},
	{Name: HTTPRequests, Kind: KindCounter, Help: "HTTP requests by method, path and status"},
	{Name: HTTPDuration, Kind: KindHistogram, Help: "HTTP request duration in milliseconds"},
	{Name: BusPublished, Kind: KindCounter, Help: "Events published by topic"},
	{Name: BusErrors, Kind: KindCounter, Help: "Event publish failures by topic"},
}

// Describe returns the catalog entry for name.
func Describe(name string) (Descriptor, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

func helpFor(name string) string {
	if d, ok := Describe(name); ok {
		return d.Help
	}
	return name
}

func bucketsFor(name string) []float64 {
	if d, ok := Describe(name); ok && len(d.Buckets) > 0 {
		return d.Buckets
	}
	return DefaultBuckets
}
