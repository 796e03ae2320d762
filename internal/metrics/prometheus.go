package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// PrometheusFormat exports the registry in Prometheus text exposition format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func (r *Registry) PrometheusFormat() string {
	r.mu.RLock()
	counters := sortedFamilies(r.counters)
	gauges := sortedFamilies(r.gauges)
	histograms := sortedFamilies(r.histograms)
	r.mu.RUnlock()

	var sb strings.Builder

	for _, f := range counters {
		writeHeader(&sb, f.name, f.help, "counter")
		for _, c := range f.all() {
			writeSample(&sb, c.Name(), c.Labels(), c.Value())
		}
	}

	for _, f := range gauges {
		writeHeader(&sb, f.name, f.help, "gauge")
		for _, g := range f.all() {
			writeSample(&sb, g.Name(), g.Labels(), g.Value())
		}
	}

	for _, f := range histograms {
		writeHeader(&sb, f.name, f.help, "histogram")
		for _, h := range f.all() {
			writeHistogram(&sb, h)
		}
	}

	return sb.String()
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.PrometheusFormat()))
	})
}

func sortedFamilies[T any](m map[string]*family[T]) []*family[T] {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*family[T], 0, len(names))
	for _, n := range names {
		out = append(out, m[n])
	}
	return out
}

func writeHeader(sb *strings.Builder, name, help, kind string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(help)
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(kind)
	sb.WriteString("\n")
}

func writeSample(sb *strings.Builder, name string, labels map[string]string, value float64) {
	sb.WriteString(name)
	writeLabels(sb, labels)
	sb.WriteString(" ")
	sb.WriteString(formatFloat(value))
	sb.WriteString("\n")
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	labels := h.Labels()
	buckets := h.Buckets()
	counts := h.BucketCounts()

	for i, bound := range buckets {
		withLe := copyLabels(labels)
		withLe["le"] = formatFloat(bound)
		writeSample(sb, h.Name()+"_bucket", withLe, float64(counts[i]))
	}

	withLe := copyLabels(labels)
	withLe["le"] = "+Inf"
	writeSample(sb, h.Name()+"_bucket", withLe, float64(counts[len(counts)-1]))

	writeSample(sb, h.Name()+"_sum", labels, h.Sum())
	writeSample(sb, h.Name()+"_count", labels, float64(h.Count()))
}

// writeLabels writes labels in Prometheus format {key="value",key2="value2"}.
func writeLabels(sb *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}

	sb.WriteString("{")
	for i, k := range labelNames(labels) {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeString(labels[k]))
		sb.WriteString("\"")
	}
	sb.WriteString("}")
}

// escapeString escapes special characters in label values.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
