package metrics

import (
	"net/http"

	"github.com/ricesearch/relevance/internal/bus"
	"github.com/ricesearch/relevance/internal/config"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/pkg/logger"
)

// Pipeline is a recorder plus the sinks it feeds, built from configuration.
type Pipeline struct {
	Recorder   *Recorder
	Registry   *Registry
	Prometheus *PrometheusSink
	Redis      *RedisStorage
}

// Setup builds the sinks named in cfg and starts a recorder over them. The
// bus sink needs b; it is skipped with a warning when b is nil. A disabled
// configuration yields a pipeline whose recorder is nil and records nothing.
func Setup(cfg config.MetricsConfig, b bus.Bus, source string, log *logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{}
	if !cfg.Enabled {
		return p, nil
	}

	var sinks Fanout
	for _, name := range cfg.SinkList() {
		switch name {
		case "registry":
			p.Registry = NewRegistry()
			sinks = append(sinks, p.Registry)
		case "prometheus":
			p.Prometheus = NewPrometheusSink(nil)
			sinks = append(sinks, p.Prometheus)
		case "redis":
			rs, err := NewRedisStorage(RedisOptions{
				URL:    cfg.RedisURL,
				Prefix: cfg.RedisPrefix,
				TTL:    cfg.RedisTTL,
			})
			if err != nil {
				return nil, apperrors.MetricsError("creating redis sink", err)
			}
			p.Redis = rs
			sinks = append(sinks, rs)
		case "bus":
			if b == nil {
				log.Warn("Bus metrics sink requested without a bus, skipping")
				continue
			}
			sinks = append(sinks, NewBusSink(b, source))
		default:
			return nil, apperrors.MetricsError("unknown sink "+name, nil)
		}
	}

	p.Recorder = NewRecorder(sinks, log, cfg.BufferSize)
	log.Info("Metrics pipeline started", "sinks", cfg.SinkList())
	return p, nil
}

// Handler serves the scrape endpoint: the Prometheus sink when present,
// otherwise the registry's text rendering. It returns nil when neither
// sink is configured.
func (p *Pipeline) Handler() http.Handler {
	switch {
	case p == nil:
		return nil
	case p.Prometheus != nil:
		return p.Prometheus.Handler()
	case p.Registry != nil:
		return p.Registry.Handler()
	}
	return nil
}

// Close drains the recorder and releases sink connections.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	p.Recorder.Close()
	if p.Redis != nil {
		return p.Redis.Close()
	}
	return nil
}
