package bus

import (
	"fmt"
	"strings"

	"github.com/ricesearch/relevance/internal/config"
	"github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/pkg/logger"
)

// NewBus creates a Bus from configuration. When an event log path is set
// the bus is wrapped so every published event is also appended to it.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	if log == nil {
		log = logger.Discard()
	}

	var b Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "relevance"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "relevance-bus",
			Version:       cfg.KafkaVersion,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return b, nil
	}

	events, err := OpenEventLog(cfg.EventLog)
	if err != nil {
		_ = b.Close()
		return nil, errors.Wrap(errors.CodeConfig, "opening event log", err)
	}
	return NewLoggedBus(b, events, log.WithComponent("bus")), nil
}
