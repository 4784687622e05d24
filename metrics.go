package iso8583

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the messages a Processor handles.
type Metrics struct {
	MessagesParsed *prometheus.CounterVec
	ParseErrors    *prometheus.CounterVec
	MessageSize    prometheus.Histogram
}

// NewMetrics registers the processor metrics with reg. A nil reg uses the
// default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "iso8583"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		MessagesParsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_parsed_total",
				Help:      "Number of messages parsed, by message type",
			},
			[]string{"type"},
		),
		ParseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Number of messages that failed to parse, by error kind",
			},
			[]string{"kind"},
		),
		MessageSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "message_size_bytes",
				Help:      "Size of the raw messages handed to the processor",
				Buckets:   prometheus.ExponentialBuckets(32, 2, 8),
			},
		),
	}
}

func (m *Metrics) observe(size int, msg *Message, err error) {
	if m == nil {
		return
	}
	m.MessageSize.Observe(float64(size))
	if err != nil {
		m.ParseErrors.WithLabelValues(errorKind(err)).Inc()
		return
	}
	m.MessagesParsed.WithLabelValues(hexType(msg.Type())).Inc()
}

// errorKind is a short metric label for err.
func errorKind(err error) string {
	for _, k := range []struct {
		err   error
		label string
	}{
		{ErrInsufficientData, "insufficient_data"},
		{ErrInvalidLengthPrefix, "invalid_length_prefix"},
		{ErrInvalidFieldData, "invalid_field_data"},
		{ErrNoParsingGuide, "no_parsing_guide"},
		{ErrUnspecifiedField, "unspecified_field"},
	} {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "other"
}
