package metrics

import (
	"context"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
)

// TurnRecorder implements the event-publisher port by updating Prometheus
// counters, so routing metrics stay correct even when no broker is
// configured. Bootstrap fans turn events out to this and the NATS
// publisher together.
type TurnRecorder struct {
	metrics *HTTPServerMetrics
	service string
}

func NewTurnRecorder(metrics *HTTPServerMetrics, service string) *TurnRecorder {
	return &TurnRecorder{metrics: metrics, service: service}
}

func (r *TurnRecorder) PublishTurnCompleted(_ context.Context, event domain.TurnEvent) error {
	r.metrics.RecordClassification(r.service, string(event.Category))
	r.metrics.RecordTurn(r.service, event.Expert, event.ToolsInvoked, time.Duration(event.DurationMS*float64(time.Millisecond)))
	return nil
}
