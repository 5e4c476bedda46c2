// internal/dispatch/dispatcher.go
//
// Package dispatch fans workflow events out to their consumers. The
// controller returns events instead of performing side effects; the
// dispatcher is the single place those events become audit rows,
// notifications and cache invalidations. Consumer failures are logged and
// counted but never fail the originating operation.
package dispatch

import (
	"context"

	"admissions-workflow/internal/audit"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/notify"
)

// Invalidator is the projection-cache hook. Satisfied by *projection.Service.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Dispatcher routes workflow events to the audit sink, the notification
// gateway and the projection cache.
type Dispatcher struct {
	audit       audit.Sink
	notifier    *notify.Gateway
	invalidator Invalidator
	logger      logger.Logger
}

// New builds a dispatcher. notifier and invalidator may be nil when the
// corresponding concern is disabled.
func New(sink audit.Sink, notifier *notify.Gateway, invalidator Invalidator, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		audit:       sink,
		notifier:    notifier,
		invalidator: invalidator,
		logger:      log,
	}
}

// Dispatch delivers every event to its consumers in order. State and
// document events are audited; notification requests go to the gateway.
// Any write invalidates the dashboard cache once.
func (d *Dispatcher) Dispatch(ctx context.Context, events []models.WorkflowEvent) {
	if len(events) == 0 {
		return
	}

	for _, event := range events {
		switch event.Kind {
		case models.EventStateChanged, models.EventDocumentUploaded, models.EventDocumentVerified:
			d.record(ctx, event)
		case models.EventNotificationRequested:
			d.record(ctx, event)
			d.deliver(ctx, event)
		default:
			d.logger.Warn("unknown event kind skipped", map[string]interface{}{
				"kind":          string(event.Kind),
				"applicationId": event.ApplicationID,
			})
		}
	}

	if d.invalidator != nil {
		d.invalidator.Invalidate(ctx)
	}
}

func (d *Dispatcher) record(ctx context.Context, event models.WorkflowEvent) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Record(ctx, event); err != nil {
		d.logger.Error("audit record failed", map[string]interface{}{
			"eventId":       event.ID,
			"kind":          string(event.Kind),
			"applicationId": event.ApplicationID,
			"error":         err.Error(),
		})
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event models.WorkflowEvent) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Deliver(ctx, event); err != nil {
		d.logger.Error("notification delivery failed", map[string]interface{}{
			"eventId":       event.ID,
			"applicationId": event.ApplicationID,
			"error":         err.Error(),
		})
	}
}
