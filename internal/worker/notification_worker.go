package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker subscribes the notification fan-out to the
// lifecycle event stream.
func StartNotificationWorker(notifier *service.Notifier, dispatcher events.Dispatcher) {
	if notifier == nil || dispatcher == nil {
		return
	}
	notifier.RegisterHandlers(dispatcher)
}
