package appointment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/websocket"
)

// publish sends an appointment event to the shared feed and to the
// dentist's own topic. Failures are logged and never returned.
func publish(ctx context.Context, p websocket.Publisher, logger zerolog.Logger, eventType string, a *Appointment, data interface{}) {
	if p == nil {
		return
	}
	for _, topic := range []string{websocket.TopicAppointments, websocket.DentistTopic(a.DentistID)} {
		ev, err := websocket.NewEvent(eventType, topic, a.ID.String(), data)
		if err == nil {
			err = p.Publish(ctx, ev)
		}
		if err != nil {
			logger.Warn().Err(err).Str("type", eventType).Str("appointment_id", a.ID.String()).
				Msg("publish event failed")
		}
	}
}
