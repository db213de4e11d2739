package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/identity"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/notification"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/websocket"
)

// People resolves the active patients and dentists an appointment refers to.
type People interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetDentist(ctx context.Context, id uuid.UUID) (*identity.Dentist, error)
	PatientByUser(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
}

// Notifier sends templated push messages to a user.
type Notifier interface {
	NotifyTemplate(ctx context.Context, recipient, templateID string, data map[string]string, sendAfter *time.Time) error
}

type Service struct {
	repo         Repository
	people       People
	notifier     Notifier
	events       websocket.Publisher
	tx           db.TxRunner
	logger       zerolog.Logger
	reminderLead time.Duration
	now          func() time.Time
}

func NewService(repo Repository, people People, notifier Notifier, tx db.TxRunner,
	logger zerolog.Logger, reminderLead time.Duration) *Service {
	return &Service{
		repo:         repo,
		people:       people,
		notifier:     notifier,
		tx:           tx,
		logger:       logger.With().Str("component", "appointments").Logger(),
		reminderLead: reminderLead,
		now:          time.Now,
	}
}

func (s *Service) SetPublisher(p websocket.Publisher) { s.events = p }

// Create books a scheduled appointment. The overlap check and the insert
// run under the dentist's agenda lock. The patient is told right away and
// reminded reminderLead before it starts; delivery failures are only logged.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.DentistID == uuid.Nil {
		return apperr.Invalid("dentist_id is required")
	}
	if a.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id is required")
	}
	if a.StartDate.IsZero() || a.EndDate.IsZero() {
		return apperr.Invalid("start_date and end_date are required")
	}
	if !a.EndDate.After(a.StartDate) {
		return apperr.Invalid("end_date must be after start_date")
	}

	patient, err := s.people.GetPatient(ctx, a.PatientID)
	if err != nil {
		return err
	}
	dentist, err := s.people.GetDentist(ctx, a.DentistID)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockAgenda(ctx, a.DentistID); err != nil {
			return err
		}
		overlap, err := s.repo.HasOverlap(ctx, a.DentistID, a.StartDate, a.EndDate, uuid.Nil)
		if err != nil {
			return err
		}
		if overlap {
			return apperr.Conflict("dentist already has an appointment in that time range")
		}
		a.Status = StatusScheduled
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return err
	}
	s.notifyCreated(ctx, a, patient, dentist)
	publish(ctx, s.events, s.logger, websocket.EventAppointmentCreated, a, a)
	return nil
}

func messageData(a *Appointment, dentist *identity.Dentist) map[string]string {
	data := map[string]string{
		"date": a.StartDate.Format("2006-01-02"),
		"time": a.StartDate.Format("15:04"),
	}
	if dentist != nil {
		data["dentist"] = dentist.Person.FullName()
	}
	return data
}

func (s *Service) notify(ctx context.Context, recipient, template string, data map[string]string, at *time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTemplate(ctx, recipient, template, data, at); err != nil {
		s.logger.Warn().Err(err).Str("recipient", recipient).Str("template", template).
			Msg("appointment notification failed")
	}
}

func (s *Service) notifyCreated(ctx context.Context, a *Appointment, patient *identity.Patient, dentist *identity.Dentist) {
	recipient := patient.UserID.String()
	data := messageData(a, dentist)
	s.notify(ctx, recipient, notification.TemplateAppointmentCreated, data, nil)

	remindAt := a.StartDate.Add(-s.reminderLead)
	if remindAt.After(s.now()) {
		s.notify(ctx, recipient, notification.TemplateAppointmentReminder, data, &remindAt)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Cancel moves a scheduled appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var appt *Appointment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusScheduled {
			return apperr.Conflict("appointment is %s and cannot be cancelled", a.Status)
		}
		if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		a.Status = StatusCancelled
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.logger, websocket.EventAppointmentCancelled, appt, appt)
	if patient, err := s.people.GetPatient(ctx, appt.PatientID); err == nil {
		s.notify(ctx, patient.UserID.String(), notification.TemplateAppointmentCanceled, messageData(appt, nil), nil)
	}
	return appt, nil
}

// PatientFor returns the active patient record of a user account.
func (s *Service) PatientFor(ctx context.Context, userID uuid.UUID) (*identity.Patient, error) {
	return s.people.PatientByUser(ctx, userID)
}
