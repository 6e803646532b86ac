package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/vetdesk/appointment-service/internal/redis"
)

const (
	EventAppointmentRequested = "APPOINTMENT_REQUESTED"
	EventAppointmentScheduled = "APPOINTMENT_SCHEDULED"
	EventAppointmentApproved  = "APPOINTMENT_APPROVED"
	EventAppointmentDenied    = "APPOINTMENT_DENIED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentModified  = "APPOINTMENT_MODIFIED"
)

// ErrAppointmentBusy: another transition currently holds the lock for this
// appointment.
var ErrAppointmentBusy = errors.New("appointment is being updated, please retry")

// Service is the appointment lifecycle manager. Every operation validates
// input and the current status before touching the store; transitions run
// under a per-appointment lock and land as a compare-and-swap update, so a
// concurrent Approve/Deny/Cancel pair against the same record cannot both
// succeed.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

type RequestInput struct {
	ClientID    uuid.UUID
	AnimalID    uuid.UUID
	Date        string
	Time        string
	Description string
}

type ScheduleInput struct {
	ClientID       uuid.UUID
	AnimalID       uuid.UUID
	VeterinarianID uuid.UUID
	Date           string
	Time           string
	Description    string
}

// Request creates a client-initiated appointment in status requested.
// The animal must resolve and belong to the requesting client.
func (s *Service) Request(ctx context.Context, actor Actor, in RequestInput) (*Appointment, error) {
	if actor.Role != RoleClient {
		return nil, ErrActorNotAllowed
	}

	fields, err := validateVisitFields(in.Date, in.Time, in.Description)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetClientByID(ctx, in.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if err := s.checkAnimalOwnership(ctx, in.ClientID, in.AnimalID); err != nil {
		return nil, err
	}

	created, err := s.repo.InsertAppointment(ctx, Appointment{
		ClientID:    in.ClientID,
		AnimalID:    in.AnimalID,
		Date:        fields.Date,
		Time:        fields.Time,
		Description: fields.Description,
		Status:      StatusRequested,
		CreatedBy:   CreatedByClient,
	})
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentRequested, actor, nil)

	return created, nil
}

// Schedule is the staff-side direct booking: same validation as Request but
// the appointment starts in status scheduled and must carry a veterinarian.
func (s *Service) Schedule(ctx context.Context, actor Actor, in ScheduleInput) (*Appointment, error) {
	if actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}
	if in.VeterinarianID == uuid.Nil {
		return nil, ErrNoVeterinarian
	}

	fields, err := validateVisitFields(in.Date, in.Time, in.Description)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetClientByID(ctx, in.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if err := s.checkAnimalOwnership(ctx, in.ClientID, in.AnimalID); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetVeterinarianByID(ctx, in.VeterinarianID); err != nil {
		if errors.Is(err, ErrVeterinarianNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load veterinarian: %w", err)
	}

	vetID := in.VeterinarianID
	created, err := s.repo.InsertAppointment(ctx, Appointment{
		ClientID:       in.ClientID,
		AnimalID:       in.AnimalID,
		VeterinarianID: &vetID,
		Date:           fields.Date,
		Time:           fields.Time,
		Description:    fields.Description,
		Status:         StatusScheduled,
		CreatedBy:      actor.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentScheduled, actor, nil)

	return created, nil
}

// Approve moves a requested appointment to pending. Staff only.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	if actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}
	return s.transition(ctx, actor, id, canApprove, StatusPending, EventAppointmentApproved)
}

// Deny moves a requested appointment to denied. Staff only. Denied is
// terminal; there is no path back into the lifecycle.
func (s *Service) Deny(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	if actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}
	return s.transition(ctx, actor, id, canDeny, StatusDenied, EventAppointmentDenied)
}

// Complete closes a pending or scheduled appointment. Veterinarian or staff.
// A veterinarian must be attributable afterwards: a completing veterinarian
// actor is assigned when the record has none, otherwise the call fails
// before any write. The assignment rides the status compare-and-swap, so a
// lost race leaves the record entirely untouched.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	if actor.Role != RoleVeterinarian && actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}

	var updated *Appointment

	err := s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("load appointment: %w", err)
		}

		if err := canComplete(appt.Status); err != nil {
			return err
		}

		var assign *uuid.UUID
		if appt.VeterinarianID == nil {
			vetID, parseErr := uuid.Parse(actor.ID)
			if actor.Role != RoleVeterinarian || parseErr != nil {
				return ErrNoVeterinarian
			}
			assign = &vetID
		}

		updated, err = s.repo.CompleteAppointment(lockCtx, appt.ID, appt.Status, assign)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("complete appointment: %w", err)
		}

		s.logEvent(lockCtx, updated.ID, EventAppointmentCompleted, actor, nil)
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrAppointmentBusy
		}
		return nil, err
	}

	return updated, nil
}

// Cancel moves any non-terminal appointment to cancelled. Staff only.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	if actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}
	return s.transition(ctx, actor, id, canCancel, StatusCancelled, EventAppointmentCancelled)
}

// Modify overwrites date, time and description, leaving status untouched.
// Any status is allowed, terminal ones included; the stored record is
// unchanged when validation fails.
func (s *Service) Modify(ctx context.Context, actor Actor, id uuid.UUID, date, timeOfDay, description string) (*Appointment, error) {
	if actor.Role != RoleStaff {
		return nil, ErrActorNotAllowed
	}

	fields, err := validateVisitFields(date, timeOfDay, description)
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		updated, err = s.repo.UpdateAppointmentVisit(lockCtx, id, fields)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("update appointment: %w", err)
		}

		s.logEvent(lockCtx, updated.ID, EventAppointmentModified, actor, map[string]any{
			"date": fields.Date.Format(dateLayout),
			"time": fields.Time,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrAppointmentBusy
		}
		return nil, err
	}

	return updated, nil
}

// transition runs the guarded read-validate-write cycle shared by Approve,
// Deny and Cancel.
func (s *Service) transition(ctx context.Context, actor Actor, id uuid.UUID, guard func(Status) error, to Status, eventType string) (*Appointment, error) {
	var updated *Appointment

	err := s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("load appointment: %w", err)
		}

		if err := guard(appt.Status); err != nil {
			return err
		}

		updated, err = s.repo.UpdateAppointmentStatus(lockCtx, appt.ID, appt.Status, to)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Status changed underneath the conditional update.
				return ErrInvalidTransition
			}
			return fmt.Errorf("update status: %w", err)
		}

		s.logEvent(lockCtx, updated.ID, eventType, actor, nil)
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrAppointmentBusy
		}
		return nil, err
	}

	return updated, nil
}

func (s *Service) checkAnimalOwnership(ctx context.Context, clientID, animalID uuid.UUID) error {
	animal, err := s.repo.GetAnimalByID(ctx, animalID)
	if err != nil {
		if errors.Is(err, ErrAnimalNotFound) {
			return ErrNoAssociatedAnimal
		}
		return fmt.Errorf("load animal: %w", err)
	}
	if animal.ClientID != clientID {
		return ErrNoAssociatedAnimal
	}
	return nil
}

// Queries

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	items, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	return items, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	items, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list by client: %w", err)
	}
	return items, nil
}

func (s *Service) ListByVeterinarian(ctx context.Context, vetID uuid.UUID) ([]Appointment, error) {
	items, err := s.repo.ListByVeterinarian(ctx, vetID)
	if err != nil {
		return nil, fmt.Errorf("list by veterinarian: %w", err)
	}
	return items, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Appointment, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	return items, nil
}

// logEvent writes the audit trail best-effort; a failed insert never fails
// the operation that produced it.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, actor Actor, extra map[string]any) {
	payload := map[string]any{
		"actor_id":   actor.ID,
		"actor_role": string(actor.Role),
	}
	for k, v := range extra {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
