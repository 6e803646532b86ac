package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all store interactions needed by the service. Storage
// failures are returned opaque; the service wraps them with operation context
// and never interprets or retries them.
type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetAnimalByID(ctx context.Context, id uuid.UUID) (*Animal, error)
	GetVeterinarianByID(ctx context.Context, id uuid.UUID) (*Veterinarian, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// InsertAppointment persists a new appointment and returns it with the
	// store-assigned id and timestamps populated.
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-swap: the row is updated only
	// if its status still equals from. A lost race surfaces as
	// ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// UpdateAppointmentVisit overwrites date, time and description, leaving
	// status untouched.
	UpdateAppointmentVisit(ctx context.Context, id uuid.UUID, date visitFields) (*Appointment, error)

	// CompleteAppointment is the completion compare-and-swap: the row moves to
	// completed only if its status still equals from, and vetID is assigned in
	// the same update when the record has no veterinarian yet. A lost race
	// surfaces as ErrAppointmentNotFound and assigns nothing.
	CompleteAppointment(ctx context.Context, id uuid.UUID, from Status, vetID *uuid.UUID) (*Appointment, error)

	ListByStatus(ctx context.Context, status Status) ([]Appointment, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error)
	ListByVeterinarian(ctx context.Context, vetID uuid.UUID) ([]Appointment, error)
	ListAll(ctx context.Context) ([]Appointment, error)

	// Audit trail
	InsertEvent(ctx context.Context, ev EventLog) error
}
