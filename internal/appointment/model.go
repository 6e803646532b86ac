package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusPending   Status = "pending"
	StatusDenied    Status = "denied"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusPending, StatusDenied, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Role string

const (
	RoleClient       Role = "client"
	RoleStaff        Role = "staff"
	RoleVeterinarian Role = "veterinarian"
)

// Actor identifies who invokes a lifecycle operation. Operations check the
// role themselves; there is no ambient logged-in state.
type Actor struct {
	ID   string
	Role Role
}

// CreatedByClient is the createdBy tag for client-initiated appointments.
// Staff-created appointments carry the staff actor id instead. The tag is
// informational only, it never gates a transition.
const CreatedByClient = "Cliente"

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Animal struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	Species   string
	Breed     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Veterinarian struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the record the lifecycle manager moves through the state
// machine. Date is date-only, Time is an HH:mm string; both are validated
// before any state change. ClientID and AnimalID never change after creation.
type Appointment struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	AnimalID       uuid.UUID
	VeterinarianID *uuid.UUID
	Date           time.Time
	Time           string
	Description    string
	Status         Status
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
