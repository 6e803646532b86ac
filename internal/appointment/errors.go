package appointment

import (
	"errors"
	"fmt"
)

// ErrValidation is the class every input validation failure wraps. Callers
// can match the class with errors.Is(err, ErrValidation) or a specific
// failure with its own sentinel.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyDescription   = fmt.Errorf("%w: description must not be empty", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: date must be a valid YYYY-MM-DD calendar date", ErrValidation)
	ErrInvalidTime        = fmt.Errorf("%w: time must be HH:mm", ErrValidation)
	ErrNoAssociatedAnimal = fmt.Errorf("%w: animal does not belong to client", ErrValidation)
	ErrNoVeterinarian     = fmt.Errorf("%w: no veterinarian attributable to appointment", ErrValidation)
	ErrInvalidStatus      = fmt.Errorf("%w: unknown appointment status", ErrValidation)
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrAnimalNotFound       = errors.New("animal not found")
	ErrVeterinarianNotFound = errors.New("veterinarian not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

var (
	// ErrInvalidTransition: the operation is not permitted from the
	// appointment's current status, including any operation on a terminal one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrActorNotAllowed: the actor's role may not invoke the operation.
	ErrActorNotAllowed = errors.New("actor role not allowed for operation")
)
