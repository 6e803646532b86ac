package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetdesk/appointment-service/internal/appointment"
)

type RequestAppointmentRequest struct {
	ClientID    string `json:"client_id"`
	AnimalID    string `json:"animal_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

type ScheduleAppointmentRequest struct {
	ClientID       string `json:"client_id"`
	AnimalID       string `json:"animal_id"`
	VeterinarianID string `json:"veterinarian_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Description    string `json:"description"`
}

type ModifyAppointmentRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	ClientID       uuid.UUID  `json:"client_id"`
	AnimalID       uuid.UUID  `json:"animal_id"`
	VeterinarianID *uuid.UUID `json:"veterinarian_id,omitempty"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		ClientID:       a.ClientID,
		AnimalID:       a.AnimalID,
		VeterinarianID: a.VeterinarianID,
		Date:           a.Date.Format("2006-01-02"),
		Time:           a.Time,
		Description:    a.Description,
		Status:         string(a.Status),
		CreatedBy:      a.CreatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
