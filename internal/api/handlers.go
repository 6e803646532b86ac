package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetdesk/appointment-service/internal/appointment"
)

func requestAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown_actor", "")
			return
		}

		var req RequestAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		animalID, err := uuid.Parse(req.AnimalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_animal_id", "animal_id must be a valid UUID")
			return
		}

		appt, err := svc.Request(r.Context(), actor, appointment.RequestInput{
			ClientID:    clientID,
			AnimalID:    animalID,
			Date:        req.Date,
			Time:        req.Time,
			Description: req.Description,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func scheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown_actor", "")
			return
		}

		var req ScheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		animalID, err := uuid.Parse(req.AnimalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_animal_id", "animal_id must be a valid UUID")
			return
		}

		vetID, err := uuid.Parse(req.VeterinarianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_veterinarian_id", "veterinarian_id must be a valid UUID")
			return
		}

		appt, err := svc.Schedule(r.Context(), actor, appointment.ScheduleInput{
			ClientID:       clientID,
			AnimalID:       animalID,
			VeterinarianID: vetID,
			Date:           req.Date,
			Time:           req.Time,
			Description:    req.Description,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// transitionHandler serves approve, deny, complete and cancel, which differ
// only in the service call.
func transitionHandler(fn func(r *http.Request, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown_actor", "")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := fn(r, actor, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func modifyAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown_actor", "")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ModifyAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Modify(r.Context(), actor, id, req.Date, req.Time, req.Description)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// listAppointmentsHandler filters by at most one of status, client_id,
// veterinarian_id; with no filter it returns everything.
func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			items []appointment.Appointment
			err   error
		)

		switch {
		case q.Get("status") != "":
			items, err = svc.ListByStatus(r.Context(), appointment.Status(q.Get("status")))
		case q.Get("client_id") != "":
			var clientID uuid.UUID
			clientID, err = uuid.Parse(q.Get("client_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
				return
			}
			items, err = svc.ListByClient(r.Context(), clientID)
		case q.Get("veterinarian_id") != "":
			var vetID uuid.UUID
			vetID, err = uuid.Parse(q.Get("veterinarian_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_veterinarian_id", "veterinarian_id must be a valid UUID")
				return
			}
			items, err = svc.ListByVeterinarian(r.Context(), vetID)
		default:
			items, err = svc.ListAll(r.Context())
		}

		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(items))
		for i := range items {
			out = append(out, toAppointmentResponse(&items[i]))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrActorNotAllowed):
		writeError(w, http.StatusForbidden, "actor_not_allowed", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, appointment.ErrVeterinarianNotFound):
		writeError(w, http.StatusNotFound, "veterinarian_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrAppointmentBusy):
		writeError(w, http.StatusConflict, "appointment_busy", "appointment is being updated, please retry shortly")
	case errors.Is(err, appointment.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
