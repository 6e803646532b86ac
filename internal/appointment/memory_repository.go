package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by tests and db-less dev
// runs. It mirrors the Postgres implementation's semantics, including the
// compare-and-swap status update.
type MemoryRepository struct {
	mu            sync.RWMutex
	clients       map[uuid.UUID]Client
	animals       map[uuid.UUID]Animal
	veterinarians map[uuid.UUID]Veterinarian
	appointments  map[uuid.UUID]Appointment
	events        []EventLog
	nextEventID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clients:       make(map[uuid.UUID]Client),
		animals:       make(map[uuid.UUID]Animal),
		veterinarians: make(map[uuid.UUID]Veterinarian),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

// Fixture helpers for tests and dev seeding.

func (r *MemoryRepository) PutClient(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

func (r *MemoryRepository) PutAnimal(a Animal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.animals[a.ID] = a
}

func (r *MemoryRepository) PutVeterinarian(v Veterinarian) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.veterinarians[v.ID] = v
}

func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemoryRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) GetAnimalByID(ctx context.Context, id uuid.UUID) (*Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.animals[id]
	if !ok {
		return nil, ErrAnimalNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) GetVeterinarianByID(ctx context.Context, id uuid.UUID) (*Veterinarian, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.veterinarians[id]
	if !ok {
		return nil, ErrVeterinarianNotFound
	}
	return &v, nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.appointments[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		// Same shape as the conditional UPDATE matching zero rows.
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentVisit(ctx context.Context, id uuid.UUID, fields visitFields) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	a.Date = fields.Date
	a.Time = fields.Time
	a.Description = fields.Description
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) CompleteAppointment(ctx context.Context, id uuid.UUID, from Status, vetID *uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = StatusCompleted
	if a.VeterinarianID == nil && vetID != nil {
		v := *vetID
		a.VeterinarianID = &v
	}
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	return r.list(func(a Appointment) bool { return a.Status == status })
}

func (r *MemoryRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	return r.list(func(a Appointment) bool { return a.ClientID == clientID })
}

func (r *MemoryRepository) ListByVeterinarian(ctx context.Context, vetID uuid.UUID) ([]Appointment, error) {
	return r.list(func(a Appointment) bool {
		return a.VeterinarianID != nil && *a.VeterinarianID == vetID
	})
}

func (r *MemoryRepository) ListAll(ctx context.Context) ([]Appointment, error) {
	return r.list(func(Appointment) bool { return true })
}

func (r *MemoryRepository) list(match func(Appointment) bool) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0)
	for _, a := range r.appointments {
		if match(a) {
			out = append(out, a)
		}
	}

	// Stable order matching the Postgres queries.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})

	return out, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}
