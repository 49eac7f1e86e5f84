// Package memory is an in-process store with the same semantics as the
// postgres store. One mutex plays the role of the event row lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/google/uuid"
)

type Storage struct {
	mu sync.Mutex

	events        map[string]models.Event
	tiers         map[string]models.TicketTier
	registrations map[string]models.Registration
	payments      map[string]models.Payment
	organisers    map[string]models.OrganiserContact
	webhooks      map[string]string

	now func() time.Time
}

func New() *Storage {
	return &Storage{
		events:        make(map[string]models.Event),
		tiers:         make(map[string]models.TicketTier),
		registrations: make(map[string]models.Registration),
		payments:      make(map[string]models.Payment),
		organisers:    make(map[string]models.OrganiserContact),
		webhooks:      make(map[string]string),
		now:           time.Now,
	}
}

func (s *Storage) AddEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *Storage) AddTier(t models.TicketTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[t.ID] = t
}

// AddOrganiser registers the organiser contact of every event whose
// OrganiserID matches c.UserID.
func (s *Storage) AddOrganiser(c models.OrganiserContact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organisers[c.UserID] = c
}

func (s *Storage) GetEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok || e.Deleted {
		return nil, storage.ErrEventNotFound
	}
	return &e, nil
}

func (s *Storage) UpdateEventTimes(_ context.Context, id string, startsAt, endsAt *time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok || e.Deleted {
		return nil, storage.ErrEventNotFound
	}
	e.StartsAt, e.EndsAt = startsAt, endsAt
	s.events[id] = e
	return &e, nil
}

func (s *Storage) EventsStartingBetween(_ context.Context, from, to time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.Event
	for _, e := range s.events {
		if e.Deleted {
			continue
		}
		start, ok := e.Start()
		if !ok || start.Before(from) || start.After(to) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *Storage) OrganiserContact(_ context.Context, eventID string) (models.OrganiserContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok || e.Deleted {
		return models.OrganiserContact{}, storage.ErrOrganiserNotFound
	}
	c, ok := s.organisers[e.OrganiserID]
	if !ok {
		return models.OrganiserContact{}, storage.ErrOrganiserNotFound
	}
	return c, nil
}

func (s *Storage) GetTicketTier(_ context.Context, id string) (*models.TicketTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tiers[id]
	if !ok {
		return nil, storage.ErrTierNotFound
	}
	return &t, nil
}

func (s *Storage) ListTicketTiers(_ context.Context, eventID string) ([]models.TicketTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tiers []models.TicketTier
	for _, t := range s.tiers {
		if t.EventID == eventID {
			tiers = append(tiers, t)
		}
	}
	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].ReleasePriority != tiers[j].ReleasePriority {
			return tiers[i].ReleasePriority < tiers[j].ReleasePriority
		}
		return tiers[i].ID < tiers[j].ID
	})
	return tiers, nil
}

func (s *Storage) SoldQuantity(_ context.Context, tierID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soldLocked(func(r models.Registration) bool { return r.TicketTierID == tierID }), nil
}

func (s *Storage) soldLocked(match func(models.Registration) bool) int {
	sold := 0
	for _, r := range s.registrations {
		if !r.Cancelled() && match(r) {
			sold += r.Quantity
		}
	}
	return sold
}

func (s *Storage) activeByEmailLocked(eventID, email string) (models.Registration, bool) {
	want := models.NormaliseEmail(email)
	for _, r := range s.registrations {
		if r.EventID == eventID && !r.Cancelled() && models.NormaliseEmail(r.Email) == want {
			return r, true
		}
	}
	return models.Registration{}, false
}

func (s *Storage) FindActiveRegistration(_ context.Context, eventID, email string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.activeByEmailLocked(eventID, email)
	if !ok {
		return nil, storage.ErrRegistrationNotFound
	}
	return &r, nil
}

// FindRegistrationBySession returns the registration a checkout session paid
// for, cancelled or not.
func (s *Storage) FindRegistrationBySession(_ context.Context, sessionID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.SessionID != sessionID {
			continue
		}
		if r, ok := s.registrations[p.RegistrationID]; ok {
			return &r, nil
		}
	}
	return nil, storage.ErrRegistrationNotFound
}

func (s *Storage) FindActiveRegistrationFor(ctx context.Context, eventID string, recipient models.Recipient) (*models.Registration, error) {
	if recipient.UserID == "" {
		return s.FindActiveRegistration(ctx, eventID, recipient.GuestEmail)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.Registration
	for _, r := range s.registrations {
		if r.EventID != eventID || r.UserID != recipient.UserID || r.Cancelled() {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			r := r
			found = &r
		}
	}
	if found == nil {
		return nil, storage.ErrRegistrationNotFound
	}
	return found, nil
}

func (s *Storage) CreateRegistration(_ context.Context, in storage.NewRegistration) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[in.EventID]
	if !ok || e.Deleted {
		return nil, storage.ErrEventNotFound
	}

	if existing, ok := s.activeByEmailLocked(in.EventID, in.Identity.Email); ok {
		return &existing, storage.ErrAlreadyRegistered
	}

	if e.Capacity != nil {
		sold := s.soldLocked(func(r models.Registration) bool { return r.EventID == in.EventID })
		if sold+in.Quantity > *e.Capacity {
			return nil, storage.ErrSoldOut
		}
	}

	if in.TierID != "" {
		t, ok := s.tiers[in.TierID]
		if !ok || t.EventID != in.EventID {
			return nil, storage.ErrTierNotFound
		}
		if t.Capacity != nil {
			sold := s.soldLocked(func(r models.Registration) bool { return r.TicketTierID == in.TierID })
			if sold+in.Quantity > *t.Capacity {
				return nil, storage.ErrSoldOut
			}
		}
	}

	if in.Payment != nil {
		for _, p := range s.payments {
			if p.SessionID == in.Payment.SessionID {
				return nil, storage.ErrAlreadyRegistered
			}
		}
	}

	reg := models.Registration{
		ID:           uuid.NewString(),
		EventID:      in.EventID,
		TicketTierID: in.TierID,
		UserID:       in.Identity.UserID,
		Email:        in.Identity.Email,
		Name:         in.Identity.Name,
		Quantity:     in.Quantity,
		External:     in.External,
		CreatedAt:    s.now().UTC(),
	}

	if in.Payment != nil {
		p := models.Payment{
			ID:              uuid.NewString(),
			RegistrationID:  reg.ID,
			SessionID:       in.Payment.SessionID,
			PaymentIntentID: in.Payment.PaymentIntentID,
			AmountTotal:     in.Payment.AmountTotal,
			Currency:        in.Payment.Currency,
			Status:          models.PaymentSucceeded,
			CreatedAt:       reg.CreatedAt,
			UpdatedAt:       reg.CreatedAt,
		}
		s.payments[p.ID] = p
		reg.PaymentID = p.ID
	}

	s.registrations[reg.ID] = reg
	return &reg, nil
}

func (s *Storage) GetRegistration(_ context.Context, id string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return nil, storage.ErrRegistrationNotFound
	}
	return &r, nil
}

func (s *Storage) ActiveRegistrations(_ context.Context, eventID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var regs []models.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID && !r.Cancelled() {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
	return regs, nil
}

func (s *Storage) CancelRegistration(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return storage.ErrRegistrationNotFound
	}
	if r.CancelledAt == nil {
		at := at.UTC()
		r.CancelledAt = &at
		s.registrations[id] = r
	}
	return nil
}

func (s *Storage) GetPaymentByRegistration(_ context.Context, registrationID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.RegistrationID == registrationID {
			return &p, nil
		}
	}
	return nil, storage.ErrPaymentNotFound
}

func (s *Storage) ApplyRefund(_ context.Context, paymentID string, amount int64) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	if !p.Status.Refundable() {
		return nil, storage.ErrPaymentNotRefundable
	}
	if p.RefundedAmount+amount > p.AmountTotal {
		return nil, storage.ErrRefundExceedsPayment
	}

	p.RefundedAmount += amount
	p.Status = models.StatusAfterRefund(p.AmountTotal, p.RefundedAmount)
	p.UpdatedAt = s.now().UTC()
	s.payments[paymentID] = p
	return &p, nil
}

func (s *Storage) WebhookProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.webhooks[eventID]
	return ok, nil
}

func (s *Storage) MarkWebhookProcessed(_ context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[eventID] = eventType
	return nil
}
