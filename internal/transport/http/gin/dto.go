package httpgin

import (
	"time"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/service/calendar"
)

type CreateHoldRequest struct {
	ResourceID  string `json:"resource_id" binding:"required"`
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	TTLSec      int    `json:"ttl_sec" binding:"gte=0"`
	SessionID   string `json:"session_id"`
	AmountCents int64  `json:"amount_cents" binding:"gte=0"`
}

type GuestDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CommitRequest struct {
	Guest            GuestDTO `json:"guest"`
	PaymentConfirmed bool     `json:"payment_confirmed"`
	PaymentReference string   `json:"payment_reference"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type WebhookRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	Status    string `json:"status" binding:"required,oneof=success failure"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

type CreateResourceRequest struct {
	ID         string `json:"id" binding:"required"`
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	Capacity   int    `json:"capacity" binding:"gte=0"`
}

type SetCapacityRequest struct {
	Capacity int `json:"capacity" binding:"gte=0"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type BlockRequest struct {
	From     string `json:"from" binding:"required"`
	To       string `json:"to" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason"`
}

type LineDTO struct {
	ResourceID string `json:"resource_id" binding:"required"`
	From       string `json:"from" binding:"required"`
	To         string `json:"to" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

type DirectBookingRequest struct {
	Lines            []LineDTO `json:"lines" binding:"required,min=1,dive"`
	Guest            GuestDTO  `json:"guest"`
	TotalCents       int64     `json:"total_cents" binding:"gte=0"`
	PaymentConfirmed bool      `json:"payment_confirmed"`
	PaymentReference string    `json:"payment_reference"`
}

type ErrorResponse struct {
	Error     string   `json:"error"`
	ShortDays []string `json:"short_days,omitempty"`
	Retriable bool     `json:"retriable,omitempty"`
}

type HoldResponse struct {
	ID          string    `json:"id"`
	ResourceID  string    `json:"resource_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Quantity    int       `json:"quantity"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	SessionID   string    `json:"session_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func toHoldResponse(h *domain.Hold) HoldResponse {
	return HoldResponse{
		ID:          h.ID.String(),
		ResourceID:  h.ResourceID,
		From:        domain.DayKey(h.Range.From),
		To:          domain.DayKey(h.Range.To),
		Quantity:    h.Quantity,
		AmountCents: h.AmountCents,
		Status:      string(h.Status),
		SessionID:   h.SessionID,
		UserID:      h.UserID,
		ExpiresAt:   h.ExpiresAt,
		CreatedAt:   h.CreatedAt,
	}
}

type BookingLineResponse struct {
	ResourceID string `json:"resource_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Quantity   int    `json:"quantity"`
}

type BookingResponse struct {
	ID               string                `json:"id"`
	HoldID           string                `json:"hold_id,omitempty"`
	Status           string                `json:"status"`
	PaymentStatus    string                `json:"payment_status"`
	PaymentReference string                `json:"payment_reference,omitempty"`
	PaymentURL       string                `json:"payment_url,omitempty"`
	Guest            GuestDTO              `json:"guest"`
	TotalCents       int64                 `json:"total_cents"`
	CancelReason     string                `json:"cancel_reason,omitempty"`
	Lines            []BookingLineResponse `json:"lines"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	out := BookingResponse{
		ID:               b.ID.String(),
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		Guest:            GuestDTO(b.Guest),
		TotalCents:       b.TotalCents,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}

	if b.HoldID != nil {
		out.HoldID = b.HoldID.String()
	}

	for _, l := range b.Lines {
		out.Lines = append(out.Lines, BookingLineResponse{
			ResourceID: l.ResourceID,
			From:       domain.DayKey(l.Range.From),
			To:         domain.DayKey(l.Range.To),
			Quantity:   l.Quantity,
		})
	}

	return out
}

type DayAvailabilityResponse struct {
	Date      string `json:"date"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Blocked   int    `json:"blocked"`
	Held      int    `json:"held"`
	Remaining int    `json:"remaining"`
}

type AvailabilityResponse struct {
	ResourceID string                    `json:"resource_id"`
	From       string                    `json:"from"`
	To         string                    `json:"to"`
	Quantity   int                       `json:"quantity"`
	Available  bool                      `json:"available"`
	Days       []DayAvailabilityResponse `json:"days"`
}

func toAvailabilityResponse(a *domain.Availability) AvailabilityResponse {
	out := AvailabilityResponse{
		ResourceID: a.ResourceID,
		From:       domain.DayKey(a.Range.From),
		To:         domain.DayKey(a.Range.To),
		Quantity:   a.Quantity,
		Available:  a.Available,
		Days:       make([]DayAvailabilityResponse, 0, len(a.Days)),
	}

	for _, d := range a.Days {
		out.Days = append(out.Days, DayAvailabilityResponse{
			Date:      domain.DayKey(d.Date),
			Capacity:  d.Capacity,
			Booked:    d.Booked,
			Blocked:   d.Blocked,
			Held:      d.Held,
			Remaining: d.Remaining,
		})
	}

	return out
}

type CalendarDayResponse struct {
	Date      string `json:"date"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Blocked   int    `json:"blocked"`
	Available int    `json:"available"`
}

func toCalendarResponse(days []domain.CalendarDay) []CalendarDayResponse {
	out := make([]CalendarDayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, CalendarDayResponse{
			Date:      domain.DayKey(d.Date),
			Capacity:  d.Capacity,
			Booked:    d.Booked,
			Blocked:   d.Blocked,
			Available: d.Available,
		})
	}
	return out
}

type LedgerEntryResponse struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Delta     int       `json:"delta"`
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	Reverses  *int64    `json:"reverses,omitempty"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

type LedgerResponse struct {
	ResourceID string                `json:"resource_id"`
	From       string                `json:"from"`
	To         string                `json:"to"`
	Net        int                   `json:"net"`
	Entries    []LedgerEntryResponse `json:"entries"`
}

func toLedgerResponse(l *calendar.Ledger) LedgerResponse {
	out := LedgerResponse{
		ResourceID: l.ResourceID,
		From:       domain.DayKey(l.Range.From),
		To:         domain.DayKey(l.Range.To),
		Net:        l.Net,
		Entries:    make([]LedgerEntryResponse, 0, len(l.Entries)),
	}

	for _, e := range l.Entries {
		out.Entries = append(out.Entries, LedgerEntryResponse{
			ID:        e.ID,
			Date:      domain.DayKey(e.Date),
			Delta:     e.Delta,
			Kind:      string(e.Kind),
			Reference: e.Reference.String(),
			Reverses:  e.Reverses,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt,
		})
	}

	return out
}

type AdjustmentResponse struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resource_id"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Quantity   int        `json:"quantity"`
	Reason     string     `json:"reason,omitempty"`
	ActorID    string     `json:"actor_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ReversedAt *time.Time `json:"reversed_at,omitempty"`
}

func toAdjustmentResponse(a *domain.Adjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:         a.ID.String(),
		ResourceID: a.ResourceID,
		From:       domain.DayKey(a.Range.From),
		To:         domain.DayKey(a.Range.To),
		Quantity:   a.Quantity,
		Reason:     a.Reason,
		ActorID:    a.ActorID,
		CreatedAt:  a.CreatedAt,
		ReversedAt: a.ReversedAt,
	}
}

type ResourceResponse struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResourceResponse(r *domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:         r.ID,
		ProviderID: r.ProviderID,
		Name:       r.Name,
		Capacity:   r.Capacity,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}
}

type ReconcileResponse struct {
	Booking       BookingResponse `json:"booking"`
	GatewayStatus string          `json:"gateway_status"`
}
