package booking

import (
	"github.com/pkg/errors"

	"github.com/eshaffer321/tablebook-go/internal/auth"
	internalTypes "github.com/eshaffer321/tablebook-go/internal/types"
)

// MaxPartySize is the largest party the booking flow accepts
const MaxPartySize = 8

// Session is the client-held authentication state
type Session = internalTypes.Session

// UserType is the role attached to a session
type UserType = internalTypes.UserType

const (
	UserTypeCustomer   = internalTypes.UserTypeCustomer
	UserTypeRestaurant = internalTypes.UserTypeRestaurant
)

// Profile is the account returned by the /auth/me endpoint
type Profile = auth.Profile

// Slot represents one bookable time on a date
type Slot struct {
	Time            TimeOfDay `json:"time"`
	Available       bool      `json:"available"`
	MaxPartySize    int       `json:"max_party_size,omitempty"`
	CurrentBookings int       `json:"current_bookings"`
}

// Capacity returns the slot's party limit, defaulting to MaxPartySize
func (s Slot) Capacity() int {
	if s.MaxPartySize > 0 {
		return s.MaxPartySize
	}
	return MaxPartySize
}

// Fits reports whether the slot is open for a party of the given size
func (s Slot) Fits(partySize int) bool {
	return s.Available && partySize <= s.Capacity()
}

// Availability is the result of an availability search
type Availability struct {
	Restaurant     string `json:"restaurant,omitempty"`
	RestaurantID   int    `json:"restaurant_id,omitempty"`
	VisitDate      Date   `json:"visit_date"`
	PartySize      int    `json:"party_size"`
	ChannelCode    string `json:"channel_code,omitempty"`
	AvailableSlots []Slot `json:"available_slots"`
	TotalSlots     int    `json:"total_slots,omitempty"`
}

// Open returns the slots that can seat the searched party
func (a *Availability) Open() []Slot {
	slots := make([]Slot, 0, len(a.AvailableSlots))
	for _, s := range a.AvailableSlots {
		if s.Fits(a.PartySize) {
			slots = append(slots, s)
		}
	}
	return slots
}

// Customer is the person a booking is held for
type Customer struct {
	FirstName string `json:"first_name" validate:"required"`
	Surname   string `json:"surname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"required"`
}

// CancellationReason explains why a booking was cancelled
type CancellationReason struct {
	ID          int    `json:"id"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}

// Booking represents a reservation
type Booking struct {
	BookingReference   string              `json:"booking_reference"`
	Restaurant         string              `json:"restaurant,omitempty"`
	VisitDate          Date                `json:"visit_date"`
	VisitTime          TimeOfDay           `json:"visit_time"`
	PartySize          int                 `json:"party_size"`
	Status             string              `json:"status"`
	SpecialRequests    string              `json:"special_requests,omitempty"`
	Customer           *Customer           `json:"customer,omitempty"`
	CancellationReason *CancellationReason `json:"cancellation_reason,omitempty"`
	CreatedAt          string              `json:"created_at,omitempty"`
	UpdatedAt          string              `json:"updated_at,omitempty"`
}

// Cancelled reports whether the booking has been cancelled
func (b *Booking) Cancelled() bool {
	return b.Status == "cancelled" || b.CancellationReason != nil
}

// Editable returns ErrBookingCancelled for a cancelled booking
func (b *Booking) Editable() error {
	if b.Cancelled() {
		return errors.Wrapf(ErrBookingCancelled, "booking %s cannot be changed", b.BookingReference)
	}
	return nil
}

// SearchParams for availability searches
type SearchParams struct {
	Restaurant string `validate:"required"`
	VisitDate  string `validate:"required,datetime=2006-01-02,notpast"`
	PartySize  int    `validate:"min=1,max=8"`
}

// CreateBookingParams for creating a booking
type CreateBookingParams struct {
	Restaurant      string    `validate:"required"`
	VisitDate       string    `validate:"required,datetime=2006-01-02,notpast"`
	VisitTime       TimeOfDay `validate:"required,timeofday"`
	PartySize       int       `validate:"min=1,max=8"`
	SpecialRequests string
	Customer        Customer
}

// UpdateBookingParams for changing a booking's date, time, party or requests
type UpdateBookingParams struct {
	Restaurant      string    `validate:"required"`
	Reference       string    `validate:"required"`
	VisitDate       string    `validate:"required,datetime=2006-01-02,notpast"`
	VisitTime       TimeOfDay `validate:"required,timeofday"`
	PartySize       int       `validate:"min=1,max=8"`
	SpecialRequests string
}

// CancelBookingParams for cancelling a booking
type CancelBookingParams struct {
	Restaurant string `validate:"required"`
	Reference  string `validate:"required"`
	ReasonID   int    `validate:"min=1,max=5"`
}

// Credentials for login
type Credentials struct {
	Email    string   `validate:"required,email"`
	Password string   `validate:"required"`
	UserType UserType `validate:"required,oneof=customer restaurant"`
}

// RegisterParams for creating an account.
// Customers supply FirstName and Surname, restaurants supply Name.
type RegisterParams struct {
	Email     string   `validate:"required,email"`
	Password  string   `validate:"required"`
	UserType  UserType `validate:"required,oneof=customer restaurant"`
	FirstName string   `validate:"required_if=UserType customer"`
	Surname   string   `validate:"required_if=UserType customer"`
	Name      string   `validate:"required_if=UserType restaurant"`
}
