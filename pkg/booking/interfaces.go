package booking

import "context"

// AvailabilityService handles availability searches
type AvailabilityService interface {
	// Search lists the time slots for a date and party size
	Search(ctx context.Context, params *SearchParams) (*Availability, error)

	// Verify re-checks that a time can seat the party. A time that is no longer offered
	// yields ErrSlotNotFound, a full or too small slot ErrSlotUnavailable.
	Verify(ctx context.Context, params *SearchParams, at TimeOfDay) (*Slot, error)
}

// BookingService handles booking operations
type BookingService interface {
	Create(ctx context.Context, params *CreateBookingParams) (*Booking, error)
	Get(ctx context.Context, restaurant, reference string) (*Booking, error)
	Update(ctx context.Context, params *UpdateBookingParams) (*Booking, error)
	Cancel(ctx context.Context, params *CancelBookingParams) (*Booking, error)
}

// AuthService handles authentication
type AuthService interface {
	Login(ctx context.Context, creds *Credentials) (*Session, error)
	Register(ctx context.Context, params *RegisterParams) (*Session, error)

	// Logout is best-effort against the server; the local session is always cleared
	Logout(ctx context.Context)

	CurrentSession() Session
	IsAuthenticated() bool
	Me(ctx context.Context) (*Profile, error)
}
