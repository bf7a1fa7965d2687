package booking

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/eshaffer321/tablebook-go/internal/transport"
	internalTypes "github.com/eshaffer321/tablebook-go/internal/types"
)

// bookingService implements the BookingService interface
type bookingService struct {
	client *Client
}

// Create books a table after confirming the slot is still open
func (s *bookingService) Create(ctx context.Context, params *CreateBookingParams) (*Booking, error) {
	if params == nil {
		return nil, errors.Wrap(ErrValidation, "booking params are required")
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if _, err := s.client.Availability.Verify(ctx, &SearchParams{
		Restaurant: params.Restaurant,
		VisitDate:  params.VisitDate,
		PartySize:  params.PartySize,
	}, params.VisitTime); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("VisitDate", params.VisitDate)
	form.Set("VisitTime", string(params.VisitTime))
	form.Set("PartySize", strconv.Itoa(params.PartySize))
	form.Set("ChannelCode", internalTypes.ChannelCode)
	form.Set("SpecialRequests", params.SpecialRequests)
	form.Set("Customer[FirstName]", params.Customer.FirstName)
	form.Set("Customer[Surname]", params.Customer.Surname)
	form.Set("Customer[Email]", params.Customer.Email)
	form.Set("Customer[Mobile]", params.Customer.Mobile)

	var result Booking
	err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   restaurantPath(params.Restaurant, "BookingWithStripeToken"),
		Form:   form,
	}, &result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create booking")
	}

	return &result, nil
}

// Get retrieves a booking by reference
func (s *bookingService) Get(ctx context.Context, restaurant, reference string) (*Booking, error) {
	reference = NormalizeReference(reference)
	if restaurant == "" || reference == "" {
		return nil, errors.Wrap(ErrValidation, "restaurant and booking reference are required")
	}

	var result Booking
	err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   restaurantPath(restaurant, "Booking", url.PathEscape(reference)),
	}, &result)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get booking %s", reference)
	}

	return &result, nil
}

// Update changes the date, time, party size or special requests of a booking
func (s *bookingService) Update(ctx context.Context, params *UpdateBookingParams) (*Booking, error) {
	if params == nil {
		return nil, errors.Wrap(ErrValidation, "update params are required")
	}
	params.Reference = NormalizeReference(params.Reference)
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if _, err := s.client.Availability.Verify(ctx, &SearchParams{
		Restaurant: params.Restaurant,
		VisitDate:  params.VisitDate,
		PartySize:  params.PartySize,
	}, params.VisitTime); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("VisitDate", params.VisitDate)
	form.Set("VisitTime", string(params.VisitTime))
	form.Set("PartySize", strconv.Itoa(params.PartySize))
	form.Set("SpecialRequests", params.SpecialRequests)

	var result Booking
	err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPatch,
		Path:   restaurantPath(params.Restaurant, "Booking", url.PathEscape(params.Reference)),
		Form:   form,
	}, &result)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update booking %s", params.Reference)
	}

	return &result, nil
}

// Cancel cancels a booking with the given reason id
func (s *bookingService) Cancel(ctx context.Context, params *CancelBookingParams) (*Booking, error) {
	if params == nil {
		return nil, errors.Wrap(ErrValidation, "cancel params are required")
	}
	params.Reference = NormalizeReference(params.Reference)
	if err := validateParams(params); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("micrositeName", params.Restaurant)
	form.Set("bookingReference", params.Reference)
	form.Set("cancellationReasonId", strconv.Itoa(params.ReasonID))

	var result Booking
	err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   restaurantPath(params.Restaurant, "Booking", url.PathEscape(params.Reference), "Cancel"),
		Form:   form,
	}, &result)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to cancel booking %s", params.Reference)
	}

	return &result, nil
}
