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

// availabilityService implements the AvailabilityService interface
type availabilityService struct {
	client *Client
}

func restaurantPath(name string, parts ...string) string {
	path := "/Restaurant/" + url.PathEscape(name)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

// Search lists the time slots for a date and party size
func (s *availabilityService) Search(ctx context.Context, params *SearchParams) (*Availability, error) {
	if params == nil {
		return nil, errors.Wrap(ErrValidation, "search params are required")
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("VisitDate", params.VisitDate)
	form.Set("PartySize", strconv.Itoa(params.PartySize))
	form.Set("ChannelCode", internalTypes.ChannelCode)

	var result Availability
	err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   restaurantPath(params.Restaurant, "AvailabilitySearch"),
		Form:   form,
	}, &result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search availability")
	}

	if result.PartySize == 0 {
		result.PartySize = params.PartySize
	}

	return &result, nil
}

// Verify re-checks that a time can seat the party
func (s *availabilityService) Verify(ctx context.Context, params *SearchParams, at TimeOfDay) (*Slot, error) {
	availability, err := s.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	for _, slot := range availability.AvailableSlots {
		if !slot.Time.Same(at) {
			continue
		}
		if !slot.Fits(params.PartySize) {
			return nil, errors.Wrapf(ErrSlotUnavailable, "%s at %s for %d", params.VisitDate, at.Label(), params.PartySize)
		}
		found := slot
		return &found, nil
	}

	return nil, errors.Wrapf(ErrSlotNotFound, "%s at %s", params.VisitDate, at.Label())
}
