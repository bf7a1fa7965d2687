package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

// bookingTools holds the booking client and implements all tool handlers
type bookingTools struct {
	client     *booking.Client
	restaurant string
}

func (t *bookingTools) restaurantOr(name string) string {
	if name != "" {
		return name
	}
	return t.restaurant
}

// SearchAvailability tool - lists time slots for a date
type SearchAvailabilityInput struct {
	Date       string `json:"date" jsonschema:"Visit date in YYYY-MM-DD format"`
	PartySize  int    `json:"partySize" jsonschema:"Number of guests (1-8)"`
	Restaurant string `json:"restaurant,omitempty" jsonschema:"Restaurant microsite name (optional)"`
}

type SlotEntry struct {
	Time         string `json:"time" jsonschema:"Slot time as sent by the API"`
	Label        string `json:"label" jsonschema:"Slot time as HH:MM"`
	Sitting      string `json:"sitting" jsonschema:"lunch or dinner"`
	Available    bool   `json:"available" jsonschema:"Whether the slot can seat the party"`
	MaxPartySize int    `json:"maxPartySize" jsonschema:"Largest party the slot accepts"`
}

type SearchAvailabilityOutput struct {
	Date      string      `json:"date" jsonschema:"Visit date searched"`
	PartySize int         `json:"partySize" jsonschema:"Party size searched"`
	Slots     []SlotEntry `json:"slots" jsonschema:"Time slots on that date"`
}

func (t *bookingTools) SearchAvailability(ctx context.Context, req *mcp.CallToolRequest, input SearchAvailabilityInput) (*mcp.CallToolResult, SearchAvailabilityOutput, error) {
	result, err := t.client.Availability.Search(ctx, &booking.SearchParams{
		Restaurant: t.restaurantOr(input.Restaurant),
		VisitDate:  input.Date,
		PartySize:  input.PartySize,
	})
	if err != nil {
		return nil, SearchAvailabilityOutput{}, fmt.Errorf("failed to search availability: %w", err)
	}

	slots := make([]SlotEntry, 0, len(result.AvailableSlots))
	for _, s := range result.AvailableSlots {
		slots = append(slots, SlotEntry{
			Time:         string(s.Time),
			Label:        s.Time.Label(),
			Sitting:      string(s.Time.Sitting()),
			Available:    s.Fits(input.PartySize),
			MaxPartySize: s.Capacity(),
		})
	}

	return nil, SearchAvailabilityOutput{
		Date:      input.Date,
		PartySize: input.PartySize,
		Slots:     slots,
	}, nil
}

// BookingOutput is the booking shape returned by every booking tool
type BookingOutput struct {
	Reference          string `json:"reference" jsonschema:"Booking reference"`
	Status             string `json:"status" jsonschema:"Booking status"`
	Date               string `json:"date" jsonschema:"Visit date (YYYY-MM-DD)"`
	Time               string `json:"time" jsonschema:"Visit time (HH:MM)"`
	Sitting            string `json:"sitting" jsonschema:"lunch or dinner"`
	PartySize          int    `json:"partySize" jsonschema:"Number of guests"`
	SpecialRequests    string `json:"specialRequests,omitempty" jsonschema:"Special requests"`
	CustomerName       string `json:"customerName,omitempty" jsonschema:"Customer full name"`
	CustomerEmail      string `json:"customerEmail,omitempty" jsonschema:"Customer email"`
	CustomerMobile     string `json:"customerMobile,omitempty" jsonschema:"Customer mobile number"`
	CancellationReason string `json:"cancellationReason,omitempty" jsonschema:"Why the booking was cancelled"`
}

func toBookingOutput(b *booking.Booking) BookingOutput {
	out := BookingOutput{
		Reference:       b.BookingReference,
		Status:          b.Status,
		Date:            b.VisitDate.String(),
		Time:            b.VisitTime.Label(),
		Sitting:         string(b.VisitTime.Sitting()),
		PartySize:       b.PartySize,
		SpecialRequests: b.SpecialRequests,
	}
	if b.Customer != nil {
		out.CustomerName = b.Customer.FirstName + " " + b.Customer.Surname
		out.CustomerEmail = b.Customer.Email
		out.CustomerMobile = b.Customer.Mobile
	}
	if b.CancellationReason != nil {
		out.CancellationReason = b.CancellationReason.Reason
	}
	return out
}

// GetBooking tool - looks up a booking by reference
type GetBookingInput struct {
	Reference  string `json:"reference" jsonschema:"Booking reference (case-insensitive)"`
	Restaurant string `json:"restaurant,omitempty" jsonschema:"Restaurant microsite name (optional)"`
}

func (t *bookingTools) GetBooking(ctx context.Context, req *mcp.CallToolRequest, input GetBookingInput) (*mcp.CallToolResult, BookingOutput, error) {
	b, err := t.client.Bookings.Get(ctx, t.restaurantOr(input.Restaurant), input.Reference)
	if err != nil {
		return nil, BookingOutput{}, fmt.Errorf("failed to get booking: %w", err)
	}
	return nil, toBookingOutput(b), nil
}

// CreateBooking tool - books a table
type CreateBookingInput struct {
	Date            string `json:"date" jsonschema:"Visit date in YYYY-MM-DD format"`
	Time            string `json:"time" jsonschema:"Visit time as returned by search_availability"`
	PartySize       int    `json:"partySize" jsonschema:"Number of guests (1-8)"`
	FirstName       string `json:"firstName" jsonschema:"Customer first name"`
	Surname         string `json:"surname" jsonschema:"Customer surname"`
	Email           string `json:"email" jsonschema:"Customer email"`
	Mobile          string `json:"mobile" jsonschema:"Customer mobile number"`
	SpecialRequests string `json:"specialRequests,omitempty" jsonschema:"Special requests (optional)"`
	Restaurant      string `json:"restaurant,omitempty" jsonschema:"Restaurant microsite name (optional)"`
}

func (t *bookingTools) CreateBooking(ctx context.Context, req *mcp.CallToolRequest, input CreateBookingInput) (*mcp.CallToolResult, BookingOutput, error) {
	b, err := t.client.Bookings.Create(ctx, &booking.CreateBookingParams{
		Restaurant:      t.restaurantOr(input.Restaurant),
		VisitDate:       input.Date,
		VisitTime:       booking.TimeOfDay(input.Time),
		PartySize:       input.PartySize,
		SpecialRequests: input.SpecialRequests,
		Customer: booking.Customer{
			FirstName: input.FirstName,
			Surname:   input.Surname,
			Email:     input.Email,
			Mobile:    input.Mobile,
		},
	})
	if err != nil {
		return nil, BookingOutput{}, fmt.Errorf("failed to create booking: %w", err)
	}
	return nil, toBookingOutput(b), nil
}

// UpdateBooking tool - changes an existing booking
type UpdateBookingInput struct {
	Reference       string  `json:"reference" jsonschema:"Booking reference"`
	Date            string  `json:"date,omitempty" jsonschema:"New visit date (optional)"`
	Time            string  `json:"time,omitempty" jsonschema:"New visit time (optional)"`
	PartySize       int     `json:"partySize,omitempty" jsonschema:"New party size (optional)"`
	SpecialRequests *string `json:"specialRequests,omitempty" jsonschema:"New special requests (optional)"`
	Restaurant      string  `json:"restaurant,omitempty" jsonschema:"Restaurant microsite name (optional)"`
}

func (t *bookingTools) UpdateBooking(ctx context.Context, req *mcp.CallToolRequest, input UpdateBookingInput) (*mcp.CallToolResult, BookingOutput, error) {
	restaurant := t.restaurantOr(input.Restaurant)

	current, err := t.client.Bookings.Get(ctx, restaurant, input.Reference)
	if err != nil {
		return nil, BookingOutput{}, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := current.Editable(); err != nil {
		return nil, BookingOutput{}, err
	}

	params := &booking.UpdateBookingParams{
		Restaurant:      restaurant,
		Reference:       current.BookingReference,
		VisitDate:       current.VisitDate.String(),
		VisitTime:       current.VisitTime,
		PartySize:       current.PartySize,
		SpecialRequests: current.SpecialRequests,
	}
	if input.Date != "" {
		params.VisitDate = input.Date
	}
	if input.Time != "" {
		params.VisitTime = booking.TimeOfDay(input.Time)
	}
	if input.PartySize > 0 {
		params.PartySize = input.PartySize
	}
	if input.SpecialRequests != nil {
		params.SpecialRequests = *input.SpecialRequests
	}

	b, err := t.client.Bookings.Update(ctx, params)
	if err != nil {
		return nil, BookingOutput{}, fmt.Errorf("failed to update booking: %w", err)
	}
	return nil, toBookingOutput(b), nil
}

// CancelBooking tool - cancels a booking
type CancelBookingInput struct {
	Reference  string `json:"reference" jsonschema:"Booking reference"`
	ReasonID   int    `json:"reasonId" jsonschema:"Cancellation reason id from list_cancellation_reasons"`
	Restaurant string `json:"restaurant,omitempty" jsonschema:"Restaurant microsite name (optional)"`
}

func (t *bookingTools) CancelBooking(ctx context.Context, req *mcp.CallToolRequest, input CancelBookingInput) (*mcp.CallToolResult, BookingOutput, error) {
	b, err := t.client.Bookings.Cancel(ctx, &booking.CancelBookingParams{
		Restaurant: t.restaurantOr(input.Restaurant),
		Reference:  input.Reference,
		ReasonID:   input.ReasonID,
	})
	if err != nil {
		return nil, BookingOutput{}, fmt.Errorf("failed to cancel booking: %w", err)
	}

	out := toBookingOutput(b)
	if out.Reference == "" {
		out.Reference = booking.NormalizeReference(input.Reference)
	}
	return nil, out, nil
}

// ListCancellationReasons tool - lists accepted reason ids
type ListCancellationReasonsInput struct{}

type ReasonEntry struct {
	ID     int    `json:"id" jsonschema:"Reason id"`
	Reason string `json:"reason" jsonschema:"Reason label"`
}

type ListCancellationReasonsOutput struct {
	Reasons []ReasonEntry `json:"reasons" jsonschema:"Accepted cancellation reasons"`
}

func (t *bookingTools) ListCancellationReasons(ctx context.Context, req *mcp.CallToolRequest, input ListCancellationReasonsInput) (*mcp.CallToolResult, ListCancellationReasonsOutput, error) {
	var out ListCancellationReasonsOutput
	for _, r := range booking.CancellationReasons() {
		out.Reasons = append(out.Reasons, ReasonEntry{ID: r.ID, Reason: r.Reason})
	}
	return nil, out, nil
}
