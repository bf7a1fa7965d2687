package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/tablebook-go/internal/output"
	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

func (a *app) slotsCommand() *cobra.Command {
	var params booking.SearchParams
	var all bool

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List available times for a date and party size",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			params.Restaurant = a.restaurant
			result, err := client.Availability.Search(cmd.Context(), &params)
			if err != nil {
				return err
			}

			slots := result.Open()
			if all {
				slots = result.AvailableSlots
			}
			if len(slots) == 0 {
				a.printer.Warning("No available times on %s for %d", params.VisitDate, params.PartySize)
				return nil
			}

			table := output.NewTable(a.printer.Out(), []string{"Time", "Sitting", "Status", "Max party"})
			for _, s := range slots {
				status := "available"
				if !s.Fits(params.PartySize) {
					status = "full"
				}
				table.AddRow(s.Time.Label(), string(s.Time.Sitting()), a.printer.StatusBadge(status), strconv.Itoa(s.Capacity()))
			}
			return table.Render()
		},
	}

	cmd.Flags().StringVarP(&params.VisitDate, "date", "d", "", "visit date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&params.PartySize, "party", "p", 2, fmt.Sprintf("party size (1-%d)", booking.MaxPartySize))
	cmd.Flags().BoolVar(&all, "all", false, "include times that cannot seat the party")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func (a *app) bookCommand() *cobra.Command {
	var params booking.CreateBookingParams
	var visitTime string

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			params.Restaurant = a.restaurant
			params.VisitTime = booking.TimeOfDay(visitTime)
			result, err := client.Bookings.Create(cmd.Context(), &params)
			if err != nil {
				return err
			}

			a.printer.Success("Booked %s", result.BookingReference)
			a.printBooking(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.VisitDate, "date", "d", "", "visit date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&visitTime, "time", "t", "", "visit time (HH:MM or HH:MM:SS, as listed by 'slots')")
	cmd.Flags().IntVarP(&params.PartySize, "party", "p", 2, fmt.Sprintf("party size (1-%d)", booking.MaxPartySize))
	cmd.Flags().StringVar(&params.SpecialRequests, "requests", "", "special requests")
	cmd.Flags().StringVar(&params.Customer.FirstName, "first-name", "", "customer first name")
	cmd.Flags().StringVar(&params.Customer.Surname, "surname", "", "customer surname")
	cmd.Flags().StringVar(&params.Customer.Email, "email", "", "customer email")
	cmd.Flags().StringVar(&params.Customer.Mobile, "mobile", "", "customer mobile number")

	return cmd
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference>",
		Short: "Show a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			result, err := client.Bookings.Get(cmd.Context(), a.restaurant, args[0])
			if err != nil {
				return err
			}

			a.printBooking(result)
			return nil
		},
	}
}

func (a *app) updateCommand() *cobra.Command {
	var params booking.UpdateBookingParams
	var visitTime string

	cmd := &cobra.Command{
		Use:   "update <reference>",
		Short: "Change the date, time, party size or requests of a booking",
		Long:  `Change a booking. Flags that are not given keep the booking's current values.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			current, err := client.Bookings.Get(cmd.Context(), a.restaurant, args[0])
			if err != nil {
				return err
			}
			if err := current.Editable(); err != nil {
				return err
			}

			params.Restaurant = a.restaurant
			params.Reference = current.BookingReference
			if !cmd.Flags().Changed("date") {
				params.VisitDate = current.VisitDate.String()
			}
			params.VisitTime = booking.TimeOfDay(visitTime)
			if !cmd.Flags().Changed("time") {
				params.VisitTime = current.VisitTime
			}
			if !cmd.Flags().Changed("party") {
				params.PartySize = current.PartySize
			}
			if !cmd.Flags().Changed("requests") {
				params.SpecialRequests = current.SpecialRequests
			}

			result, err := client.Bookings.Update(cmd.Context(), &params)
			if err != nil {
				return err
			}

			a.printer.Success("Updated %s", result.BookingReference)
			a.printBooking(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.VisitDate, "date", "d", "", "new visit date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&visitTime, "time", "t", "", "new visit time")
	cmd.Flags().IntVarP(&params.PartySize, "party", "p", 0, "new party size")
	cmd.Flags().StringVar(&params.SpecialRequests, "requests", "", "new special requests")

	return cmd
}

func (a *app) cancelCommand() *cobra.Command {
	var reasonID int

	cmd := &cobra.Command{
		Use:   "cancel <reference>",
		Short: "Cancel a booking",
		Long:  `Cancel a booking. --reason takes an id from 'tablebook reasons'.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			result, err := client.Bookings.Cancel(cmd.Context(), &booking.CancelBookingParams{
				Restaurant: a.restaurant,
				Reference:  args[0],
				ReasonID:   reasonID,
			})
			if err != nil {
				return err
			}

			a.printer.Success("Cancelled %s", booking.NormalizeReference(args[0]))
			if result.BookingReference != "" {
				a.printBooking(result)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&reasonID, "reason", 0, "cancellation reason id (see 'tablebook reasons')")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func (a *app) reasonsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reasons",
		Short: "List cancellation reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := output.NewTable(a.printer.Out(), []string{"ID", "Reason"})
			for _, r := range booking.CancellationReasons() {
				table.AddRow(strconv.Itoa(r.ID), r.Reason)
			}
			return table.Render()
		},
	}
}

func (a *app) printBooking(b *booking.Booking) {
	a.printer.Header("Booking " + b.BookingReference)
	if b.Status != "" {
		a.printer.Field("Status", a.printer.StatusBadge(b.Status))
	}
	if !b.VisitDate.IsZero() {
		a.printer.Field("Date", b.VisitDate.String())
	}
	if b.VisitTime != "" {
		a.printer.Field("Time", fmt.Sprintf("%s (%s)", b.VisitTime.Label(), b.VisitTime.Sitting()))
	}
	if b.PartySize > 0 {
		a.printer.Field("Party size", strconv.Itoa(b.PartySize))
	}
	if b.Customer != nil {
		a.printer.Field("Name", b.Customer.FirstName+" "+b.Customer.Surname)
		a.printer.Field("Email", b.Customer.Email)
		a.printer.Field("Mobile", b.Customer.Mobile)
	}
	if b.SpecialRequests != "" {
		a.printer.Field("Special requests", b.SpecialRequests)
	}
	if b.CancellationReason != nil {
		a.printer.Field("Cancelled because", b.CancellationReason.Reason)
	}
}
