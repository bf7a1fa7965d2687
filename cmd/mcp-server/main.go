package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/tablebook-go/internal/bootstrap"
	"github.com/eshaffer321/tablebook-go/internal/config"
	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("TABLEBOOK_CONFIG"), "")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := bootstrap.Logger(cfg, "tablebook-mcp")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	client, cleanup, err := bootstrap.Client(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize booking client: %v", err)
	}
	defer cleanup()

	if err := signIn(ctx, client); err != nil {
		log.Fatalf("failed to sign in: %v", err)
	}

	impl := &mcp.Implementation{
		Name:    "tablebook",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, client, cfg.API.Restaurant)

	// Run server over stdio transport (for Claude Desktop)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Printf("server error: %v", err)
	}
}

// signIn uses TABLEBOOK_TOKEN, then the stored session, then TABLEBOOK_EMAIL and TABLEBOOK_PASSWORD
func signIn(ctx context.Context, client *booking.Client) error {
	if token := os.Getenv("TABLEBOOK_TOKEN"); token != "" {
		client.SetToken(token)
		return nil
	}
	if client.Auth.IsAuthenticated() {
		return nil
	}

	email, password := os.Getenv("TABLEBOOK_EMAIL"), os.Getenv("TABLEBOOK_PASSWORD")
	if email == "" || password == "" {
		return booking.ErrNotAuthenticated
	}
	_, err := client.Auth.Login(ctx, &booking.Credentials{
		Email:    email,
		Password: password,
		UserType: booking.UserType(os.Getenv("TABLEBOOK_USER_TYPE")),
	})
	return err
}

func registerTools(server *mcp.Server, client *booking.Client, restaurant string) {
	tools := &bookingTools{client: client, restaurant: restaurant}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_availability",
		Description: "Search available booking times for a date and party size. Returns each time slot with its sitting (lunch or dinner) and whether it can seat the party.",
	}, tools.SearchAvailability)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_booking",
		Description: "Get a booking by its reference, including date, time, party size, status, customer details and any cancellation reason.",
	}, tools.GetBooking)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_booking",
		Description: "Book a table. The time must be one returned by search_availability; availability is re-checked before booking.",
	}, tools.CreateBooking)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_booking",
		Description: "Change the date, time, party size or special requests of a booking. Omitted fields keep their current values.",
	}, tools.UpdateBooking)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_booking",
		Description: "Cancel a booking with a reason id from list_cancellation_reasons.",
	}, tools.CancelBooking)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_cancellation_reasons",
		Description: "List the cancellation reasons accepted by cancel_booking.",
	}, tools.ListCancellationReasons)
}
