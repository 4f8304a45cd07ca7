// Command availcheck asks a running rentbook gRPC server whether an item is
// free for a date range and, optionally, what the booking would cost.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rentbook/internal/api"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(); err != nil {
		logger.Error().Err(err).Msg("availability check failed")
		os.Exit(1)
	}
}

func run() error {
	var (
		addr    = flag.String("addr", "localhost:8081", "gRPC address of the rentbook API")
		itemID  = flag.String("item", "", "item id")
		from    = flag.String("from", "", "first day, YYYY-MM-DD")
		to      = flag.String("to", "", "last day, YYYY-MM-DD")
		exclude = flag.String("exclude", "", "booking id to ignore when checking")
		quote   = flag.Bool("quote", false, "also print the price quote")
		timeout = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	if *itemID == "" || *from == "" || *to == "" {
		flag.Usage()
		return fmt.Errorf("-item, -from and -to are required")
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if key := os.Getenv("RENTBOOK_API_KEY"); key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", key, "x-api-extra", os.Getenv("RENTBOOK_API_EXTRA"))
	}

	fields := map[string]any{"item_id": *itemID, "start_date": *from, "end_date": *to}
	if *exclude != "" {
		fields["exclude_booking_id"] = *exclude
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}

	client := api.NewAvailabilityClient(conn)
	resp, err := client.CheckAvailability(ctx, req)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if err := printStruct("availability", resp); err != nil {
		return err
	}

	if !*quote {
		return nil
	}
	resp, err = client.QuoteBooking(ctx, req)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	return printStruct("quote", resp)
}

func printStruct(label string, s *structpb.Struct) error {
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Printf("%s:\n%s\n", label, out)
	return nil
}
