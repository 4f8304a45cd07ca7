package api

import (
	"context"
	"errors"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	availabilityServiceName = "rentbook.availability.v1.AvailabilityService"
	checkAvailabilityMethod = "/" + availabilityServiceName + "/CheckAvailability"
	quoteBookingMethod      = "/" + availabilityServiceName + "/QuoteBooking"
)

// AvailabilityReader is the read side of the booking engine exposed over gRPC.
type AvailabilityReader interface {
	CheckAvailability(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Availability, error)
	Quote(ctx context.Context, itemID string, r models.DateRange) (*models.Quote, error)
}

// AvailabilityServer is implemented by AvailabilityService. Requests and
// responses are google.protobuf.Struct so no generated stubs are needed.
type AvailabilityServer interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	QuoteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type AvailabilityService struct {
	reader AvailabilityReader
	logger *zerolog.Logger
}

var _ AvailabilityServer = (*AvailabilityService)(nil)

func NewAvailabilityService(reader AvailabilityReader, logger *zerolog.Logger) *AvailabilityService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AvailabilityService{reader: reader, logger: logger}
}

// CheckAvailability expects item_id, start_date, end_date and optionally exclude_booking_id.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, r, err := itemAndRange(req)
	if err != nil {
		return nil, err
	}

	avail, err := s.reader.CheckAvailability(ctx, itemID, r, stringField(req, "exclude_booking_id"))
	if err != nil {
		return nil, s.grpcError(err)
	}

	out := map[string]any{
		"item_id":    avail.ItemID,
		"start_date": avail.StartDate.Format(models.DateLayout),
		"end_date":   avail.EndDate.Format(models.DateLayout),
		"available":  avail.Available,
	}
	if avail.Conflict != nil {
		out["conflict"] = map[string]any{
			"start_date": avail.Conflict.StartDate.Format(models.DateLayout),
			"end_date":   avail.Conflict.EndDate.Format(models.DateLayout),
			"status":     string(avail.Conflict.Status),
		}
	}
	return structpb.NewStruct(out)
}

// QuoteBooking prices a range without reserving it.
func (s *AvailabilityService) QuoteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, r, err := itemAndRange(req)
	if err != nil {
		return nil, err
	}

	q, err := s.reader.Quote(ctx, itemID, r)
	if err != nil {
		return nil, s.grpcError(err)
	}

	return structpb.NewStruct(map[string]any{
		"item_id":      q.ItemID,
		"start_date":   q.StartDate.Format(models.DateLayout),
		"end_date":     q.EndDate.Format(models.DateLayout),
		"total_days":   q.TotalDays,
		"total_amount": q.TotalAmount,
		"tier":         q.Tier,
		"tier_units":   q.TierUnits,
		"tier_rate":    q.TierRate,
		"extra_days":   q.ExtraDays,
		"daily_rate":   q.DailyRate,
	})
}

func itemAndRange(req *structpb.Struct) (string, models.DateRange, error) {
	itemID := stringField(req, "item_id")
	if itemID == "" {
		return "", models.DateRange{}, status.Error(codes.InvalidArgument, "item_id is required")
	}
	r, err := models.ParseDateRange(stringField(req, "start_date"), stringField(req, "end_date"))
	if err != nil {
		return "", models.DateRange{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return itemID, r, nil
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

func (s *AvailabilityService) grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "item not found")
	default:
		s.logger.Error().Err(err).Msg("availability request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkAvailabilityMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).CheckAvailability(ctx, req.(*structpb.Struct))
	})
}

func quoteBookingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).QuoteBooking(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: quoteBookingMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).QuoteBooking(ctx, req.(*structpb.Struct))
	})
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "QuoteBooking", Handler: quoteBookingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentbook/availability/v1/availability.proto",
}

// RegisterAvailabilityServer attaches srv to a gRPC server.
func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

// AvailabilityClient calls AvailabilityService over an existing connection.
type AvailabilityClient struct {
	cc grpc.ClientConnInterface
}

func NewAvailabilityClient(cc grpc.ClientConnInterface) *AvailabilityClient {
	return &AvailabilityClient{cc: cc}
}

func (c *AvailabilityClient) CheckAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, checkAvailabilityMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AvailabilityClient) QuoteBooking(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, quoteBookingMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
