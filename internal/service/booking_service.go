package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/events"
	"rentbook/internal/metrics"
	"rentbook/internal/models"
	"rentbook/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingOptions tunes the admission rules of CreateBooking.
type BookingOptions struct {
	MaxAdvanceDays int
	StrictPricing  bool
	CreateLimit    int
	CreateWindow   time.Duration
}

type BookingService struct {
	store      domain.BookingStore
	items      domain.ItemCatalog
	cache      domain.CacheRepository
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	opts       BookingOptions
	now        func() time.Time
	logger     *zerolog.Logger
}

var _ domain.BookingService = (*BookingService)(nil)

// NewBookingService wires the lifecycle service. cache, eventBus and syncWorker may be nil.
func NewBookingService(
	store domain.BookingStore,
	items domain.ItemCatalog,
	cache domain.CacheRepository,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if opts.CreateLimit > 0 && opts.CreateWindow <= 0 {
		opts.CreateWindow = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:      store,
		items:      items,
		cache:      cache,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the wall clock used for the booking window.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, in domain.CreateBookingInput) (*models.Booking, error) {
	if in.RenterID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(in.ItemID) == "" {
		return nil, domain.Validationf("item_id is required")
	}

	r, err := models.NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, domain.Validationf("%v", err)
	}
	if err := s.validateWindow(r); err != nil {
		return nil, err
	}
	if in.DepositAmount != nil && *in.DepositAmount < 0 {
		return nil, domain.Validationf("deposit_amount must not be negative")
	}
	if in.ClientAmount != nil && *in.ClientAmount <= 0 {
		return nil, domain.Validationf("total_amount must be positive")
	}

	if err := s.checkCreateLimit(ctx, in.RenterID); err != nil {
		return nil, err
	}

	item, err := s.items.GetItemByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, domain.Validationf("item %s is not available for booking", item.ID)
	}
	if item.OwnerID == in.RenterID {
		return nil, domain.ErrNotAuthorized
	}

	days := pricing.DayCount(r.Start, r.End)
	amount, err := pricing.Calculate(pricing.RatesFromItem(item), days)
	if err != nil {
		return nil, err
	}
	if in.ClientAmount != nil && *in.ClientAmount != amount {
		if s.opts.StrictPricing {
			return nil, domain.Validationf("total_amount %d does not match computed price %d", *in.ClientAmount, amount)
		}
		s.logger.Warn().
			Str("item_id", item.ID).
			Str("renter_id", in.RenterID).
			Int64("computed", amount).
			Int64("client", *in.ClientAmount).
			Msg("client amount overrides computed price")
		metrics.IncPriceOverride()
		amount = *in.ClientAmount
	}

	booking := &models.Booking{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		RenterID:      in.RenterID,
		OwnerID:       item.OwnerID,
		StartDate:     r.Start,
		EndDate:       r.End,
		TotalDays:     days,
		TotalAmount:   amount,
		DepositAmount: in.DepositAmount,
		Status:        models.StatusPending,
		Notes:         strings.TrimSpace(in.Notes),
	}

	if err := s.store.CreateBookingWithLock(ctx, booking); err != nil {
		if errors.Is(err, domain.ErrDateConflict) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("item_id", booking.ItemID).
		Str("range", r.String()).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, "", models.Actor{UserID: in.RenterID}, models.RoleRenter)
	s.enqueueSync(ctx, booking, models.SyncTaskUpsert)

	return booking, nil
}

func (s *BookingService) validateWindow(r models.DateRange) error {
	today := models.TruncateDay(s.now().UTC())
	if r.Start.Before(today) {
		return domain.Validationf("start_date must not be in the past")
	}
	if r.Start.After(today.AddDate(0, 0, s.opts.MaxAdvanceDays)) {
		return domain.Validationf("start_date must be within %d days", s.opts.MaxAdvanceDays)
	}
	return nil
}

// checkCreateLimit throttles booking requests per renter. Cache errors fail open.
func (s *BookingService) checkCreateLimit(ctx context.Context, renterID string) error {
	if s.cache == nil || s.opts.CreateLimit <= 0 {
		return nil
	}
	allowed, err := s.cache.CheckRateLimit(ctx, "create:"+renterID, s.opts.CreateLimit, s.opts.CreateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("renter_id", renterID).Msg("create rate limit check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

// GetBooking returns the booking to one of its parties or an arbiter.
func (s *BookingService) GetBooking(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.RoleOf(actor) == models.RoleNone {
		return nil, domain.ErrNotAuthorized
	}
	return b, nil
}

// Transition moves a booking along the status graph on behalf of actor.
func (s *BookingService) Transition(ctx context.Context, id string, actor models.Actor, target models.BookingStatus, notes string) (*models.Booking, error) {
	if !target.IsValid() {
		return nil, domain.Validationf("unknown status %q", target)
	}

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	role := b.RoleOf(actor)
	if role == models.RoleNone {
		metrics.IncTransitionRejected("not_a_party")
		return nil, domain.ErrNotAuthorized
	}

	from := b.Status
	if err := CheckTransition(from, target, role); err != nil {
		metrics.IncTransitionRejected(rejectionReason(err))
		return nil, err
	}

	merged := appendNotes(b.Notes, notes)
	if err := s.store.UpdateBookingStatusWithVersion(ctx, id, b.Version, target, merged); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			metrics.IncTransitionRejected("concurrent_modification")
		}
		return nil, err
	}

	b.Status = target
	b.Notes = merged
	b.Version++
	b.UpdatedAt = s.now().UTC()

	metrics.IncTransition(string(from), string(target))
	s.logger.Info().
		Str("booking_id", b.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor_role", string(role)).
		Msg("booking status changed")

	s.publishEvent(events.EventBookingStatusChanged, b, from, actor, role)
	s.enqueueSync(ctx, b, models.SyncTaskUpdateStatus)

	return b, nil
}

// Rate attaches the renter's rating to a completed booking. The status is left as is.
func (s *BookingService) Rate(ctx context.Context, id string, actor models.Actor, rating int, feedback string) (*models.Booking, error) {
	if err := ValidateRatingValue(rating); err != nil {
		return nil, err
	}

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	role := b.RoleOf(actor)
	if err := CheckRating(b, role, rating); err != nil {
		return nil, err
	}

	feedback = strings.TrimSpace(feedback)
	if err := s.store.SetBookingRatingWithVersion(ctx, id, b.Version, rating, feedback); err != nil {
		return nil, err
	}

	b.Rating = &rating
	b.Feedback = feedback
	b.Version++
	b.UpdatedAt = s.now().UTC()

	metrics.IncRating()
	s.publishEvent(events.EventBookingRated, b, "", actor, role)
	s.enqueueSync(ctx, b, models.SyncTaskUpsert)

	return b, nil
}

// ListBookings pages through a user's bookings, newest start date first.
func (s *BookingService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int, error) {
	if filter.UserID == "" {
		return nil, 0, domain.ErrUnauthenticated
	}
	if filter.Perspective == "" {
		filter.Perspective = models.PerspectiveBoth
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.Validationf("unknown status %q", filter.Status)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = models.DefaultPageSize
	case filter.Limit > models.MaxPageSize:
		filter.Limit = models.MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListUserBookings(ctx, filter)
}

// ExportBookings returns every booking of the user without paging.
func (s *BookingService) ExportBookings(ctx context.Context, userID string, perspective models.Perspective) ([]*models.Booking, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if perspective == "" {
		perspective = models.PerspectiveBoth
	}
	bookings, _, err := s.store.ListUserBookings(ctx, models.BookingFilter{UserID: userID, Perspective: perspective})
	return bookings, err
}

func (s *BookingService) GetStats(ctx context.Context, userID string, perspective models.Perspective) (*models.BookingStats, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if perspective == "" {
		perspective = models.PerspectiveBoth
	}

	counts, err := s.store.GetUserBookingStats(ctx, userID, perspective)
	if err != nil {
		return nil, err
	}

	stats := &models.BookingStats{
		UserID:      userID,
		Perspective: perspective,
		ByStatus:    make(map[models.BookingStatus]int, len(models.AllStatuses)),
	}
	for _, st := range models.AllStatuses {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats, nil
}

func (s *BookingService) CheckAvailability(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Availability, error) {
	if _, err := s.items.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	conflict, err := s.store.FindConflict(ctx, itemID, r, excludeBookingID)
	if err != nil {
		return nil, err
	}

	return &models.Availability{
		ItemID:    itemID,
		StartDate: r.Start,
		EndDate:   r.End,
		Available: conflict == nil,
		Conflict:  conflict,
	}, nil
}

func (s *BookingService) Quote(ctx context.Context, itemID string, r models.DateRange) (*models.Quote, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return pricing.Quote(item, r)
}

// Ping reports whether the booking store is reachable.
func (s *BookingService) Ping(ctx context.Context) error {
	return s.store.PingContext(ctx)
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, from models.BookingStatus, actor models.Actor, role models.Role) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   b.ID,
		ItemID:      b.ItemID,
		RenterID:    b.RenterID,
		OwnerID:     b.OwnerID,
		Status:      string(b.Status),
		FromStatus:  string(from),
		StartDate:   b.StartDate.Format(models.DateLayout),
		EndDate:     b.EndDate.Format(models.DateLayout),
		TotalAmount: b.TotalAmount,
		ActorID:     actor.UserID,
		ActorRole:   string(role),
	}
	if b.Rating != nil {
		payload.Rating = *b.Rating
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, b *models.Booking, taskType string) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, taskType, b); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}

func appendNotes(existing, added string) string {
	added = strings.TrimSpace(added)
	switch {
	case added == "":
		return existing
	case existing == "":
		return added
	default:
		return existing + "\n" + added
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	default:
		return "other"
	}
}
