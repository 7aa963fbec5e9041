package usecase

import (
	"context"
	"sort"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory repository implementations backing the service tests. Status
// guards behave like the SQL they replace: compare-and-swap on the stored
// row's current status.

type memCartRepo struct {
	carts map[uuid.UUID]*entity.Cart
}

func (r *memCartRepo) Create(_ context.Context, cart *entity.Cart) error {
	r.carts[cart.ID] = cart
	return nil
}

func (r *memCartRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Cart, error) {
	return r.carts[id], nil
}

func (r *memCartRepo) FindOpenByUserID(_ context.Context, userID uuid.UUID) (*entity.Cart, error) {
	for _, cart := range r.carts {
		if cart.UserID == userID && cart.Status == entity.CartStatusOpen {
			return cart, nil
		}
	}
	return nil, nil
}

func (r *memCartRepo) UpdateStatusExpect(_ context.Context, id uuid.UUID, from, to entity.CartStatus) (bool, error) {
	cart, ok := r.carts[id]
	if !ok || cart.Status != from {
		return false, nil
	}
	cart.Status = to
	return true, nil
}

func (r *memCartRepo) FindAbandonable(_ context.Context, olderThan time.Time) ([]*entity.Cart, error) {
	var carts []*entity.Cart
	for _, cart := range r.carts {
		if cart.Status == entity.CartStatusOpen && cart.UpdatedAt.Before(olderThan) {
			carts = append(carts, cart)
		}
	}
	return carts, nil
}

type memCartItemRepo struct {
	items map[uuid.UUID]*entity.CartItem
}

func (r *memCartItemRepo) Create(_ context.Context, item *entity.CartItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *memCartItemRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.CartItem, error) {
	return r.items[id], nil
}

func (r *memCartItemRepo) FindActiveByCartID(_ context.Context, cartID uuid.UUID) ([]*entity.CartItem, error) {
	var items []*entity.CartItem
	for _, item := range r.items {
		if item.CartID == cartID && (item.Status == entity.CartItemStatusActive || item.Status == entity.CartItemStatusPriceChanged) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *memCartItemRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.CartItemStatus) error {
	if item, ok := r.items[id]; ok {
		item.Status = status
	}
	return nil
}

func (r *memCartItemRepo) UpdatePrice(_ context.Context, id uuid.UUID, priceCents int64) error {
	if item, ok := r.items[id]; ok {
		item.PriceCents = priceCents
		item.Status = entity.CartItemStatusActive
	}
	return nil
}

type memSessionRepo struct {
	sessions map[uuid.UUID]*entity.CheckoutSession
}

func (r *memSessionRepo) Create(_ context.Context, session *entity.CheckoutSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.CheckoutSession, error) {
	return r.sessions[id], nil
}

func (r *memSessionRepo) FindActiveByCartID(_ context.Context, cartID uuid.UUID) (*entity.CheckoutSession, error) {
	for _, session := range r.sessions {
		if session.CartID == cartID && !session.Status.IsTerminal() {
			return session, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) Update(_ context.Context, session *entity.CheckoutSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) UpdateStatusExpect(_ context.Context, id uuid.UUID, from, to entity.CheckoutStatus) (bool, error) {
	session, ok := r.sessions[id]
	if !ok || session.Status != from {
		return false, nil
	}
	session.Status = to
	return true, nil
}

func (r *memSessionRepo) FindExpiredActive(_ context.Context, now time.Time) ([]*entity.CheckoutSession, error) {
	var sessions []*entity.CheckoutSession
	for _, session := range r.sessions {
		switch session.Status {
		case entity.CheckoutStatusAuthorizing, entity.CheckoutStatusAuthorized, entity.CheckoutStatusBooking:
			continue
		}
		if !session.Status.IsTerminal() && session.ExpiresAt.Before(now) {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

type memPaymentRepo struct {
	payments map[uuid.UUID]*entity.PaymentTransaction
}

func (r *memPaymentRepo) Create(_ context.Context, payment *entity.PaymentTransaction) error {
	r.payments[payment.ID] = payment
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	return r.payments[id], nil
}

func (r *memPaymentRepo) FindBySessionID(_ context.Context, sessionID uuid.UUID) (*entity.PaymentTransaction, error) {
	for _, payment := range r.payments {
		if payment.CheckoutSessionID == sessionID {
			return payment, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) FindByIntentID(_ context.Context, intentID string) (*entity.PaymentTransaction, error) {
	for _, payment := range r.payments {
		if payment.GatewayIntentID != nil && *payment.GatewayIntentID == intentID {
			return payment, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) SetIntent(_ context.Context, id uuid.UUID, intentID string) error {
	if payment, ok := r.payments[id]; ok {
		payment.GatewayIntentID = &intentID
	}
	return nil
}

func (r *memPaymentRepo) UpdateStatusExpect(_ context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	payment, ok := r.payments[id]
	if !ok || payment.Status != from {
		return false, nil
	}
	payment.Status = to
	return true, nil
}

func (r *memPaymentRepo) AddRefund(_ context.Context, id uuid.UUID, amountCents int64, status entity.PaymentStatus) error {
	if payment, ok := r.payments[id]; ok {
		payment.RefundedCents += amountCents
		payment.Status = status
	}
	return nil
}

type memBookingRepo struct {
	bookings map[uuid.UUID]*entity.Booking
}

func (r *memBookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	r.bookings[booking.ID] = booking
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.bookings[id], nil
}

func (r *memBookingRepo) FindBySessionID(_ context.Context, sessionID uuid.UUID) (*entity.Booking, error) {
	for _, booking := range r.bookings {
		if booking.CheckoutSessionID == sessionID {
			return booking, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for _, booking := range r.bookings {
		if booking.UserID == userID {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.After(bookings[j].CreatedAt) })
	if offset >= len(bookings) {
		return nil, nil
	}
	end := offset + limit
	if end > len(bookings) {
		end = len(bookings)
	}
	return bookings[offset:end], nil
}

func (r *memBookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, booking := range r.bookings {
		if booking.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.BookingStatus) error {
	if booking, ok := r.bookings[id]; ok {
		booking.Status = status
	}
	return nil
}

func (r *memBookingRepo) UpdateStatusExpect(_ context.Context, id uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	booking, ok := r.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	return true, nil
}

type memBookingItemRepo struct {
	items map[uuid.UUID]*entity.BookingItem
}

func (r *memBookingItemRepo) Create(_ context.Context, item *entity.BookingItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *memBookingItemRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.BookingItem, error) {
	return r.items[id], nil
}

func (r *memBookingItemRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.BookingItem, error) {
	var items []*entity.BookingItem
	for _, item := range r.items {
		if item.BookingID == bookingID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemIndex < items[j].ItemIndex })
	return items, nil
}

func (r *memBookingItemRepo) UpdateStatusExpect(_ context.Context, id uuid.UUID, from, to entity.BookingItemStatus) (bool, error) {
	item, ok := r.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	return true, nil
}

func (r *memBookingItemRepo) SetConfirmation(_ context.Context, id uuid.UUID, confirmationRef string, schedule entity.ScheduleSnapshot, from entity.BookingItemStatus) (bool, error) {
	item, ok := r.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.ConfirmationRef = &confirmationRef
	item.Schedule = schedule
	item.Status = entity.BookingItemStatusConfirmed
	return true, nil
}

func (r *memBookingItemRepo) UpdateSchedule(_ context.Context, id uuid.UUID, schedule entity.ScheduleSnapshot) error {
	if item, ok := r.items[id]; ok {
		item.Schedule = schedule
	}
	return nil
}

func (r *memBookingItemRepo) FindPendingReconciliation(_ context.Context) ([]*entity.BookingItem, error) {
	return r.findByStatus(entity.BookingItemStatusPendingReconciliation), nil
}

func (r *memBookingItemRepo) FindStalePending(_ context.Context, olderThan time.Time) ([]*entity.BookingItem, error) {
	var items []*entity.BookingItem
	for _, item := range r.findByStatus(entity.BookingItemStatusPending) {
		if item.UpdatedAt.Before(olderThan) {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *memBookingItemRepo) FindConfirmed(_ context.Context) ([]*entity.BookingItem, error) {
	return r.findByStatus(entity.BookingItemStatusConfirmed), nil
}

func (r *memBookingItemRepo) findByStatus(status entity.BookingItemStatus) []*entity.BookingItem {
	var items []*entity.BookingItem
	for _, item := range r.items {
		if item.Status == status {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemIndex < items[j].ItemIndex })
	return items
}

type memWebhookRepo struct {
	events map[string]*entity.WebhookEvent
}

func (r *memWebhookRepo) InsertIfAbsent(_ context.Context, event *entity.WebhookEvent) (*entity.WebhookEvent, bool, error) {
	if existing, ok := r.events[event.ExternalEventID]; ok {
		return existing, false, nil
	}
	r.events[event.ExternalEventID] = event
	return event, true, nil
}

func (r *memWebhookRepo) FindByExternalID(_ context.Context, externalEventID string) (*entity.WebhookEvent, error) {
	return r.events[externalEventID], nil
}

func (r *memWebhookRepo) MarkProcessed(_ context.Context, externalEventID string) error {
	if event, ok := r.events[externalEventID]; ok && !event.Processed {
		now := time.Now()
		event.Processed = true
		event.ProcessedAt = &now
	}
	return nil
}

func (r *memWebhookRepo) IncrementRetry(_ context.Context, externalEventID string) error {
	if event, ok := r.events[externalEventID]; ok {
		event.RetryCount++
	}
	return nil
}

type memScheduleChangeRepo struct {
	changes map[uuid.UUID]*entity.ScheduleChange
}

func (r *memScheduleChangeRepo) Create(_ context.Context, change *entity.ScheduleChange) error {
	r.changes[change.ID] = change
	return nil
}

func (r *memScheduleChangeRepo) FindByBookingItemID(_ context.Context, bookingItemID uuid.UUID) ([]*entity.ScheduleChange, error) {
	var changes []*entity.ScheduleChange
	for _, change := range r.changes {
		if change.BookingItemID == bookingItemID {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

func (r *memScheduleChangeRepo) MarkNotified(_ context.Context, id uuid.UUID) error {
	if change, ok := r.changes[id]; ok {
		change.Notified = true
	}
	return nil
}

func newMemRepository() *repository.Repository {
	return &repository.Repository{
		Cart:            &memCartRepo{carts: map[uuid.UUID]*entity.Cart{}},
		CartItem:        &memCartItemRepo{items: map[uuid.UUID]*entity.CartItem{}},
		CheckoutSession: &memSessionRepo{sessions: map[uuid.UUID]*entity.CheckoutSession{}},
		Payment:         &memPaymentRepo{payments: map[uuid.UUID]*entity.PaymentTransaction{}},
		Booking:         &memBookingRepo{bookings: map[uuid.UUID]*entity.Booking{}},
		BookingItem:     &memBookingItemRepo{items: map[uuid.UUID]*entity.BookingItem{}},
		WebhookEvent:    &memWebhookRepo{events: map[string]*entity.WebhookEvent{}},
		ScheduleChange:  &memScheduleChangeRepo{changes: map[uuid.UUID]*entity.ScheduleChange{}},
	}
}

func testConfig() *utils.Config {
	return &utils.Config{
		Checkout: utils.CheckoutConfig{
			PriceToleranceCents: 0,
			SessionTTLMinutes:   30,
			CartTTLHours:        48,
		},
		Saga: utils.SagaConfig{
			MaxRetries:          3,
			RetryBackoff:        time.Millisecond,
			ExternalCallTimeout: time.Second,
		},
		Worker: utils.WorkerConfig{
			ReconcileInterval: time.Second,
		},
	}
}

// testEnv bundles the memory repositories, mock collaborators and services
// most tests need. All test items book through the "test-provider" adapter.
type testEnv struct {
	repo     *repository.Repository
	payment  *gateway.PaymentGatewayMock
	catalog  *gateway.CatalogMock
	provider *gateway.ProviderAdapterMock
	registry *gateway.ProviderRegistry
	notifier *gateway.NotificationSenderMock
	service  *Service
}

func newTestEnv() *testEnv {
	return newTestEnvConfig(testConfig())
}

func newTestEnvConfig(config *utils.Config) *testEnv {
	env := &testEnv{
		repo:     newMemRepository(),
		payment:  &gateway.PaymentGatewayMock{},
		catalog:  &gateway.CatalogMock{},
		provider: &gateway.ProviderAdapterMock{},
		registry: gateway.NewProviderRegistry(),
		notifier: &gateway.NotificationSenderMock{},
	}
	env.registry.Register("test-provider", env.provider)

	collab := Collaborators{
		Catalog:   env.catalog,
		Payment:   env.payment,
		Providers: env.registry,
		Notifier:  env.notifier,
	}
	env.service = NewService(env.repo, collab, config, zap.NewNop())
	return env
}
