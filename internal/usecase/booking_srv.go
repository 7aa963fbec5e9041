package usecase

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	GetUserBookings(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
}

type bookingService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewBookingService(repo *repository.Repository, log *zap.Logger) BookingService {
	return &bookingService{
		repo: repo,
		log:  log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %s: %w", userID.String(), err)
	}
	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count bookings for user %s: %w", userID.String(), err)
	}

	results := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		items, err := s.repo.BookingItem.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return nil, fmt.Errorf("load items for booking %s: %w", booking.ID.String(), err)
		}
		results[i] = *response.BookingToResponse(booking, items)
	}

	return response.NewPaginatedResponse(results, page.Page, page.Limit(), total), nil
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID.String(), err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, entity.ErrNotFound
	}

	items, err := s.repo.BookingItem.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load items for booking %s: %w", bookingID.String(), err)
	}

	return response.BookingToResponse(booking, items), nil
}
