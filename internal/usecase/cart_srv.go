package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartService interface {
	AddItem(ctx context.Context, userID uuid.UUID, req request.AddCartItemRequest) (*response.CartResponse, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*response.CartResponse, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*response.CartResponse, error)
}

type cartService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewCartService(repo *repository.Repository, log *zap.Logger) CartService {
	return &cartService{
		repo: repo,
		log:  log.With(zap.String("service", "cart")),
	}
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req request.AddCartItemRequest) (*response.CartResponse, error) {
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, &entity.ValidationError{Fields: fields}
	}

	now := time.Now()
	if !req.OfferExpiry.After(now) {
		return nil, entity.ErrOfferExpired
	}

	cart, err := s.repo.Cart.FindOpenByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add item to cart: %w", err)
	}

	if cart == nil {
		cart = &entity.Cart{
			Base: entity.Base{
				ID:        utils.GenerateUUID(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			UserID: userID,
			Status: entity.CartStatusOpen,
		}
		if err := s.repo.Cart.Create(ctx, cart); err != nil {
			return nil, fmt.Errorf("add item to cart: %w", err)
		}
		s.log.Info("Created cart", zap.String("cart_id", cart.ID.String()))
	}

	items, err := s.repo.CartItem.FindActiveByCartID(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("add item to cart %s: %w", cart.ID.String(), err)
	}

	// A cart is priced and paid in one currency.
	for _, existing := range items {
		if existing.Currency != req.Currency {
			return nil, &entity.ValidationError{Fields: map[string]string{
				"currency": fmt.Sprintf("cart is priced in %s", existing.Currency),
			}}
		}
	}

	tiers := make([]entity.PenaltyTier, len(req.PenaltyTiers))
	for i, tier := range req.PenaltyTiers {
		tiers[i] = entity.PenaltyTier{
			HoursBeforeDeparture: tier.HoursBeforeDeparture,
			PenaltyPercent:       tier.PenaltyPercent,
		}
	}

	item := &entity.CartItem{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
		},
		CartID:      cart.ID,
		OfferID:     req.OfferID,
		ItemType:    entity.ItemType(req.ItemType),
		ProviderID:  req.ProviderID,
		Name:        req.Name,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Quantity:    req.Quantity,
		Occupancy:   req.Occupancy,
		OfferExpiry: req.OfferExpiry,
		DepartureAt: req.DepartureAt,
		Status:      entity.CartItemStatusActive,
		Policy: entity.CancellationPolicy{
			FreeCancellationHours: req.FreeCancellationHours,
			Tiers:                 tiers,
			NonRefundableFeeCents: req.NonRefundableFeeCents,
		},
		Schedule: entity.ScheduleSnapshot{DepartureAt: req.DepartureAt},
	}

	if err := s.repo.CartItem.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("add item to cart %s: %w", cart.ID.String(), err)
	}

	s.log.Info("Added cart item",
		zap.String("cart_id", cart.ID.String()),
		zap.String("offer_id", req.OfferID),
		zap.Int64("price_cents", req.PriceCents),
	)

	return response.CartToResponse(cart, append(items, item)), nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*response.CartResponse, error) {
	item, err := s.repo.CartItem.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item %s: %w", itemID.String(), err)
	}
	if item == nil {
		return nil, entity.ErrNotFound
	}

	cart, err := s.repo.Cart.FindByID(ctx, item.CartID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item %s: %w", itemID.String(), err)
	}
	if cart == nil || cart.UserID != userID {
		return nil, entity.ErrNotFound
	}
	if cart.Status != entity.CartStatusOpen {
		return nil, entity.ErrCartLocked
	}

	if err := s.repo.CartItem.UpdateStatus(ctx, itemID, entity.CartItemStatusRemoved); err != nil {
		return nil, fmt.Errorf("remove cart item %s: %w", itemID.String(), err)
	}

	items, err := s.repo.CartItem.FindActiveByCartID(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item %s: %w", itemID.String(), err)
	}

	return response.CartToResponse(cart, items), nil
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*response.CartResponse, error) {
	cart, err := s.repo.Cart.FindOpenByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for user %s: %w", userID.String(), err)
	}
	if cart == nil {
		return nil, entity.ErrNotFound
	}

	items, err := s.repo.CartItem.FindActiveByCartID(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cart.ID.String(), err)
	}

	return response.CartToResponse(cart, items), nil
}
