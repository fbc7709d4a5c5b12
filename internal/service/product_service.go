package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

type ProductService struct {
	products ProductStore
	metrics  Metrics
	unread   unreadCounters
	log      zerolog.Logger
}

func NewProductService(products ProductStore, cache UnreadCache, metrics Metrics, log zerolog.Logger) *ProductService {
	return &ProductService{
		products: products,
		metrics:  metrics,
		unread:   unreadCounters{cache: cache, log: log},
		log:      log,
	}
}

type ProductInput struct {
	Name        *string
	Description *string
	PointsCost  *int64
	Stock       *int64
	ImageURL    *string
	Active      *bool
}

func (s *ProductService) CreateProduct(ctx context.Context, principal model.Principal, input ProductInput) (*model.Product, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if input.Name == nil || input.PointsCost == nil {
		return nil, fmt.Errorf("%w: name and points_cost are required", ErrValidation)
	}
	now := nowUTC()
	product := model.Product{
		ID:        uuid.New(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyProductInput(&product, input); err != nil {
		return nil, err
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, mapStoreError(err)
	}
	return &product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, principal model.Principal, id uuid.UUID, input ProductInput) (*model.Product, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := applyProductInput(product, input); err != nil {
		return nil, err
	}
	product.UpdatedAt = nowUTC()
	if err := s.products.UpdateProduct(ctx, *product); err != nil {
		return nil, mapStoreError(err)
	}
	return product, nil
}

// DeleteProduct refuses products that already have orders; deactivate those instead.
func (s *ProductService) DeleteProduct(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return fmt.Errorf("%w: product has redemption orders, deactivate it instead", ErrValidation)
		}
		return mapStoreError(err)
	}
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !product.Active && !principal.IsAdmin() {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListProducts shows the whole catalogue to admins and only active products to everyone else.
func (s *ProductService) ListProducts(ctx context.Context, principal model.Principal) ([]model.Product, error) {
	return s.products.ListProducts(ctx, !principal.IsAdmin())
}

// Redeem spends points on a product. Points, stock and the order move together or not at all.
func (s *ProductService) Redeem(ctx context.Context, principal model.Principal, productID uuid.UUID, quantity int64) (*model.RedemptionOrder, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !product.Active {
		return nil, ErrNotFound
	}
	if product.Stock < quantity {
		s.metrics.Redemption("out_of_stock")
		return nil, fmt.Errorf("%w: only %d left in stock", ErrValidation, product.Stock)
	}

	now := nowUTC()
	cost := product.PointsCost * quantity
	order := model.RedemptionOrder{
		ID:          uuid.New(),
		UserID:      principal.UserID,
		ProductID:   product.ID,
		Quantity:    quantity,
		PointsSpent: cost,
		CreatedAt:   now,
	}
	redemption := model.Redemption{
		Order: order,
		Entry: model.NewDebit(principal.UserID, cost, model.RewardReasonRedemption, now),
		Notification: model.Notice{
			Type:     model.NotificationSystem,
			Title:    "Redemption confirmed",
			Message:  fmt.Sprintf("You redeemed %d x %s for %d points.", quantity, product.Name, cost),
			Related:  model.ProductRef(product.ID),
			Metadata: map[string]interface{}{"order_id": order.ID.String(), "points": cost},
		}.For(principal.UserID, now),
	}

	if err := s.products.Redeem(ctx, redemption); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			s.metrics.Redemption("insufficient_points")
			return nil, fmt.Errorf("%w: %s costs %d points", ErrInsufficientPoints, product.Name, cost)
		case errors.Is(err, repository.ErrOutOfStock):
			s.metrics.Redemption("out_of_stock")
			return nil, fmt.Errorf("%w: %s is out of stock", ErrValidation, product.Name)
		}
		return nil, mapStoreError(err)
	}
	s.metrics.Redemption("ok")
	s.unread.touch(ctx, []uuid.UUID{principal.UserID})
	s.log.Info().
		Str("user_id", principal.UserID.String()).
		Str("product_id", product.ID.String()).
		Int64("points", cost).
		Msg("product redeemed")
	return &order, nil
}

func (s *ProductService) ListOrders(ctx context.Context, principal model.Principal, userID uuid.UUID) ([]model.RedemptionOrder, error) {
	if userID != principal.UserID && !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.products.ListOrders(ctx, userID)
}

func applyProductInput(p *model.Product, input ProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.PointsCost != nil {
		if *input.PointsCost <= 0 {
			return fmt.Errorf("%w: points_cost must be positive", ErrValidation)
		}
		p.PointsCost = *input.PointsCost
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return fmt.Errorf("%w: stock must not be negative", ErrValidation)
		}
		p.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Active != nil {
		p.Active = *input.Active
	}
	return nil
}
