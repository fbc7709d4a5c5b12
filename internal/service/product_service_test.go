package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/waste-dispatch/internal/model"
)

func fund(t *testing.T, f *fixture, userID uuid.UUID, points int64) {
	t.Helper()
	_, err := f.rewardService().Credit(context.Background(), CreditInput{UserID: userID, Points: points, Reason: model.RewardReasonBonus})
	require.NoError(t, err)
}

func TestRedeemWithInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	product := f.store.AddProduct(model.Product{Name: "Tote bag", PointsCost: 500, Stock: 3, Active: true})
	fund(t, f, f.citizen.ID, 300)
	svc := f.productService()

	_, err := svc.Redeem(context.Background(), principalOf(f.citizen), product.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	assert.EqualValues(t, 300, f.store.Points(f.citizen.ID))
	assert.Len(t, f.store.LedgerOf(f.citizen.ID), 1)
	stored, err := f.store.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.Stock)
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 1, f.metrics.redemptions["insufficient_points"])
}

func TestRedeemLastItem(t *testing.T) {
	f := newFixture(t)
	product := f.store.AddProduct(model.Product{Name: "Water bottle", PointsCost: 500, Stock: 1, Active: true})
	fund(t, f, f.citizen.ID, 600)
	svc := f.productService()
	ctx := context.Background()

	order, err := svc.Redeem(ctx, principalOf(f.citizen), product.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, order.Quantity)
	assert.EqualValues(t, 500, order.PointsSpent)

	assert.EqualValues(t, 100, f.store.Points(f.citizen.ID))
	ledger := f.store.LedgerOf(f.citizen.ID)
	require.Len(t, ledger, 2)
	assert.Equal(t, model.TransactionDebit, ledger[1].TransactionType)
	assert.Equal(t, model.RewardReasonRedemption, ledger[1].Reason)
	assert.EqualValues(t, 500, ledger[1].Points)

	stored, err := f.store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Stock)
	require.Len(t, f.store.Orders(), 1)

	notes := f.store.NotificationsOf(f.citizen.ID)
	last := notes[len(notes)-1]
	assert.Equal(t, model.NotificationSystem, last.Type)
	assert.Equal(t, model.EntityProduct, last.RelatedKind)
	assert.Equal(t, 1, f.metrics.redemptions["ok"])

	_, err = svc.Redeem(ctx, principalOf(f.citizen), product.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, f.metrics.redemptions["out_of_stock"])

	orders, err := svc.ListOrders(ctx, principalOf(f.citizen), f.citizen.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	_, err = svc.ListOrders(ctx, principalOf(f.collector), f.citizen.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRedeemRollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	product := f.store.AddProduct(model.Product{Name: "Cap", PointsCost: 50, Stock: 2, Active: true})
	fund(t, f, f.citizen.ID, 100)
	f.store.FailOn("Redeem", errBoom)

	_, err := f.productService().Redeem(context.Background(), principalOf(f.citizen), product.ID, 1)
	require.ErrorIs(t, err, errBoom)
	assert.EqualValues(t, 100, f.store.Points(f.citizen.ID))
	assert.Empty(t, f.store.Orders())
}

func TestRedeemInactiveOrInvalid(t *testing.T) {
	f := newFixture(t)
	hidden := f.store.AddProduct(model.Product{Name: "Retired", PointsCost: 1, Stock: 10, Active: false})
	svc := f.productService()
	ctx := context.Background()

	_, err := svc.Redeem(ctx, principalOf(f.citizen), hidden.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Redeem(ctx, principalOf(f.citizen), hidden.ID, -2)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Redeem(ctx, principalOf(f.citizen), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductCatalogue(t *testing.T) {
	f := newFixture(t)
	svc := f.productService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, principalOf(f.citizen), ProductInput{Name: ptr("x"), PointsCost: ptr(int64(1))})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.CreateProduct(ctx, principalOf(f.admin), ProductInput{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateProduct(ctx, principalOf(f.admin), ProductInput{Name: ptr("x"), PointsCost: ptr(int64(0))})
	assert.ErrorIs(t, err, ErrValidation)

	bag, err := svc.CreateProduct(ctx, principalOf(f.admin), ProductInput{
		Name:       ptr(" Tote bag "),
		PointsCost: ptr(int64(200)),
		Stock:      ptr(int64(5)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tote bag", bag.Name)
	assert.True(t, bag.Active)

	_, err = svc.CreateProduct(ctx, principalOf(f.admin), ProductInput{Name: ptr("Tote bag"), PointsCost: ptr(int64(1))})
	assert.ErrorIs(t, err, ErrDuplicate)

	updated, err := svc.UpdateProduct(ctx, principalOf(f.admin), bag.ID, ProductInput{Active: ptr(false), Stock: ptr(int64(9))})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.EqualValues(t, 9, updated.Stock)

	_, err = svc.UpdateProduct(ctx, principalOf(f.admin), bag.ID, ProductInput{Stock: ptr(int64(-1))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GetProduct(ctx, principalOf(f.citizen), bag.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := svc.GetProduct(ctx, principalOf(f.admin), bag.ID)
	require.NoError(t, err)
	assert.Equal(t, bag.ID, got.ID)

	visible, err := svc.ListProducts(ctx, principalOf(f.citizen))
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := svc.ListProducts(ctx, principalOf(f.admin))
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	svc := f.productService()
	ctx := context.Background()
	unused := f.store.AddProduct(model.Product{Name: "Unused", PointsCost: 1, Stock: 1, Active: true})
	sold := f.store.AddProduct(model.Product{Name: "Sold", PointsCost: 1, Stock: 1, Active: true})
	fund(t, f, f.citizen.ID, 1)
	_, err := svc.Redeem(ctx, principalOf(f.citizen), sold.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, principalOf(f.collector), unused.ID), ErrForbidden)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, principalOf(f.admin), sold.ID), ErrValidation)
	require.NoError(t, svc.DeleteProduct(ctx, principalOf(f.admin), unused.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, principalOf(f.admin), unused.ID), ErrNotFound)
}
