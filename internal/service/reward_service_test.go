package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/waste-dispatch/internal/model"
)

func TestCreditAndDebit(t *testing.T) {
	f := newFixture(t)
	svc := f.rewardService()
	ctx := context.Background()
	reportID := uuid.New()

	entry, err := svc.Credit(ctx, CreditInput{
		UserID:        f.citizen.ID,
		Points:        40,
		Reason:        model.RewardReasonCleanupVerified,
		WasteReportID: &reportID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCredit, entry.TransactionType)
	assert.EqualValues(t, 40, f.store.Points(f.citizen.ID))

	notes := f.store.NotificationsOf(f.citizen.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationCleanupVerified, notes[0].Type)
	assert.Equal(t, reportID, *notes[0].RelatedID)

	_, err = svc.Debit(ctx, f.citizen.ID, 15, model.RewardReasonRedemption)
	require.NoError(t, err)
	assert.EqualValues(t, 25, f.store.Points(f.citizen.ID))

	_, err = svc.Debit(ctx, f.citizen.ID, 26, model.RewardReasonRedemption)
	require.ErrorIs(t, err, ErrInsufficientPoints)
	assert.EqualValues(t, 25, f.store.Points(f.citizen.ID))
	assert.Len(t, f.store.LedgerOf(f.citizen.ID), 2)
}

func TestCreditValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.rewardService()
	ctx := context.Background()

	_, err := svc.Credit(ctx, CreditInput{UserID: f.citizen.ID, Points: 0, Reason: model.RewardReasonBonus})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Credit(ctx, CreditInput{UserID: f.citizen.ID, Points: 5, Reason: model.RewardReasonRedemption})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Debit(ctx, f.citizen.ID, -1, model.RewardReasonRedemption)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Credit(ctx, CreditInput{UserID: uuid.New(), Points: 5, Reason: model.RewardReasonBonus})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBonus(t *testing.T) {
	f := newFixture(t)
	svc := f.rewardService()
	ctx := context.Background()

	_, err := svc.Bonus(ctx, principalOf(f.collector), f.citizen.ID, 10, "thanks")
	assert.ErrorIs(t, err, ErrForbidden)

	entry, err := svc.Bonus(ctx, principalOf(f.admin), f.citizen.ID, 10, "community cleanup day")
	require.NoError(t, err)
	assert.Equal(t, model.RewardReasonBonus, entry.Reason)

	notes := f.store.NotificationsOf(f.citizen.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationBonusAwarded, notes[0].Type)
	assert.Contains(t, notes[0].Message, "community cleanup day")
	assert.Contains(t, f.cache.invalidated, f.citizen.ID)
}

func TestHistoryAndBalancePermissions(t *testing.T) {
	f := newFixture(t)
	svc := f.rewardService()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Credit(ctx, CreditInput{UserID: f.citizen.ID, Points: int64(i + 1), Reason: model.RewardReasonBonus})
		require.NoError(t, err)
	}

	_, err := svc.History(ctx, principalOf(f.collector), f.citizen.ID, model.Page{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Balance(ctx, principalOf(f.collector), f.citizen.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	history, err := svc.History(ctx, principalOf(f.citizen), f.citizen.ID, model.Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, history.Total)
	assert.Equal(t, 2, history.TotalPages)
	require.Len(t, history.Items, 2)
	assert.EqualValues(t, 3, history.Items[0].Points)

	balance, err := svc.Balance(ctx, principalOf(f.admin), f.citizen.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, balance)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	svc := f.rewardService()
	ctx := context.Background()
	_, err := svc.Credit(ctx, CreditInput{UserID: f.citizen.ID, Points: 100, Reason: model.RewardReasonBonus})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, f.citizen.ID, 30, model.RewardReasonRedemption)
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, principalOf(f.citizen), f.citizen.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	result, err := svc.Reconcile(ctx, principalOf(f.admin), f.citizen.ID)
	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.EqualValues(t, 70, result.Cached)
	assert.EqualValues(t, 70, result.Ledger)

	f.store.SetPoints(f.citizen.ID, 90)
	result, err = svc.Reconcile(ctx, principalOf(f.admin), f.citizen.ID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.EqualValues(t, 90, result.Cached)
	assert.EqualValues(t, 70, result.Ledger)

	_, err = svc.Reconcile(ctx, principalOf(f.admin), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
