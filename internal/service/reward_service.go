package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type RewardService struct {
	rewards RewardStore
	unread  unreadCounters
	log     zerolog.Logger
}

func NewRewardService(rewards RewardStore, cache UnreadCache, log zerolog.Logger) *RewardService {
	return &RewardService{
		rewards: rewards,
		unread:  unreadCounters{cache: cache, log: log},
		log:     log,
	}
}

type CreditInput struct {
	UserID        uuid.UUID
	Points        int64
	Reason        model.RewardReason
	WasteReportID *uuid.UUID
	Note          string
}

var creditNoticeTypes = map[model.RewardReason]model.NotificationType{
	model.RewardReasonWasteReport:     model.NotificationRewardEarned,
	model.RewardReasonCleanupVerified: model.NotificationCleanupVerified,
	model.RewardReasonBonus:           model.NotificationBonusAwarded,
}

// Credit adds points to a user and records the matching ledger entry.
func (s *RewardService) Credit(ctx context.Context, input CreditInput) (*model.LedgerEntry, error) {
	if input.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	noticeType, ok := creditNoticeTypes[input.Reason]
	if !ok {
		return nil, fmt.Errorf("%w: reason %q cannot credit points", ErrValidation, input.Reason)
	}

	now := nowUTC()
	entry := model.NewCredit(input.UserID, input.Points, input.Reason, input.WasteReportID, now)
	message := fmt.Sprintf("You received %d points (%s).", input.Points, input.Reason)
	if input.Note != "" {
		message = fmt.Sprintf("You received %d points: %s", input.Points, input.Note)
	}
	related := model.RelatedEntity{}
	if input.WasteReportID != nil {
		related = model.WasteReportRef(*input.WasteReportID)
	}
	notifications := []model.Notification{
		model.Notice{
			Type:     noticeType,
			Title:    "Points earned",
			Message:  message,
			Related:  related,
			Metadata: map[string]interface{}{"points": input.Points, "reason": string(input.Reason)},
		}.For(input.UserID, now),
	}

	if err := s.rewards.ApplyLedgerEntry(ctx, entry, notifications); err != nil {
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, []uuid.UUID{input.UserID})
	return &entry, nil
}

// Bonus is an admin-granted credit.
func (s *RewardService) Bonus(ctx context.Context, principal model.Principal, userID uuid.UUID, points int64, note string) (*model.LedgerEntry, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.Credit(ctx, CreditInput{UserID: userID, Points: points, Reason: model.RewardReasonBonus, Note: note})
}

// Debit removes points. The balance never goes below zero.
func (s *RewardService) Debit(ctx context.Context, userID uuid.UUID, points int64, reason model.RewardReason) (*model.LedgerEntry, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrValidation, reason)
	}
	entry := model.NewDebit(userID, points, reason, nowUTC())
	if err := s.rewards.ApplyLedgerEntry(ctx, entry, nil); err != nil {
		return nil, mapStoreError(err)
	}
	return &entry, nil
}

func (s *RewardService) History(
	ctx context.Context,
	principal model.Principal,
	userID uuid.UUID,
	page model.Page,
) (model.Paginated[model.LedgerEntry], error) {
	if userID != principal.UserID && !principal.IsAdmin() {
		return model.Paginated[model.LedgerEntry]{}, ErrForbidden
	}
	page = page.Normalize()
	entries, total, err := s.rewards.ListLedger(ctx, userID, page)
	if err != nil {
		return model.Paginated[model.LedgerEntry]{}, err
	}
	return model.NewPaginated(entries, page, total), nil
}

func (s *RewardService) Balance(ctx context.Context, principal model.Principal, userID uuid.UUID) (int64, error) {
	if userID != principal.UserID && !principal.IsAdmin() {
		return 0, ErrForbidden
	}
	cached, _, err := s.rewards.LedgerTotals(ctx, userID)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return cached, nil
}

// Reconcile compares the cached balance with the sum of the ledger.
func (s *RewardService) Reconcile(ctx context.Context, principal model.Principal, userID uuid.UUID) (*model.Reconciliation, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	cached, ledger, err := s.rewards.LedgerTotals(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	result := model.Reconciliation{
		UserID:     userID,
		Cached:     cached,
		Ledger:     ledger,
		Consistent: cached == ledger,
	}
	if !result.Consistent {
		s.log.Warn().
			Str("user_id", userID.String()).
			Int64("cached", cached).
			Int64("ledger", ledger).
			Msg("points balance drifted from ledger")
	}
	return &result, nil
}
