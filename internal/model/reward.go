package model

import (
	"time"

	"github.com/google/uuid"
)

type RewardReason string

const (
	RewardReasonWasteReport     RewardReason = "waste_report"
	RewardReasonCleanupVerified RewardReason = "cleanup_verified"
	RewardReasonBonus           RewardReason = "bonus"
	RewardReasonRedemption      RewardReason = "redemption"
)

func (r RewardReason) Valid() bool {
	switch r {
	case RewardReasonWasteReport, RewardReasonCleanupVerified, RewardReasonBonus, RewardReasonRedemption:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// LedgerEntry is an immutable point movement. Points is always positive;
// TransactionType carries the sign.
type LedgerEntry struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	WasteReportID   *uuid.UUID      `json:"waste_report_id,omitempty"`
	Points          int64           `json:"points"`
	Reason          RewardReason    `json:"reason"`
	TransactionType TransactionType `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (e LedgerEntry) Signed() int64 {
	if e.TransactionType == TransactionDebit {
		return -e.Points
	}
	return e.Points
}

func NewCredit(userID uuid.UUID, points int64, reason RewardReason, reportID *uuid.UUID, now time.Time) LedgerEntry {
	return LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		WasteReportID:   reportID,
		Points:          points,
		Reason:          reason,
		TransactionType: TransactionCredit,
		CreatedAt:       now,
	}
}

func NewDebit(userID uuid.UUID, points int64, reason RewardReason, now time.Time) LedgerEntry {
	return LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		Points:          points,
		Reason:          reason,
		TransactionType: TransactionDebit,
		CreatedAt:       now,
	}
}

type Reconciliation struct {
	UserID     uuid.UUID `json:"user_id"`
	Cached     int64     `json:"cached"`
	Ledger     int64     `json:"ledger"`
	Consistent bool      `json:"consistent"`
}
