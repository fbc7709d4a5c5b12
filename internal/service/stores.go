package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type ReportStore interface {
	CreateReport(ctx context.Context, report model.WasteReport, award *model.LedgerEntry, notifications []model.Notification) error
	GetReport(ctx context.Context, id uuid.UUID) (*model.WasteReport, error)
	ListReports(ctx context.Context, filter model.ReportFilter, page model.Page) ([]model.WasteReport, int64, error)
}

type FleetStore interface {
	CreateTeam(ctx context.Context, team model.Team, notifications []model.Notification) error
	GetTeam(ctx context.Context, id uuid.UUID) (*model.Team, error)
	ListTeams(ctx context.Context, filter model.TeamFilter) ([]model.Team, error)
	UpdateTeam(ctx context.Context, team model.Team, replaceRoster bool, notifications []model.Notification) error
	DeleteTeam(ctx context.Context, id uuid.UUID, notifications []model.Notification) error
	ListTeamMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error)

	CreateTruck(ctx context.Context, truck model.Truck, notifications []model.Notification) error
	GetTruck(ctx context.Context, id uuid.UUID) (*model.Truck, error)
	ListTrucks(ctx context.Context, filter model.TruckFilter) ([]model.Truck, error)
	UpdateTruck(ctx context.Context, truck model.Truck, expected model.TruckStatus, notifications []model.Notification) error
	DeleteTruck(ctx context.Context, id uuid.UUID, notifications []model.Notification) error

	ListCandidates(ctx context.Context, specializations []model.Specialization) ([]model.CrewCandidate, error)
}

type DispatchStore interface {
	CreateDispatch(ctx context.Context, dispatch model.Dispatch, notice model.Notice) ([]uuid.UUID, error)
	UpdateDispatchStatus(ctx context.Context, transition model.DispatchTransition) ([]uuid.UUID, error)
	GetDispatch(ctx context.Context, id uuid.UUID) (*model.DispatchDetail, error)
	GetDispatchByReport(ctx context.Context, reportID uuid.UUID) (*model.DispatchDetail, error)
	ListDispatches(ctx context.Context, filter model.DispatchFilter, page model.Page) ([]model.DispatchDetail, int64, error)
	ListDispatchRegister(ctx context.Context, from, to time.Time) ([]model.DispatchDetail, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListNotifications(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter, page model.Page) ([]model.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	SetNotificationStatus(ctx context.Context, id uuid.UUID, status model.NotificationStatus) error
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type RewardStore interface {
	ApplyLedgerEntry(ctx context.Context, entry model.LedgerEntry, notifications []model.Notification) error
	ListLedger(ctx context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, int64, error)
	LedgerTotals(ctx context.Context, userID uuid.UUID) (cached int64, ledger int64, err error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Redeem(ctx context.Context, redemption model.Redemption) error
	ListOrders(ctx context.Context, userID uuid.UUID) ([]model.RedemptionOrder, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context, role *model.UserRole, page model.Page) ([]model.User, int64, error)
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	ListUserIDsByRole(ctx context.Context, role model.UserRole) ([]uuid.UUID, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role model.UserRole) error
}

// Classifier turns an image into a waste classification.
type Classifier interface {
	Classify(ctx context.Context, image []byte, contentType string) (model.Classification, error)
}

// ImageStore keeps uploaded images and hands back a durable URL.
type ImageStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, name string) error
}

// UnreadCache holds per-user unread notification counters.
type UnreadCache interface {
	GetUnread(ctx context.Context, userID uuid.UUID) (int64, bool, error)
	SetUnread(ctx context.Context, userID uuid.UUID, count int64) error
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

type Metrics interface {
	ReportSubmitted(status model.ReportStatus)
	DispatchCreated(mode model.DispatchMode)
	DispatchTransitioned(to model.DispatchStatus)
	Redemption(result string)
}

type ExcelGenerator interface {
	DispatchRegister(register model.DispatchRegister) ([]byte, error)
}

type PDFGenerator interface {
	CollectionSheet(sheet model.CollectionSheet) ([]byte, error)
}

type FileResult struct {
	FileName string
	Content  []byte
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
