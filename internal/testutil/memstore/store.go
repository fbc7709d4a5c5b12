// Package memstore is an in-memory implementation of the service store interfaces.
// Every method runs under one lock, so each call is atomic like the SQL transaction it mirrors.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

type Store struct {
	mu  sync.Mutex
	seq int64

	users         map[uuid.UUID]model.User
	teams         map[uuid.UUID]model.Team
	members       map[uuid.UUID][]uuid.UUID
	trucks        map[uuid.UUID]model.Truck
	reports       map[uuid.UUID]stamped[model.WasteReport]
	dispatches    map[uuid.UUID]stamped[model.Dispatch]
	notifications map[uuid.UUID]stamped[model.Notification]
	ledger        []model.LedgerEntry
	products      map[uuid.UUID]model.Product
	orders        []model.RedemptionOrder

	failures map[string]error
}

type stamped[T any] struct {
	seq   int64
	value T
}

func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]model.User),
		teams:         make(map[uuid.UUID]model.Team),
		members:       make(map[uuid.UUID][]uuid.UUID),
		trucks:        make(map[uuid.UUID]model.Truck),
		reports:       make(map[uuid.UUID]stamped[model.WasteReport]),
		dispatches:    make(map[uuid.UUID]stamped[model.Dispatch]),
		notifications: make(map[uuid.UUID]stamped[model.Notification]),
		products:      make(map[uuid.UUID]model.Product),
		failures:      make(map[string]error),
	}
}

// FailOn makes the next call of the named method return err without touching state.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) injected(method string) error {
	err, ok := s.failures[method]
	if !ok {
		return nil
	}
	delete(s.failures, method)
	return err
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// ---- seeding and inspection ----

func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = model.UserRoleUser
	}
	u.Teams = nil
	s.users[u.ID] = u
	return u
}

// AddTeam stores a team with its roster. Trucks listed on the team are ignored; assign them on the truck.
func (s *Store) AddTeam(t model.Team) model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TeamStatusActive
	}
	s.members[t.ID] = append([]uuid.UUID(nil), t.Members...)
	t.Members, t.Trucks = nil, nil
	s.teams[t.ID] = t
	return s.teamLocked(t.ID)
}

func (s *Store) AddTruck(t model.Truck) model.Truck {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TruckStatusAvailable
	}
	if t.CapacityUnit == "" {
		t.CapacityUnit = model.CapacityUnitKg
	}
	s.trucks[t.ID] = t
	return t
}

func (s *Store) AddReport(r model.WasteReport) model.WasteReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = model.ReportStatusPendingDispatch
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
		r.UpdatedAt = r.CreatedAt
	}
	s.reports[r.ID] = stamped[model.WasteReport]{seq: s.next(), value: r}
	return r
}

func (s *Store) AddProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.products[p.ID] = p
	return p
}

func (s *Store) Points(userID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].Points
}

func (s *Store) LedgerOf(userID uuid.UUID) []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// NotificationsOf returns every notification of a recipient, deleted ones included, oldest first.
func (s *Store) NotificationsOf(recipientID uuid.UUID) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []stamped[model.Notification]
	for _, n := range s.notifications {
		if n.value.RecipientID == recipientID {
			rows = append(rows, n)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]model.Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.value)
	}
	return out
}

func (s *Store) DispatchesOf(reportID uuid.UUID) []model.Dispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Dispatch
	for _, d := range s.dispatches {
		if d.value.WasteReportID == reportID {
			out = append(out, d.value)
		}
	}
	return out
}

func (s *Store) Orders() []model.RedemptionOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RedemptionOrder(nil), s.orders...)
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateUser"); err != nil {
		return err
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrUniqueViolation
		}
	}
	u.Teams = nil
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u.Teams = s.teamsOfLocked(id)
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context, role *model.UserRole, page model.Page) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.User
	for _, u := range s.users {
		if role == nil || u.Role == *role {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return paginate(all, page), int64(len(all)), nil
}

func (s *Store) ListUsersByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListUserIDsByRole(_ context.Context, role model.UserRole) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, u := range s.users {
		if u.Role == role {
			ids = append(ids, u.ID)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (s *Store) UpdateUserRole(_ context.Context, id uuid.UUID, role model.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

// ---- shared transactional steps ----

func (s *Store) checkNotifications(notifications []model.Notification) error {
	for _, n := range notifications {
		if _, ok := s.users[n.RecipientID]; !ok {
			return repository.ErrReferenced
		}
	}
	return nil
}

func (s *Store) putNotifications(notifications []model.Notification) {
	for _, n := range notifications {
		s.notifications[n.ID] = stamped[model.Notification]{seq: s.next(), value: n}
	}
}

func (s *Store) checkLedger(entry model.LedgerEntry) error {
	u, ok := s.users[entry.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if entry.TransactionType == model.TransactionDebit && u.Points < entry.Points {
		return repository.ErrInsufficientBalance
	}
	return nil
}

func (s *Store) putLedger(entry model.LedgerEntry) {
	u := s.users[entry.UserID]
	u.Points += entry.Signed()
	u.UpdatedAt = entry.CreatedAt
	s.users[entry.UserID] = u
	s.ledger = append(s.ledger, entry)
}

func (s *Store) hasActiveDispatch(match func(model.Dispatch) bool) bool {
	for _, d := range s.dispatches {
		if d.value.Status.IsActive() && match(d.value) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page model.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
