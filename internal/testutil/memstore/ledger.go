package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

// ---- notifications ----

func (s *Store) CreateNotification(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateNotification"); err != nil {
		return err
	}
	if _, ok := s.users[n.RecipientID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.putNotifications([]model.Notification{n})
	return nil
}

func (s *Store) GetNotification(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.notifications[id]
	if !ok || row.value.Status == model.NotificationStatusDeleted {
		return nil, gorm.ErrRecordNotFound
	}
	n := row.value
	return &n, nil
}

func (s *Store) ListNotifications(
	_ context.Context,
	recipientID uuid.UUID,
	filter model.NotificationFilter,
	page model.Page,
) ([]model.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := model.NotificationStatusActive
	if filter.Status != nil {
		status = *filter.Status
	}
	var rows []stamped[model.Notification]
	for _, row := range s.notifications {
		n := row.value
		if n.RecipientID != recipientID || n.Status != status {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.value)
	}
	return paginate(out, page), int64(len(out)), nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.notifications[id]
	if !ok || row.value.IsRead {
		return nil
	}
	row.value.IsRead = true
	row.value.ReadAt = &at
	s.notifications[id] = row
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, row := range s.notifications {
		n := row.value
		if n.RecipientID != recipientID || n.IsRead || n.Status != model.NotificationStatusActive {
			continue
		}
		row.value.IsRead = true
		row.value.ReadAt = &at
		s.notifications[id] = row
		count++
	}
	return count, nil
}

func (s *Store) SetNotificationStatus(_ context.Context, id uuid.UUID, status model.NotificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.notifications[id]
	if !ok {
		return nil
	}
	row.value.Status = status
	s.notifications[id] = row
	return nil
}

func (s *Store) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, row := range s.notifications {
		n := row.value
		if n.RecipientID == recipientID && !n.IsRead && n.Status == model.NotificationStatusActive {
			count++
		}
	}
	return count, nil
}

// ---- rewards ----

func (s *Store) ApplyLedgerEntry(_ context.Context, entry model.LedgerEntry, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ApplyLedgerEntry"); err != nil {
		return err
	}
	if err := s.checkLedger(entry); err != nil {
		return err
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.putLedger(entry)
	s.putNotifications(notifications)
	return nil
}

func (s *Store) ListLedger(_ context.Context, userID uuid.UUID, page model.Page) ([]model.LedgerEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID == userID {
			out = append(out, s.ledger[i])
		}
	}
	return paginate(out, page), int64(len(out)), nil
}

func (s *Store) LedgerTotals(_ context.Context, userID uuid.UUID) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, 0, gorm.ErrRecordNotFound
	}
	var sum int64
	for _, e := range s.ledger {
		if e.UserID == userID {
			sum += e.Signed()
		}
	}
	return u.Points, sum, nil
}

// SetPoints overwrites a cached balance without a ledger entry, simulating drift.
func (s *Store) SetPoints(userID uuid.UUID, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.Points = points
	s.users[userID] = u
}

// ---- products ----

func (s *Store) CreateProduct(_ context.Context, p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Name == p.Name {
			return repository.ErrUniqueViolation
		}
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) GetProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *Store) ListProducts(_ context.Context, activeOnly bool) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Product
	for _, p := range s.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, existing := range s.products {
		if id != p.ID && existing.Name == p.Name {
			return repository.ErrUniqueViolation
		}
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, o := range s.orders {
		if o.ProductID == id {
			return repository.ErrReferenced
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) Redeem(_ context.Context, redemption model.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Redeem"); err != nil {
		return err
	}
	order := redemption.Order
	if err := s.checkLedger(redemption.Entry); err != nil {
		return err
	}
	p, ok := s.products[order.ProductID]
	if !ok || !p.Active || p.Stock < order.Quantity {
		return repository.ErrOutOfStock
	}
	if err := s.checkNotifications([]model.Notification{redemption.Notification}); err != nil {
		return err
	}
	s.putLedger(redemption.Entry)
	p.Stock -= order.Quantity
	p.UpdatedAt = order.CreatedAt
	s.products[p.ID] = p
	s.orders = append(s.orders, order)
	s.putNotifications([]model.Notification{redemption.Notification})
	return nil
}

func (s *Store) ListOrders(_ context.Context, userID uuid.UUID) ([]model.RedemptionOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RedemptionOrder
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}
