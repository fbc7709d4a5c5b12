package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const productColumns = `
	id,
	name,
	description,
	points_cost,
	stock,
	image_url,
	active,
	created_at,
	updated_at
`

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) CreateProduct(ctx context.Context, p model.Product) error {
	return translate(r.db.WithContext(ctx).Exec(`
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.PointsCost, p.Stock, p.ImageURL, p.Active, p.CreatedAt, p.UpdatedAt).Error)
}

func (r *ProductRepository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+productColumns+`
		FROM products
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`

	var products []model.Product
	if err := r.db.WithContext(ctx).Raw(query).Scan(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, p model.Product) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET name = ?, description = ?, points_cost = ?, stock = ?, image_url = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.PointsCost, p.Stock, p.ImageURL, p.Active, p.UpdatedAt, p.ID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Redeem debits the user, takes stock, records the order and notifies the user as one unit.
func (r *ProductRepository) Redeem(ctx context.Context, redemption model.Redemption) error {
	order := redemption.Order
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := appendLedger(tx, redemption.Entry); err != nil {
			return err
		}

		result := tx.Exec(`
			UPDATE products
			SET stock = stock - ?, updated_at = ?
			WHERE id = ? AND active = TRUE AND stock >= ?
		`, order.Quantity, order.CreatedAt, order.ProductID, order.Quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOutOfStock
		}

		if err := tx.Exec(`
			INSERT INTO redemption_orders (id, user_id, product_id, quantity, points_spent, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, order.ID, order.UserID, order.ProductID, order.Quantity, order.PointsSpent, order.CreatedAt).Error; err != nil {
			return err
		}

		return insertNotifications(tx, []model.Notification{redemption.Notification})
	})
}

func (r *ProductRepository) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.RedemptionOrder, error) {
	var orders []model.RedemptionOrder
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, product_id, quantity, points_spent, created_at
		FROM redemption_orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID).Scan(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
