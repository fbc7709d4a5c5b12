package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'waste_report_status') THEN
			CREATE TYPE waste_report_status AS ENUM ('pending_dispatch', 'dispatched', 'collected', 'no_waste', 'error');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'dispatch_status') THEN
			CREATE TYPE dispatch_status AS ENUM ('pending', 'assigned', 'en_route', 'collected', 'completed', 'cancelled');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin', 'collector')),
		points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (LOWER(email));`,
	`CREATE TABLE IF NOT EXISTS waste_reports (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		submitter_id UUID NOT NULL REFERENCES users(id),
		image_url TEXT NOT NULL,
		contains_waste BOOLEAN NOT NULL DEFAULT FALSE,
		waste_categories JSONB NOT NULL DEFAULT '[]',
		dominant_waste_type VARCHAR(64) NOT NULL DEFAULT '',
		volume_value NUMERIC(18,3) NOT NULL DEFAULT 0,
		volume_unit VARCHAR(16) NOT NULL DEFAULT 'kg' CHECK (volume_unit IN ('kg', 'liters', 'cubic_meters')),
		possible_source TEXT NOT NULL DEFAULT '',
		environmental_impact TEXT NOT NULL DEFAULT '',
		confidence_level NUMERIC(5,2) NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		status waste_report_status NOT NULL,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_waste_reports_status ON waste_reports (status);`,
	`CREATE INDEX IF NOT EXISTS idx_waste_reports_submitter ON waste_reports (submitter_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		specialization VARCHAR(16) NOT NULL CHECK (specialization IN ('general', 'recyclables', 'e-waste', 'organic', 'hazardous')),
		status VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'off_duty')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_teams_name ON teams (name);`,
	`CREATE TABLE IF NOT EXISTS team_members (
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (team_id, user_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members (user_id);`,
	`CREATE TABLE IF NOT EXISTS trucks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		registration_number VARCHAR(32) NOT NULL,
		type VARCHAR(16) NOT NULL CHECK (type IN ('general', 'recyclables', 'e-waste', 'organic', 'hazardous')),
		capacity NUMERIC(18,3) NOT NULL CHECK (capacity > 0),
		capacity_unit VARCHAR(16) NOT NULL DEFAULT 'kg' CHECK (capacity_unit IN ('kg', 'cubic_meters')),
		status VARCHAR(16) NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'in_use', 'maintenance')),
		assigned_team_id UUID REFERENCES teams(id) ON DELETE SET NULL,
		longitude DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_trucks_registration ON trucks (registration_number);`,
	`CREATE INDEX IF NOT EXISTS idx_trucks_team ON trucks (assigned_team_id) WHERE assigned_team_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS dispatches (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		waste_report_id UUID NOT NULL REFERENCES waste_reports(id),
		team_id UUID REFERENCES teams(id) ON DELETE SET NULL,
		truck_id UUID REFERENCES trucks(id) ON DELETE SET NULL,
		pickup_longitude DOUBLE PRECISION NOT NULL,
		pickup_latitude DOUBLE PRECISION NOT NULL,
		pickup_address TEXT NOT NULL DEFAULT '',
		status dispatch_status NOT NULL DEFAULT 'assigned',
		priority VARCHAR(16) NOT NULL DEFAULT 'normal' CHECK (priority IN ('low', 'normal', 'high', 'urgent')),
		mode VARCHAR(16) NOT NULL DEFAULT 'manual' CHECK (mode IN ('auto', 'manual')),
		scheduled_date TIMESTAMPTZ NOT NULL,
		estimated_arrival TIMESTAMPTZ,
		actual_collection_date TIMESTAMPTZ,
		collection_verified BOOLEAN NOT NULL DEFAULT FALSE,
		collection_notes TEXT,
		collection_images JSONB NOT NULL DEFAULT '[]',
		points_awarded BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_dispatch_active_report ON dispatches (waste_report_id)
		WHERE status NOT IN ('completed', 'cancelled');`,
	`CREATE INDEX IF NOT EXISTS idx_dispatches_status ON dispatches (status);`,
	`CREATE INDEX IF NOT EXISTS idx_dispatches_team ON dispatches (team_id) WHERE team_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_dispatches_scheduled ON dispatches (scheduled_date);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(32) NOT NULL CHECK (type IN ('login', 'waste_report', 'reward_earned', 'bonus_awarded',
			'cleanup_verified', 'dispatch_assigned', 'dispatch_update', 'truck_status', 'team_update', 'system')),
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMPTZ,
		priority VARCHAR(16) NOT NULL DEFAULT 'normal' CHECK (priority IN ('low', 'normal', 'high', 'urgent')),
		status VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'archived', 'deleted')),
		related_kind VARCHAR(32) NOT NULL DEFAULT '',
		related_id UUID,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, status, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (recipient_id) WHERE is_read = FALSE AND status = 'active';`,
	`CREATE TABLE IF NOT EXISTS reward_ledger (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		waste_report_id UUID REFERENCES waste_reports(id),
		points BIGINT NOT NULL CHECK (points > 0),
		reason VARCHAR(32) NOT NULL CHECK (reason IN ('waste_report', 'cleanup_verified', 'bonus', 'redemption')),
		transaction_type VARCHAR(8) NOT NULL CHECK (transaction_type IN ('credit', 'debit')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reward_ledger_user ON reward_ledger (user_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		points_cost BIGINT NOT NULL CHECK (points_cost > 0),
		stock BIGINT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		image_url TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_products_name ON products (name);`,
	`CREATE TABLE IF NOT EXISTS redemption_orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		points_spent BIGINT NOT NULL CHECK (points_spent > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_redemption_orders_user ON redemption_orders (user_id, created_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
