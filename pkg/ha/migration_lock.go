package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker serializes schema migration across replicas.
type MigrationLocker interface {
	// WithLock executes fn while holding the migration lock.
	// It blocks until the lock is acquired, then releases it after fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// NewMigrationLocker creates a MigrationLocker appropriate for the database
// dialect. PostgreSQL uses advisory locks; other databases use a table-based
// fallback. The lock table is created immediately for the fallback strategy.
func NewMigrationLocker(db *gorm.DB, cfg *Config) (MigrationLocker, error) {
	cfg = cfg.withDefaults()
	if db == nil || !cfg.Enabled {
		return noopMigrationLock{}, nil
	}
	if db.Dialector.Name() == "postgres" {
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte(cfg.LockName))),
		}, nil
	}
	// Concurrent callers must never hit a missing table on their first attempt.
	if err := db.AutoMigrate(&migrationLockRecord{}); err != nil {
		return nil, fmt.Errorf("create migration lock table: %w", err)
	}
	return &tableMigrationLock{db: db, cfg: cfg}, nil
}

type noopMigrationLock struct{}

func (noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	// Session-level advisory locks belong to a connection, so both calls
	// must run on the same one.
	conn, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	c, err := conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve connection: %w", err)
	}
	defer c.Close()

	if _, err := c.ExecContext(ctx, "SELECT pg_advisory_lock($1)", l.lockID); err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	defer func() {
		_, _ = c.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", l.lockID)
	}()

	return fn()
}

// migrationLockRecord is the lock row for databases without advisory locks.
type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "governance_migration_lock" }

// tableMigrationLock relies on primary-key uniqueness: only one replica can
// insert the row. Rows older than StaleAge are removed before each attempt.
type tableMigrationLock struct {
	db  *gorm.DB
	cfg *Config
}

func (l *tableMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	row := migrationLockRecord{ID: l.cfg.LockName, LockedBy: l.cfg.Identity}

	var lastErr error
	for i := 0; i < l.cfg.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", row.ID, time.Now().Add(-l.cfg.StaleAge)).
			Delete(&migrationLockRecord{})

		row.LockedAt = time.Now()
		lastErr = l.db.WithContext(ctx).Create(&row).Error
		if lastErr == nil {
			defer l.db.WithContext(context.WithoutCancel(ctx)).Where("id = ?", row.ID).Delete(&migrationLockRecord{})
			return fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.RetryInterval):
		}
	}
	return fmt.Errorf("acquire migration lock %q after %d attempts: %w", row.ID, l.cfg.MaxRetries, lastErr)
}
