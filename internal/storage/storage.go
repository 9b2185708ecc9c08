// Package storage is the tenant-scoped relational gateway, per spec §4.1.
// Every tenant-scoped call takes a connection from the pool, begins a
// transaction, sets `app.current_team_id`/`app.current_user_role` from the
// request's tenant.Context, runs the caller's work, then commits or rolls
// back — enforcing row-level security at the database layer.
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"whatsapp-api/internal/apperr"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/tenant"
)

// Gateway wraps a GORM connection and enforces tenant isolation on every
// unit of work.
type Gateway struct {
	db  *gorm.DB
	log *logx.Logger
}

// Open establishes the pooled Postgres connection described by cfg.
func Open(cfg *config.Config, log *logx.Logger) (*Gateway, error) {
	gormConfig := &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	if cfg.Database.LogQueries {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Database.PoolMin)
	sqlDB.SetMaxOpenConns(cfg.Database.PoolMax)
	sqlDB.SetConnMaxIdleTime(cfg.Database.IdleTimeout)
	sqlDB.SetConnMaxLifetime(cfg.Database.IdleTimeout * 2)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &Gateway{db: db, log: log}, nil
}

// DB exposes the underlying *gorm.DB for package-level model migrations
// and repositories that need plain (non-tenant-scoped) access, such as
// system migrations run at boot.
func (g *Gateway) DB() *gorm.DB { return g.db }

// Close releases the pool.
func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the pool.
func (g *Gateway) HealthCheck() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Work is a unit of tenant-scoped work executed inside a single
// transaction with session variables applied.
type Work func(tx *gorm.DB) error

// ExecuteWithContext begins a transaction, sets the tenant session
// variables from ctx, runs fn, and commits. Rolls back on error or panic.
func (g *Gateway) ExecuteWithContext(ctx context.Context, fn Work) error {
	return g.TransactionWithContext(ctx, fn)
}

// TransactionWithContext is the named form spec §4.1 calls out alongside
// ExecuteWithContext; both share the same tenant-scoped transaction
// semantics in this implementation.
func (g *Gateway) TransactionWithContext(ctx context.Context, fn Work) error {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return apperr.New(apperr.KindInternal, "storage: no tenant context on scoped call")
	}

	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperr.StorageFailure(tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := setSessionVars(tx, tc); err != nil {
		tx.Rollback()
		return apperr.StorageFailure(err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		if _, ok := err.(*apperr.E); ok {
			return err
		}
		return apperr.StorageFailure(err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.StorageFailure(err)
	}
	return nil
}

func setSessionVars(tx *gorm.DB, tc tenant.Context) error {
	if err := tx.Exec("SELECT set_config('app.current_team_id', ?, true)", tc.TeamID).Error; err != nil {
		return err
	}
	if err := tx.Exec("SELECT set_config('app.current_user_role', ?, true)", string(tc.UserRole)).Error; err != nil {
		return err
	}
	return nil
}

// ExecuteRaw runs a raw, tenant-scoped query outside of GORM's model
// machinery, per spec §4.1.
func (g *Gateway) ExecuteRaw(ctx context.Context, sql string, args ...interface{}) *gorm.DB {
	tc, ok := tenant.FromContext(ctx)
	tx := g.db.WithContext(ctx)
	if ok {
		tx.Exec("SELECT set_config('app.current_team_id', ?, true)", tc.TeamID)
	}
	return tx.Raw(sql, args...)
}

// Page is the paginator spec §4.1 names.
type Page struct {
	Page    int
	PerPage int
}

// Offset/Limit translate a Page into SQL pagination clauses.
func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

func (p Page) Limit() int {
	if p.PerPage <= 0 {
		return 20
	}
	if p.PerPage > 200 {
		return 200
	}
	return p.PerPage
}

// TotalPages computes the page count for a given total row count.
func (p Page) TotalPages(total int64) int {
	limit := int64(p.Limit())
	if limit == 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return int(pages)
}

// DefaultIdleTimeout mirrors the teacher's original constant and equals
// config's DB_IDLE_TIMEOUT default; Open uses cfg.Database.IdleTimeout and
// does not read this constant.
const DefaultIdleTimeout = 5 * time.Minute
