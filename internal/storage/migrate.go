package storage

import (
	"fmt"

	"whatsapp-api/internal/models"
)

// Migrate runs schema setup for local/dev environments. Per spec §1 the
// relational schema is otherwise treated as fixed collaborator state; this
// exists only so a fresh checkout can stand up a working database, mirroring
// the teacher's internal/database/migrations.go extension-enabling step.
func (g *Gateway) Migrate() error {
	if err := g.db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("storage: enable uuid-ossp: %w", err)
	}
	if err := g.db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("storage: enable pgcrypto: %w", err)
	}

	err := g.db.AutoMigrate(
		&models.Session{},
		&models.Message{},
		&models.Conversation{},
		&models.Contact{},
		&models.Event{},
		&models.UserIdentityCorrelation{},
		&models.Conversion{},
	)
	if err != nil {
		return fmt.Errorf("storage: automigrate: %w", err)
	}

	return g.enableRowLevelSecurity()
}

// enableRowLevelSecurity turns on RLS for every tenant-scoped table and
// installs the team_id policy the session variables set by
// TransactionWithContext are checked against.
func (g *Gateway) enableRowLevelSecurity() error {
	tables := []string{
		"whatsapp_session", "whatsapp_message", "whatsapp_conversation",
		"whatsapp_contact", "whatsapp_event",
		"whatsapp_user_identity_correlation", "whatsapp_conversions",
	}
	for _, table := range tables {
		if err := g.db.Exec(fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table)).Error; err != nil {
			return fmt.Errorf("storage: enable RLS on %s: %w", table, err)
		}
		policy := fmt.Sprintf(`
			DROP POLICY IF EXISTS tenant_isolation ON %s;
			CREATE POLICY tenant_isolation ON %s
				USING (team_id = current_setting('app.current_team_id', true));
		`, table, table)
		if err := g.db.Exec(policy).Error; err != nil {
			return fmt.Errorf("storage: create policy on %s: %w", table, err)
		}
	}
	return nil
}
