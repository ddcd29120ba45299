package database

import (
	"github.com/sparksai/insight-server/internal/domain/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
//
// Only the tables this service owns are migrated. The warehouse tables
// and views the report queries read from (jira_issues, jira_sprints,
// issue_status_durations, epic_hierarchy_with_progress, ...) are
// populated and versioned by the ETL pipeline.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(&entity.ReportDefinition{}); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createHierarchyTables(db); err != nil {
		logger.Error("Failed to create hierarchy tables", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createHierarchyTables creates the group hierarchy tables. Teams are
// synced by the ETL pipeline, so only a compatible teams table is
// ensured for empty local environments.
func createHierarchyTables(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS public.groups (
			group_key SERIAL PRIMARY KEY,
			group_name TEXT NOT NULL,
			parent_group_key INTEGER REFERENCES public.groups(group_key),
			ai_insight BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS public.teams (
			team_key INTEGER PRIMARY KEY,
			team_name TEXT NOT NULL,
			number_of_team_members INTEGER DEFAULT 0,
			ai_insight BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS public.team_groups (
			team_id INTEGER NOT NULL REFERENCES public.teams(team_key),
			group_id INTEGER REFERENCES public.groups(group_key),
			PRIMARY KEY (team_id, group_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_team_groups_group_id ON public.team_groups (group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_parent ON public.groups (parent_group_key)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
