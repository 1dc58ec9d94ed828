// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratahabit/internal/app/system/seeding"
	"github.com/dalemusser/stratahabit/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is the place for one-time initialization that depends on having live
// database connections and fully loaded configuration. Unlike ConnectDB and
// EnsureSchema which focus on infrastructure, Startup is for application-level
// initialization.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting. Returning nil signals that initialization succeeded.
//
// The context will be cancelled if the process is asked to shut down while
// Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// Seed admin user if configured
	if appCfg.SeedAdminEmail != "" {
		if err := seeding.SeedAdmin(ctx, deps.MongoDatabase, appCfg.SeedAdminEmail, appCfg.SeedAdminName, logger); err != nil {
			logger.Error("failed to seed admin user", zap.Error(err))
			return err
		}
	}

	// Start background task runner
	startTaskRunner(appCfg, deps, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	db := deps.MongoDatabase

	// Cleanup jobs for expired rows
	taskRunner.Register(tasks.SessionCleanupJob(db, logger))
	taskRunner.Register(tasks.OAuthStateCleanupJob(db, logger))

	// Close tracked sessions that have gone idle
	taskRunner.Register(tasks.InactiveSessionCleanupJob(db, logger, appCfg.SessionIdleTimeout))

	// Evict expired entries from the in-process override ledger
	taskRunner.Register(tasks.OverrideSweepJob(deps.OverrideLedger, logger))

	// Start running jobs
	taskRunner.Start()
}
