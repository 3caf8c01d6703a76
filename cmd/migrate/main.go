package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/storefront-catalog/internal/config"
	"github.com/light-bringer/storefront-catalog/internal/obs"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	v := config.New()

	dbFlag := flag.String("database", v.GetString("SPANNER_DATABASE"), "Spanner database path (projects/P/instances/I/databases/D)")
	migrateDir := flag.String("migrations", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	logger, err := obs.NewLogger(v.GetString("LOG_LEVEL"), v.GetBool("LOG_DEVELOPMENT"))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := parseDatabasePath(*dbFlag)
	if err != nil {
		logger.Fatal("invalid database path", zap.Error(err))
	}

	if host := os.Getenv("SPANNER_EMULATOR_HOST"); host != "" {
		logger.Info("using Spanner emulator", zap.String("host", host))
	}

	m := &migrator{db: db, dir: *migrateDir, log: logger}
	if err := m.run(context.Background()); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations completed", zap.String("database", db.path()))
}

type migrator struct {
	db  databasePath
	dir string
	log *zap.Logger
}

func (m *migrator) run(ctx context.Context) error {
	if err := m.ensureInstance(ctx); err != nil {
		return fmt.Errorf("failed to ensure instance: %w", err)
	}
	if err := m.ensureDatabase(ctx); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}
	if err := m.applyMigrations(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// ensureInstance creates the instance on the emulator config when missing.
func (m *migrator) ensureInstance(ctx context.Context) error {
	admin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer admin.Close()

	_, err = admin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: m.db.instancePath()})
	switch status.Code(err) {
	case codes.OK:
		m.log.Debug("instance exists", zap.String("instance", m.db.Instance))
		return nil
	case codes.NotFound:
	default:
		m.log.Warn("unexpected error checking instance", zap.Error(err))
		return nil
	}

	m.log.Info("creating instance", zap.String("instance", m.db.Instance))
	op, err := admin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + m.db.Project,
		InstanceId: m.db.Instance,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", m.db.Project),
			DisplayName: "Storefront catalog",
			NodeCount:   1,
		},
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		m.log.Warn("instance creation did not settle", zap.Error(err))
	}
	return nil
}

func (m *migrator) ensureDatabase(ctx context.Context) error {
	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	_, err = admin.GetDatabase(ctx, &databasepb.GetDatabaseRequest{Name: m.db.path()})
	switch status.Code(err) {
	case codes.OK:
		m.log.Debug("database exists", zap.String("database", m.db.Database))
		return nil
	case codes.NotFound:
	default:
		if os.Getenv("SPANNER_EMULATOR_HOST") != "" {
			m.log.Warn("proceeding without database check", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to check database: %w", err)
	}

	m.log.Info("creating database", zap.String("database", m.db.Database))
	op, err := admin.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          m.db.instancePath(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", m.db.Database),
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil
}

// applyMigrations runs every *.sql file in lexical order. Statements that
// already ran fail with AlreadyExists, which is logged and skipped so the
// command can be re-run.
func (m *migrator) applyMigrations(ctx context.Context) error {
	files, err := filepath.Glob(filepath.Join(m.dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	if len(files) == 0 {
		m.log.Warn("no migration files found", zap.String("dir", m.dir))
		return nil
	}
	sort.Strings(files)

	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	for _, file := range files {
		name := filepath.Base(file)
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		statements := splitDDLStatements(string(content))
		if len(statements) == 0 {
			continue
		}

		op, err := admin.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   m.db.path(),
			Statements: statements,
		})
		if err == nil {
			err = op.Wait(ctx)
		}
		if status.Code(err) == codes.AlreadyExists || status.Code(err) == codes.FailedPrecondition {
			m.log.Info("migration already applied", zap.String("file", name), zap.Error(err))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		m.log.Info("applied migration", zap.String("file", name), zap.Int("statements", len(statements)))
	}
	return nil
}
