package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/db"
	"github.com/newhook/ecuci/internal/logging"
)

const (
	// ConfigDir is the directory name for project configuration.
	ConfigDir = logging.ConfigDir
	// ConfigFile is the name of the project config file.
	ConfigFile = "config.toml"
	// ArchiveDir holds the archived reports of all builds.
	ArchiveDir = "archive"
)

// Project represents an ecuci project: a workspace with ecu.test
// installations, publishers and a build history.
type Project struct {
	Root   string  // Project directory path
	Config *Config // Parsed config.toml
	DB     *db.DB  // Build history database
}

// Find finds a project from a flag value or current directory.
// If flagValue is non-empty, uses that path; otherwise uses cwd.
func Find(ctx context.Context, flagValue string) (*Project, error) {
	if flagValue != "" {
		return find(ctx, flagValue)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return find(ctx, cwd)
}

// find walks up from startDir looking for a .ecuci/ directory.
func find(ctx context.Context, startDir string) (*Project, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	for {
		configPath := filepath.Join(dir, ConfigDir, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return load(ctx, dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no project found (no %s directory)", ConfigDir)
		}
		dir = parent
	}
}

// load loads a project from the given root directory.
func load(ctx context.Context, root string) (*Project, error) {
	configPath := filepath.Join(root, ConfigDir, ConfigFile)
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	database, err := db.OpenPath(ctx, filepath.Join(root, ConfigDir, db.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open build database: %w", err)
	}

	if err := logging.Init(root); err != nil {
		logging.Warn("failed to initialize logging", "error", err)
	}

	return &Project{
		Root:   root,
		Config: cfg,
		DB:     database,
	}, nil
}

// Create initializes a new project at the given directory with the given
// installations.
func Create(ctx context.Context, dir string, installs []InstallationConfig) (*Project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDir)
	if _, err := os.Stat(configDir); err == nil {
		return nil, fmt.Errorf("project already exists at %s", absDir)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	cfg := &Config{
		Project: ProjectConfig{
			Name:      filepath.Base(absDir),
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		Installations: installs,
	}
	configPath := filepath.Join(configDir, ConfigFile)
	if err := cfg.SaveDocumented(configPath); err != nil {
		os.RemoveAll(configDir)
		return nil, err
	}

	database, err := db.OpenPath(ctx, filepath.Join(configDir, db.FileName))
	if err != nil {
		os.RemoveAll(configDir)
		return nil, fmt.Errorf("failed to initialize build database: %w", err)
	}

	return &Project{
		Root:   absDir,
		Config: cfg,
		DB:     database,
	}, nil
}

// Name returns the configured project name or the root directory name.
func (p *Project) Name() string {
	if p.Config.Project.Name != "" {
		return p.Config.Project.Name
	}
	return filepath.Base(p.Root)
}

// ArchivePath returns the per-project archive root shared by all builds.
func (p *Project) ArchivePath() string {
	return filepath.Join(p.Root, ConfigDir, ArchiveDir)
}

// Workspace returns the build workspace.
func (p *Project) Workspace() string {
	return p.Config.WorkspaceDir(p.Root)
}

// Env returns the build environment: the process environment overlaid with
// the configured build variables.
func (p *Project) Env() build.EnvVars {
	env := build.EnvFromOS()
	for k, v := range p.Config.EnvVars() {
		env[k] = v
	}
	return env
}

// NewRun allocates the next build number and records a new build.
func (p *Project) NewRun(ctx context.Context) (*build.Run, error) {
	number, err := p.DB.NextBuildNumber(ctx, p.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate build number: %w", err)
	}
	env := p.Env().With("BUILD_NUMBER", fmt.Sprint(number))
	run := build.NewRun(p.ArchivePath(), number, p.Workspace(), env)
	run.Env["BUILD_ID"] = run.ID
	if err := p.DB.CreateBuild(ctx, p.Name(), run); err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}
	return run, nil
}

// FinishRun stores the actions and the result of run.
func (p *Project) FinishRun(ctx context.Context, run *build.Run) error {
	if err := p.DB.SaveActions(ctx, run); err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}
	return p.DB.FinishBuild(ctx, run.ID, run.Result())
}

// Close closes any open resources.
func (p *Project) Close() error {
	var errs []error
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}
