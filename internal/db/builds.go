package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/newhook/ecuci/internal/build"
)

// Build is a stored build record.
type Build struct {
	ID         string
	Number     int
	Project    string
	Workspace  string
	RootDir    string
	Result     build.Result
	StartedAt  time.Time
	FinishedAt *time.Time
}

const buildColumns = `id, number, project, workspace, root_dir, result, started_at, finished_at`

// NextBuildNumber returns the number the next build of project gets.
func (db *DB) NextBuildNumber(ctx context.Context, project string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM builds WHERE project = ?`, project).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to get next build number: %w", err)
	}
	return n, nil
}

// CreateBuild records run as a build of project.
func (db *DB) CreateBuild(ctx context.Context, project string, run *build.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO builds (id, number, project, workspace, root_dir, result, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Number, project, run.Workspace, run.RootDir, run.Result().String(), formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create build %s: %w", run.ID, err)
	}
	return nil
}

// FinishBuild stores the final result of a build.
func (db *DB) FinishBuild(ctx context.Context, id string, result build.Result) error {
	res, err := db.ExecContext(ctx, `UPDATE builds SET result = ?, finished_at = ? WHERE id = ?`,
		result.String(), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to finish build %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s not found", id)
	}
	return nil
}

// GetBuild returns the build with id, or nil if there is none.
func (db *DB) GetBuild(ctx context.Context, id string) (*Build, error) {
	row := db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build %s: %w", id, err)
	}
	return b, nil
}

// LatestBuild returns the newest build of project, or nil if there is none.
func (db *DB) LatestBuild(ctx context.Context, project string) (*Build, error) {
	builds, err := db.ListBuilds(ctx, project, 1)
	if err != nil || len(builds) == 0 {
		return nil, err
	}
	return builds[0], nil
}

// ListBuilds returns the builds of project, newest first. A limit of 0 or
// less returns all builds.
func (db *DB) ListBuilds(ctx context.Context, project string, limit int) ([]*Build, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		WHERE project = ?
		ORDER BY number DESC
		LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (*Build, error) {
	var (
		b         Build
		result    string
		startedAt string
		finished  sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Number, &b.Project, &b.Workspace, &b.RootDir, &result, &startedAt, &finished); err != nil {
		return nil, err
	}
	var err error
	if b.Result, err = build.ParseResult(result); err != nil {
		return nil, err
	}
	if b.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if b.FinishedAt, err = nullTime(finished); err != nil {
		return nil, err
	}
	return &b, nil
}
