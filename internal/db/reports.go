package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/report"
)

// SaveReports stores the report action of one kind for a build, replacing a
// previously stored one.
func (db *DB) SaveReports(ctx context.Context, buildID, kind string, projectLevel bool, action any) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode %s reports: %w", kind, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO reports (build_id, kind, project_level, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT (build_id, kind) DO UPDATE SET project_level = excluded.project_level, payload = excluded.payload
	`, buildID, kind, projectLevel, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save %s reports of build %s: %w", kind, buildID, err)
	}
	return nil
}

// SaveActions stores the log and generator report actions attached to run.
// Several actions of one kind are merged in attachment order.
func (db *DB) SaveActions(ctx context.Context, run *build.Run) error {
	if logs := build.Actions[*report.LogAction](run); len(logs) > 0 {
		merged := &report.LogAction{}
		for _, a := range logs {
			merged.ProjectLevel = merged.ProjectLevel || a.ProjectLevel
			merged.Add(a.Reports...)
		}
		if err := db.SaveReports(ctx, run.ID, report.KindLogs, merged.ProjectLevel, merged); err != nil {
			return err
		}
	}
	if gens := build.Actions[*report.GeneratorAction](run); len(gens) > 0 {
		merged := &report.GeneratorAction{}
		for _, a := range gens {
			merged.ProjectLevel = merged.ProjectLevel || a.ProjectLevel
			merged.Add(a.Reports...)
		}
		if err := db.SaveReports(ctx, run.ID, report.KindGenerators, merged.ProjectLevel, merged); err != nil {
			return err
		}
	}
	return nil
}

// LoadLogReports returns the stored log action of a build, or nil.
func (db *DB) LoadLogReports(ctx context.Context, buildID string) (*report.LogAction, error) {
	var action report.LogAction
	ok, err := db.loadReports(ctx, buildID, report.KindLogs, &action)
	if !ok || err != nil {
		return nil, err
	}
	return &action, nil
}

// LoadGeneratorReports returns the stored generator action of a build, or nil.
func (db *DB) LoadGeneratorReports(ctx context.Context, buildID string) (*report.GeneratorAction, error) {
	var action report.GeneratorAction
	ok, err := db.loadReports(ctx, buildID, report.KindGenerators, &action)
	if !ok || err != nil {
		return nil, err
	}
	return &action, nil
}

func (db *DB) loadReports(ctx context.Context, buildID, kind string, dst any) (bool, error) {
	var payload string
	err := db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE build_id = ? AND kind = ?`, buildID, kind).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s reports of build %s: %w", kind, buildID, err)
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, fmt.Errorf("failed to decode %s reports of build %s: %w", kind, buildID, err)
	}
	return true, nil
}

// RemoveProjectReports deletes the project level reports of kind stored for
// every build except keep. A project level archive is shared by all builds,
// so only the newest index stays valid.
func (db *DB) RemoveProjectReports(ctx context.Context, kind, keep string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM reports WHERE kind = ? AND project_level = 1 AND build_id != ?`, kind, keep)
	if err != nil {
		return fmt.Errorf("failed to remove project %s reports: %w", kind, err)
	}
	return nil
}
