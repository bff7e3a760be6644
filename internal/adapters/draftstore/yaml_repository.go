// Package draftstore provides adapters for wizard draft checkpoints.
package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

// ErrInvalidName is returned for wizard or session names that are not safe
// to use as file names.
var ErrInvalidName = errors.New("invalid draft name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// snapshotDTO is the on-disk form of a snapshot. Step data stays JSON so the
// file can be restored without knowing the step types.
type snapshotDTO struct {
	Wizard    string            `yaml:"wizard"`
	SessionID string            `yaml:"session_id"`
	Current   int               `yaml:"current"`
	UpdatedAt time.Time         `yaml:"updated_at"`
	Steps     map[string]string `yaml:"steps"`
}

func toDTO(s wizard.Snapshot) snapshotDTO {
	steps := make(map[string]string, len(s.Steps))
	for id, raw := range s.Steps {
		steps[string(id)] = string(raw)
	}
	return snapshotDTO{
		Wizard:    s.Wizard,
		SessionID: s.SessionID,
		Current:   s.Current,
		UpdatedAt: s.UpdatedAt,
		Steps:     steps,
	}
}

func fromDTO(d snapshotDTO) wizard.Snapshot {
	steps := make(map[wizard.StepID]json.RawMessage, len(d.Steps))
	for id, raw := range d.Steps {
		steps[wizard.StepID(id)] = json.RawMessage(raw)
	}
	return wizard.Snapshot{
		Wizard:    d.Wizard,
		SessionID: d.SessionID,
		Current:   d.Current,
		UpdatedAt: d.UpdatedAt,
		Steps:     steps,
	}
}

// YAMLRepository implements wizard.Repository with one YAML file per
// session under dir/<wizard>/<session>.yaml.
type YAMLRepository struct {
	dir string
}

// NewYAMLRepository creates a repository rooted at dir.
func NewYAMLRepository(dir string) *YAMLRepository {
	return &YAMLRepository{dir: dir}
}

func (r *YAMLRepository) path(wizardName, sessionID string) (string, error) {
	if !namePattern.MatchString(wizardName) || !namePattern.MatchString(sessionID) {
		return "", fmt.Errorf("%w: %q/%q", ErrInvalidName, wizardName, sessionID)
	}
	return filepath.Join(r.dir, wizardName, sessionID+".yaml"), nil
}

// Save writes a snapshot atomically.
func (r *YAMLRepository) Save(_ context.Context, snap wizard.Snapshot) error {
	path, err := r.path(snap.Wizard, snap.SessionID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(toDTO(snap))
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write draft: %w", err)
	}
	return nil
}

// Load reads a snapshot.
func (r *YAMLRepository) Load(_ context.Context, wizardName, sessionID string) (*wizard.Snapshot, error) {
	path, err := r.path(wizardName, sessionID)
	if err != nil {
		return nil, err
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes a snapshot.
func (r *YAMLRepository) Delete(_ context.Context, wizardName, sessionID string) error {
	path, err := r.path(wizardName, sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return wizard.ErrSnapshotNotFound
		}
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// List returns snapshots, most recent first. Unreadable files are skipped.
func (r *YAMLRepository) List(_ context.Context, wizardName string) ([]wizard.Snapshot, error) {
	dirs := []string{wizardName}
	if wizardName == "" {
		entries, err := os.ReadDir(r.dir)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts: %w", err)
		}
		dirs = dirs[:0]
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, e.Name())
			}
		}
	} else if !namePattern.MatchString(wizardName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, wizardName)
	}

	var snaps []wizard.Snapshot
	for _, d := range dirs {
		entries, err := os.ReadDir(filepath.Join(r.dir, d))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
				continue
			}
			snap, err := readSnapshot(filepath.Join(r.dir, d, e.Name()))
			if err != nil {
				continue
			}
			snaps = append(snaps, snap)
		}
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].UpdatedAt.After(snaps[j].UpdatedAt)
	})
	return snaps, nil
}

func readSnapshot(path string) (wizard.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return wizard.Snapshot{}, wizard.ErrSnapshotNotFound
		}
		return wizard.Snapshot{}, fmt.Errorf("failed to read draft: %w", err)
	}

	var dto snapshotDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return wizard.Snapshot{}, fmt.Errorf("failed to parse draft %s: %w", filepath.Base(path), err)
	}
	return fromDTO(dto), nil
}

// Ensure YAMLRepository implements wizard.Repository.
var _ wizard.Repository = (*YAMLRepository)(nil)
