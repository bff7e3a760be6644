package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a checkpoint of a wizard session. Step data is kept as JSON
// so repositories never need to know the concrete step types.
type Snapshot struct {
	Wizard    string                     `json:"wizard" yaml:"wizard"`
	SessionID string                     `json:"sessionId" yaml:"session_id"`
	Current   int                        `json:"current" yaml:"current"`
	Steps     map[StepID]json.RawMessage `json:"steps" yaml:"-"`
	UpdatedAt time.Time                  `json:"updatedAt" yaml:"updated_at"`
}

// Repository persists snapshots so a draft survives restarts and detours
// such as signing in halfway through checkout.
type Repository interface {
	Save(ctx context.Context, snap Snapshot) error
	// Load returns ErrSnapshotNotFound for unknown sessions.
	Load(ctx context.Context, wizard, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, wizard, sessionID string) error
	// List returns the snapshots of a wizard, most recent first. An empty
	// wizard name lists every wizard.
	List(ctx context.Context, wizard string) ([]Snapshot, error)
}

// encodeDraft serializes every step. KindSecret and KindOTP fields are
// left out, so passwords and codes never reach a repository.
func encodeDraft(defs []Definition, draft Draft) (map[StepID]json.RawMessage, error) {
	out := make(map[StepID]json.RawMessage, len(defs))
	for _, def := range defs {
		data, ok := draft.steps[def.ID]
		if !ok {
			continue
		}
		raw, err := json.Marshal(data)
		if err == nil {
			raw, err = redact(raw, def.Form)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode step %s: %w", def.ID, err)
		}
		out[def.ID] = raw
	}
	return out, nil
}

func redact(raw json.RawMessage, form []Field) (json.RawMessage, error) {
	var secrets []string
	for _, f := range form {
		if f.Kind == KindSecret || f.Kind == KindOTP {
			secrets = append(secrets, f.Name)
		}
	}
	if len(secrets) == 0 {
		return raw, nil
	}

	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	for _, name := range secrets {
		delete(obj, name)
	}
	return json.Marshal(obj)
}

func decodeDraft(defs []Definition, steps map[StepID]json.RawMessage) (map[StepID]StepData, error) {
	out := make(map[StepID]StepData, len(defs))
	for _, def := range defs {
		raw, ok := steps[def.ID]
		if !ok {
			continue
		}
		data, err := def.decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode step %s: %w", def.ID, err)
		}
		out[def.ID] = data
	}
	return out, nil
}
