package service

import (
	_ "embed"
	"encoding/json"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/logger"
	"notegenius/internal/platform/schema"
	"notegenius/internal/platform/validate"
)

// SnapshotKey is the local storage key of the session snapshot.
const SnapshotKey = "notegenius.study-session"

//go:embed schema/snapshot.schema.json
var snapshotSchemaJSON []byte

var snapshotSchema = schema.MustCompile(snapshotSchemaJSON)

type snapshot struct {
	SessionID       string  `json:"sessionId" validate:"required"`
	UserID          string  `json:"userId"`
	IsActive        bool    `json:"isActive"`
	StartTime       string  `json:"startTime" validate:"required"`
	ElapsedSeconds  int     `json:"elapsedSeconds" validate:"gte=0"`
	CurrentActivity string  `json:"currentActivity" validate:"oneof=general flashcard_study note_review quiz_taking"`
	IsPaused        bool    `json:"isPaused"`
	PauseReason     string  `json:"pauseReason,omitempty" validate:"omitempty,oneof=navigation visibility inactivity user"`
	PausedSeconds   int     `json:"pausedSeconds" validate:"gte=0"`
	PausedAt        *string `json:"pausedAt,omitempty"`
	LastPath        string  `json:"lastPath,omitempty" validate:"omitempty,startswith=/,max=2048"`
}

// persistence mirrors the session state into the local store. Writes are
// skipped when the encoded snapshot did not change.
type persistence struct {
	store     trackerout.LocalStore
	key       string
	validator *validate.Validator
	log       logger.Logger
	last      string
}

func newPersistence(store trackerout.LocalStore, key string, log logger.Logger) *persistence {
	return &persistence{store: store, key: key, validator: validate.New(), log: log}
}

// save writes state together with the last known route, which lets the next
// process compare its first route against where this one left off.
func (p *persistence) save(state domain.SessionState, route string) {
	if !state.IsActive {
		return
	}
	snap := toSnapshot(state)
	snap.LastPath = route
	raw, err := json.Marshal(snap)
	if err != nil {
		p.log.Error("encode session snapshot", err)
		return
	}
	encoded := string(raw)
	if encoded == p.last {
		return
	}
	if err := p.store.Set(p.key, encoded); err != nil {
		p.log.Warn("write session snapshot", err)
		return
	}
	p.last = encoded
}

func (p *persistence) clear() {
	p.last = ""
	if err := p.store.Remove(p.key); err != nil {
		p.log.Warn("remove session snapshot", err)
	}
}

// restore loads the snapshot and returns it only when it passes the schema,
// field validation and the plausibility limits. Anything else is removed.
func (p *persistence) restore(now time.Time, limits domain.Limits) (domain.SessionState, string, bool) {
	raw, ok, err := p.store.Get(p.key)
	if err != nil {
		p.log.Warn("read session snapshot", err)
		return domain.SessionState{}, "", false
	}
	if !ok {
		return domain.SessionState{}, "", false
	}
	state, route, err := p.decode([]byte(raw))
	if err == nil && state.IsActive {
		err = limits.CheckState(state, now)
	}
	if err != nil || !state.IsActive {
		if err != nil {
			p.log.Warn("discarding session snapshot", err)
		}
		p.clear()
		return domain.SessionState{}, "", false
	}
	p.last = raw
	return state, route, true
}

func (p *persistence) decode(raw []byte) (domain.SessionState, string, error) {
	if !json.Valid(raw) {
		return domain.SessionState{}, "", apperrors.ErrInvalidSnapshot
	}
	if err := snapshotSchema.ValidateJSON(raw); err != nil {
		return domain.SessionState{}, "", err
	}
	snap := snapshot{}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.SessionState{}, "", err
	}
	if err := p.validator.Struct(snap); err != nil {
		return domain.SessionState{}, "", err
	}
	state, err := snap.toState()
	return state, snap.LastPath, err
}

func toSnapshot(s domain.SessionState) snapshot {
	snap := snapshot{
		SessionID:       s.SessionID,
		UserID:          s.UserID,
		IsActive:        s.IsActive,
		ElapsedSeconds:  s.ElapsedSeconds,
		CurrentActivity: string(s.CurrentActivity),
		IsPaused:        s.IsPaused,
		PauseReason:     string(s.PauseReason),
		PausedSeconds:   s.PausedSeconds,
	}
	if s.StartTime != nil {
		snap.StartTime = s.StartTime.UTC().Format(time.RFC3339Nano)
	}
	if s.PausedAt != nil {
		at := s.PausedAt.UTC().Format(time.RFC3339Nano)
		snap.PausedAt = &at
	}
	return snap
}

func (s snapshot) toState() (domain.SessionState, error) {
	start, err := time.Parse(time.RFC3339Nano, s.StartTime)
	if err != nil {
		return domain.SessionState{}, err
	}
	state := domain.SessionState{
		SessionID:       s.SessionID,
		UserID:          s.UserID,
		IsActive:        s.IsActive,
		StartTime:       &start,
		ElapsedSeconds:  s.ElapsedSeconds,
		CurrentActivity: domain.Activity(s.CurrentActivity),
		IsPaused:        s.IsPaused,
		PauseReason:     domain.PauseReason(s.PauseReason),
		PausedSeconds:   s.PausedSeconds,
	}
	if s.PausedAt != nil {
		at, err := time.Parse(time.RFC3339Nano, *s.PausedAt)
		if err != nil {
			return domain.SessionState{}, err
		}
		state.PausedAt = &at
	}
	return state, nil
}
