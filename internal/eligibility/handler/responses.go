package handler

import (
	"time"

	"github.com/google/uuid"

	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
)

// SnapshotResponse is the JSON view of the workflow state.
type SnapshotResponse struct {
	RunID      *uuid.UUID             `json:"runId,omitempty"`
	Stage      eligibility.Stage      `json:"stage"`
	Step       int                    `json:"step"`
	Processing bool                   `json:"processing"`
	Message    string                 `json:"message"`
	Form       health.Form            `json:"form"`
	Encrypted  *health.EncryptedInput `json:"encrypted,omitempty"`
	Receipt    *health.Receipt        `json:"receipt,omitempty"`
	Result     *health.Result         `json:"result,omitempty"`
	Failure    string                 `json:"failure,omitempty"`
}

// FromSnapshot converts a workflow snapshot to its response shape.
func FromSnapshot(s eligibility.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Stage:      s.Stage,
		Step:       s.Stage.Step(),
		Processing: s.Stage.IsProcessing(),
		Message:    s.Message,
		Form:       s.Form,
		Receipt:    s.Receipt,
		Result:     s.Result,
		Failure:    s.Failure,
	}
	if s.RunID != uuid.Nil {
		id := s.RunID
		resp.RunID = &id
	}
	if s.Encrypted.IsComplete() {
		enc := s.Encrypted
		resp.Encrypted = &enc
	}
	return resp
}

// SubmitResponse is returned with 202 Accepted when a run starts.
type SubmitResponse struct {
	RunID   uuid.UUID         `json:"runId"`
	Stage   eligibility.Stage `json:"stage"`
	Message string            `json:"message"`
}

// EventResponse is one websocket message.
type EventResponse struct {
	Kind     string            `json:"kind"`
	RunID    *uuid.UUID        `json:"runId,omitempty"`
	Stage    eligibility.Stage `json:"stage"`
	Message  string            `json:"message"`
	Snapshot SnapshotResponse  `json:"snapshot"`
	At       time.Time         `json:"at"`
}

// FromEvent converts a workflow event to its websocket message.
func FromEvent(ev eligibility.Event) EventResponse {
	resp := EventResponse{
		Kind:     string(ev.Kind),
		Stage:    ev.Stage,
		Message:  ev.Message,
		Snapshot: FromSnapshot(ev.Snapshot),
		At:       ev.At,
	}
	if ev.RunID != uuid.Nil {
		id := ev.RunID
		resp.RunID = &id
	}
	return resp
}

// WalletResponse is returned by POST /wallet/connect.
type WalletResponse struct {
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StatusResponse is returned by GET /health-status.
type StatusResponse struct {
	Metric health.Metric `json:"metric"`
	Value  int           `json:"value"`
	Status string        `json:"status"`
	Hint   health.Range  `json:"hint"`
}
