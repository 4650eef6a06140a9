package query

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Record is a snapshot of one query.
//
// Success implies HasData and a nil Err; error implies the reverse.
// Cancelled is only set by an error transition caused by an abort.
type Record[T any] struct {
	Status     Status
	Data       T
	HasData    bool
	Err        error
	Cancelled  bool
	Generation uint64
	UpdatedAt  time.Time
}

func (r Record[T]) IsLoading() bool { return r.Status == StatusLoading }

func (r Record[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Status     Status     `json:"status"`
		Data       any        `json:"data,omitempty"`
		Error      string     `json:"error,omitempty"`
		Cancelled  bool       `json:"cancelled"`
		Generation uint64     `json:"generation"`
		UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	}{
		Status:     r.Status,
		Cancelled:  r.Cancelled,
		Generation: r.Generation,
	}
	if out.Status == "" {
		out.Status = StatusIdle
	}
	if r.HasData {
		out.Data = r.Data
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if !r.UpdatedAt.IsZero() {
		ts := r.UpdatedAt.UTC()
		out.UpdatedAt = &ts
	}
	return json.Marshal(out)
}

// Outcome is how an attempt finished.
type Outcome[T any] struct {
	Data    T
	Err     error
	Aborted bool
}

func Success[T any](data T) Outcome[T] { return Outcome[T]{Data: data} }

// Failure classifies err: cancellations become aborted outcomes.
func Failure[T any](err error) Outcome[T] {
	if IsAborted(err) {
		return Outcome[T]{Err: err, Aborted: true}
	}
	return Outcome[T]{Err: err}
}

func Aborted[T any]() Outcome[T] { return Outcome[T]{Err: ErrAborted, Aborted: true} }
