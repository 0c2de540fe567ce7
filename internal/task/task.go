// Package task holds the client-side view of one backend generation task and
// the pure rules that move it through its lifecycle.
package task

import (
	"time"

	"qvox/internal/backend"
)

// Phase is the coarse lifecycle state of a Task.
type Phase string

const (
	Processing Phase = "processing"
	Completed  Phase = "completed"
	Failed     Phase = "failed"
	Cancelled  Phase = "cancelled"
)

// Terminal reports whether the phase accepts no further transitions.
func (p Phase) Terminal() bool { return p == Completed || p == Failed || p == Cancelled }

// ErrorKind classifies LastError.
type ErrorKind string

const (
	ErrorNone        ErrorKind = ""
	ErrorPoll        ErrorKind = "poll"
	ErrorBackend     ErrorKind = "backend"
	ErrorResultFetch ErrorKind = "result_fetch"
	ErrorCancel      ErrorKind = "cancel"
)

// MultiSegment tracks progress through a multi-speaker request.
type MultiSegment struct {
	Current int
	Total   int
}

// Task is one submitted generation request as seen by the client.
type Task struct {
	ID           string
	Kind         backend.Kind
	Phase        Phase
	Progress     int
	MultiSegment *MultiSegment
	// Elapsed advances by one tick interval per successful poll and never
	// reads backend timing.
	Elapsed   time.Duration
	LastError string
	ErrorKind ErrorKind
	// ResultAudio is set at most once, and only while Phase is Completed.
	ResultAudio []byte
	// FetchAttempted latches on the first observation of Completed.
	FetchAttempted bool
	OutputPath     string
	CreatedAt      time.Time
}

// New returns a Processing task at progress 0. segments > 0 marks a
// multi-speaker task with that many segments.
func New(id string, kind backend.Kind, segments int, now time.Time) Task {
	t := Task{ID: id, Kind: kind, Phase: Processing, CreatedAt: now}
	if segments > 0 {
		t.MultiSegment = &MultiSegment{Current: 0, Total: segments}
	}
	return t
}

// Clone returns a copy that shares no mutable state with t.
func (t Task) Clone() Task {
	if t.MultiSegment != nil {
		ms := *t.MultiSegment
		t.MultiSegment = &ms
	}
	if t.ResultAudio != nil {
		t.ResultAudio = append([]byte(nil), t.ResultAudio...)
	}
	return t
}

// HasAudio reports whether the result bytes were fetched.
func (t Task) HasAudio() bool { return len(t.ResultAudio) > 0 }
