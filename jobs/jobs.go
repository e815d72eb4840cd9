// Package jobs runs file operations as asynchronous units on a fixed worker
// pool and reports lifecycle transitions back to the interactive core.
package jobs

import (
	"fmt"

	"github.com/gigimon/vcmc/fs"
)

// Kind is the operation a job performs.
type Kind int

// Job kinds
const (
	KindCopy Kind = iota
	KindMove
	KindDelete
	KindMkdir
)

// String returns the lowercase op name used in job messages.
func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	}
	return "mkdir"
}

// Status is the lifecycle state of a job. Transitions are
// Queued -> Running -> (Done | Failed), never backwards.
type Status int

// Job statuses
const (
	StatusQueued Status = iota
	StatusRunning
	StatusDone
	StatusFailed
)

// String returns the status display name
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	}
	return "failed"
}

// Job is the reducer-side record of one unit of deferred work.
type Job struct {
	ID          uint64
	BatchID     uint64 // 0 when the job is not part of a batch
	Kind        Kind
	Status      Status
	Source      string
	Destination string
	Message     string
}

// Request is what the reducer submits to the pool. Backends are named by
// spec so workers resolve their own shared instances.
type Request struct {
	ID                 uint64
	BatchID            uint64
	Kind               Kind
	SourceBackend      fs.BackendSpec
	DestinationBackend *fs.BackendSpec // nil means same as source
	Source             string
	Destination        string
}

// Update is one lifecycle transition emitted by a worker.
type Update struct {
	ID          uint64
	BatchID     uint64
	Kind        Kind
	Status      Status
	Source      string
	Destination string
	Message     string
}

// Job converts a terminal update into a fresh job record, used when an
// update arrives for an id the reducer has never seen.
func (u Update) Job() Job {
	return Job{
		ID:          u.ID,
		BatchID:     u.BatchID,
		Kind:        u.Kind,
		Status:      u.Status,
		Source:      u.Source,
		Destination: u.Destination,
		Message:     u.Message,
	}
}

func successMessage(req *Request) string {
	return fmt.Sprintf("%s done: %s", req.Kind, req.Source)
}

func failureMessage(req *Request, err error) string {
	dst := req.Destination
	if dst == "" {
		dst = "-"
	}
	return fmt.Sprintf("%s failed: src=%s dst=%s reason=%v", req.Kind, req.Source, dst, err)
}
