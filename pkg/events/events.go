// Package events implements the C4 Event Bus: an in-process, synchronous
// publish/subscribe mechanism for job lifecycle events. Delivery is
// synchronous and ordered per publisher call, with no retries and no
// persistence — the completion handler's own idempotence gate is the sole
// concurrency defense against re-delivery, per spec.md §4.4 and §9.
package events

import "sync"

// Reason is why a job finished or is being asked to be killed.
type Reason string

const (
	ReasonProcessCompleted Reason = "PROCESS_COMPLETED"
	ReasonKilled           Reason = "KILLED"
	ReasonFailedToInit     Reason = "FAILED_TO_INIT"
	ReasonInvalid          Reason = "INVALID"
)

// JobFinished is the terminal event for a job's monitor. At most one
// JobFinished with ReasonProcessCompleted is ever published per monitor
// instance.
type JobFinished struct {
	JobID   string
	Reason  Reason
	Message string
	Source  string
}

// KillJob is a request, consumed by the out-of-scope launch subsystem, to
// signal the job's process. It does not itself transition persisted status;
// the launcher signals the child and then publishes a subsequent
// JobFinished(reason=KILLED).
type KillJob struct {
	JobID  string
	Reason string
	Source string
}

// Bus is a synchronous, in-process fan-out registry. The zero value is ready
// to use; New returns a pointer to one.
type Bus struct {
	mu              sync.Mutex
	jobFinishedSubs []func(JobFinished)
	killJobSubs     []func(KillJob)
}

// New returns a ready-to-use Bus.
func New() *Bus {
	return &Bus{}
}

// SubscribeJobFinished registers fn to be called, in registration order, for
// every JobFinished published after this call.
func (b *Bus) SubscribeJobFinished(fn func(JobFinished)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobFinishedSubs = append(b.jobFinishedSubs, fn)
}

// SubscribeKillJob registers fn to be called, in registration order, for
// every KillJob published after this call.
func (b *Bus) SubscribeKillJob(fn func(KillJob)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killJobSubs = append(b.killJobSubs, fn)
}

// PublishJobFinished delivers e synchronously to every subscriber, in
// registration order, before returning.
func (b *Bus) PublishJobFinished(e JobFinished) {
	b.mu.Lock()
	subs := make([]func(JobFinished), len(b.jobFinishedSubs))
	copy(subs, b.jobFinishedSubs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// PublishKillJob delivers e synchronously to every subscriber, in
// registration order, before returning.
func (b *Bus) PublishKillJob(e KillJob) {
	b.mu.Lock()
	subs := make([]func(KillJob), len(b.killJobSubs))
	copy(subs, b.killJobSubs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
