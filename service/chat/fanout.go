package chat

import (
	"realchat/logger"
)

// fanoutJob carries the affected recipients of one mutation and a builder
// that recomputes the per-recipient frames. The builder runs once per
// online recipient; offline recipients cost nothing and re-sync on their
// next connect.
type fanoutJob struct {
	recipients []string
	build      func(userID string) [][]byte
}

// Fanout is a fixed worker pool draining a job queue. Recomputation and
// delivery happen off the handler goroutine so a slow recipient never
// stalls the initiating session.
type Fanout struct {
	reg  *ConnRegistry
	jobs chan fanoutJob
}

func NewFanout(reg *ConnRegistry, workers, queue int) *Fanout {
	f := &Fanout{reg: reg, jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go f.worker()
	}
	return f
}

func (f *Fanout) worker() {
	for job := range f.jobs {
		for _, uid := range job.recipients {
			conns := f.reg.ListByUser(uid)
			if len(conns) == 0 {
				continue // offline: pull-based re-sync on reconnect
			}
			for _, payload := range job.build(uid) {
				for _, c := range conns {
					c.Push(payload)
				}
			}
		}
	}
}

// Push enqueues a recompute-and-deliver job for the given recipients.
func (f *Fanout) Push(recipients []string, build func(userID string) [][]byte) {
	if len(recipients) == 0 || build == nil {
		return
	}
	select {
	case f.jobs <- fanoutJob{recipients: recipients, build: build}:
	default:
		logger.Warnf("[fanout] queue full, dropping job for %d recipients", len(recipients))
	}
}
