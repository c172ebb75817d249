package report

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// AccountJob tracks the usage fetch for one account.
type AccountJob struct {
	Account    string
	Status     JobStatus
	Err        error
	Months     int
	StartedAt  time.Time
	FinishedAt time.Time
}

func (j *AccountJob) start() {
	j.Status = JobStatusRunning
	j.StartedAt = time.Now()
}

func (j *AccountJob) finish(months int) {
	j.Status = JobStatusDone
	j.Months = months
	j.FinishedAt = time.Now()
}

func (j *AccountJob) fail(err error) {
	j.Status = JobStatusFailed
	j.Err = err
	j.FinishedAt = time.Now()
}

func (j *AccountJob) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// queue holds one job per distinct account, in the given order. It is drained
// by a single goroutine.
type queue struct {
	jobs       []*AccountJob
	duplicates []string
}

func newQueue(accounts []string) *queue {
	q := &queue{}
	seen := make(map[string]bool, len(accounts))
	for _, account := range accounts {
		if seen[account] {
			q.duplicates = append(q.duplicates, account)
			continue
		}
		seen[account] = true
		q.jobs = append(q.jobs, &AccountJob{Account: account, Status: JobStatusPending})
	}
	return q
}

func (q *queue) count(status JobStatus) int {
	n := 0
	for _, j := range q.jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}
