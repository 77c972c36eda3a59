package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks the steps of one Advance call.
type ProgressBar struct {
	sync.Mutex
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	Finished  uint64
}

// ProgressView is a point-in-time copy of a ProgressBar.
type ProgressView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished adds a certain amount to the finished steps.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// Snapshot returns a copy of the bar.
func (b *ProgressBar) Snapshot() ProgressView {
	b.Lock()
	defer b.Unlock()

	return ProgressView{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}
