package commands

// localQueue satisfies the app services' queue dependency for one-shot
// commands. The CLI process runs no scheduler: pending tasks are settled
// directly in the registry, and a serving process sharing the registry picks
// up cancellation of running tasks at its next stage boundary.
type localQueue struct{}

func (localQueue) Enqueue(taskID string) error { return nil }
func (localQueue) Cancel(taskID string) bool   { return false }
