package domain

// Task is a standing search: a listing page to poll, acceptance thresholds and a purchase quota.
type Task struct {
	ID     int64
	Link   string
	Pages  int
	Float  float64
	Price  int64 // minor currency units, fee included
	Amount int
}

// Active reports whether the task still has purchase quota left.
func (t Task) Active() bool {
	return t.Amount > 0
}

// RequestLogEntry records a single listing page request made for a task.
type RequestLogEntry struct {
	TaskID int64
}
