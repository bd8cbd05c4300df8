package usecase

import (
	"context"
	"fmt"

	"MarketSniper/internal/ports"
)

// taskQueue hands out task ids one at a time and refills from storage when drained.
type taskQueue struct {
	tasks   ports.TaskRepository
	pending []int64
}

func newTaskQueue(tasks ports.TaskRepository) *taskQueue {
	return &taskQueue{tasks: tasks}
}

// next pops the following task id. The second value is false when storage has no
// active task to refill with.
func (q *taskQueue) next(ctx context.Context) (int64, bool, error) {
	if len(q.pending) == 0 {
		if err := q.refill(ctx); err != nil {
			return 0, false, err
		}
		if len(q.pending) == 0 {
			return 0, false, nil
		}
	}

	id := q.pending[0]
	q.pending = q.pending[1:]
	return id, true, nil
}

func (q *taskQueue) refill(ctx context.Context) error {
	tasks, err := q.tasks.ActiveTasks(ctx)
	if err != nil {
		return fmt.Errorf("load active tasks: %w", err)
	}
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		if task.Active() {
			ids = append(ids, task.ID)
		}
	}
	q.pending = ids
	return nil
}

// Len reports how many ids are left before the next refill.
func (q *taskQueue) Len() int {
	return len(q.pending)
}
