package scheduler

import (
	"container/heap"

	"github.com/julianstephens/studyplan/internal/models"
)

// workItem is a pending session. Remaining bump budgets live in the pass.
type workItem struct {
	session models.PlannerSession
}

// workQueue is a min-heap under compareSessions
type workQueue []workItem

func (q workQueue) Len() int           { return len(q) }
func (q workQueue) Less(i, j int) bool { return compareSessions(q[i].session, q[j].session) < 0 }
func (q workQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *workQueue) Push(x any) { *q = append(*q, x.(workItem)) }

func (q *workQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *workQueue) push(item workItem) { heap.Push(q, item) }

func (q *workQueue) pop() workItem { return heap.Pop(q).(workItem) }

func newWorkQueue(items []workItem) *workQueue {
	q := workQueue(items)
	heap.Init(&q)
	return &q
}
