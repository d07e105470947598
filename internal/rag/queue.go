package rag

// WorkQueue is the per-turn aspect queue. A name enters the queue at most
// once per turn: pushes of names already queued or visited are dropped.
type WorkQueue struct {
	pending []string
	seen    map[string]bool
	visited []string
}

// NewWorkQueue seeds a queue with the planned aspects.
func NewWorkQueue(seed ...string) *WorkQueue {
	q := &WorkQueue{seen: make(map[string]bool)}
	q.Push(seed...)
	return q
}

// Push appends the names not yet seen and returns the ones it accepted.
func (q *WorkQueue) Push(names ...string) []string {
	var added []string
	for _, name := range names {
		if name == "" || q.seen[name] {
			continue
		}
		q.seen[name] = true
		q.pending = append(q.pending, name)
		added = append(added, name)
	}
	return added
}

// Next pops the next aspect and marks it visited.
func (q *WorkQueue) Next() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	name := q.pending[0]
	q.pending = q.pending[1:]
	q.visited = append(q.visited, name)
	return name, true
}

// Pending returns a copy of the names still queued.
func (q *WorkQueue) Pending() []string {
	return append([]string(nil), q.pending...)
}

// Visited returns the names popped so far, in order.
func (q *WorkQueue) Visited() []string {
	return append([]string(nil), q.visited...)
}
