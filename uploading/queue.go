package uploading

// Queue is the ordered set of segment paths awaiting transfer. FIFO,
// duplicate-free by path. Owned by the pipeline's driver goroutine.
type Queue struct {
	paths []string
}

// Add appends a path unless it is already queued. Returns whether the path
// was added.
func (q *Queue) Add(path string) bool {
	for _, queued := range q.paths {
		if queued == path {
			return false
		}
	}
	q.paths = append(q.paths, path)
	return true
}

// Remove deletes the entry for path, if present.
func (q *Queue) Remove(path string) bool {
	for i, queued := range q.paths {
		if queued == path {
			q.paths = append(q.paths[:i], q.paths[i+1:]...)
			return true
		}
	}
	return false
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() (string, bool) {
	if len(q.paths) == 0 {
		return "", false
	}
	return q.paths[0], true
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (string, bool) {
	if len(q.paths) == 0 {
		return "", false
	}
	head := q.paths[0]
	q.paths = q.paths[1:]
	return head, true
}

// Len returns the number of queued paths.
func (q *Queue) Len() int {
	return len(q.paths)
}

// Contains reports whether path is queued.
func (q *Queue) Contains(path string) bool {
	for _, queued := range q.paths {
		if queued == path {
			return true
		}
	}
	return false
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.paths = nil
}

// Paths returns a copy of the queued paths in order.
func (q *Queue) Paths() []string {
	out := make([]string, len(q.paths))
	copy(out, q.paths)
	return out
}
