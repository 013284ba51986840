package store

import "time"

const (
	// maxPushAttempts caps retries per record. A record that exhausts its
	// attempts stays failed until the next full pull reconciles it.
	maxPushAttempts = 5

	// retryBackoff is the base delay before the first retry; each further
	// failure doubles it.
	retryBackoff = 30 * time.Second
)

// retryQueue tracks records whose server push failed, keyed by client ID
// (or date string for sessions, which have no client ID). Membership is
// deduplicated, so a record that fails repeatedly occupies one slot.
type retryQueue[K comparable] struct {
	entries map[K]*retryEntry
}

type retryEntry struct {
	Attempts   int
	RetryAfter time.Time
}

func newRetryQueue[K comparable]() *retryQueue[K] {
	return &retryQueue[K]{entries: make(map[K]*retryEntry)}
}

// enqueue registers key for retry, eligible immediately. Re-enqueueing a key
// already present is a no-op.
func (q *retryQueue[K]) enqueue(key K, now time.Time) {
	if _, ok := q.entries[key]; ok {
		return
	}
	q.entries[key] = &retryEntry{RetryAfter: now}
}

// due returns a snapshot of the keys eligible for retry at now. Processing
// iterates the snapshot so entries added mid-drain wait for the next pass.
func (q *retryQueue[K]) due(now time.Time) []K {
	keys := make([]K, 0, len(q.entries))
	for key, e := range q.entries {
		if !e.RetryAfter.After(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// fail records another failed attempt for key and backs off its retry time.
// Returns false once the attempt cap is reached, at which point the key is
// dropped from the queue.
func (q *retryQueue[K]) fail(key K, now time.Time) bool {
	e, ok := q.entries[key]
	if !ok {
		e = &retryEntry{}
		q.entries[key] = e
	}
	e.Attempts++
	if e.Attempts >= maxPushAttempts {
		delete(q.entries, key)
		return false
	}
	e.RetryAfter = now.Add(retryBackoff << (e.Attempts - 1))
	return true
}

// remove drops key from the queue, typically after a successful push.
func (q *retryQueue[K]) remove(key K) {
	delete(q.entries, key)
}

func (q *retryQueue[K]) has(key K) bool {
	_, ok := q.entries[key]
	return ok
}

func (q *retryQueue[K]) len() int {
	return len(q.entries)
}
