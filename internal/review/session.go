package review

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/kahani/internal/srs"
)

// ErrSessionDone is returned by Answer once the queue is exhausted.
var ErrSessionDone = errors.New("review session complete")

// Session is an in-memory pass over a due queue. A failing rating puts the
// rescheduled item back at the end of the queue so it is seen again before
// the session ends. Only the first rating of each item is persisted.
type Session struct {
	svc       *Service
	learnerID string
	queue     []entry
	pos       int

	Reviewed int
	Correct  int
	Retries  int
	started  time.Time
}

type entry struct {
	item  Item
	retry bool
}

// NewSession starts a session over items.
func (s *Service) NewSession(learnerID string, items []Item) *Session {
	q := make([]entry, len(items))
	for i, it := range items {
		q[i] = entry{item: it}
	}
	return &Session{svc: s, learnerID: learnerID, queue: q, started: s.now()}
}

// Current returns the item awaiting a rating.
func (ss *Session) Current() (Item, bool) {
	if ss.Done() {
		return Item{}, false
	}
	return ss.queue[ss.pos].item, true
}

// IsRetry reports whether the current item is a requeued retry.
func (ss *Session) IsRetry() bool {
	return !ss.Done() && ss.queue[ss.pos].retry
}

// Remaining counts items left, including requeued retries.
func (ss *Session) Remaining() int {
	return len(ss.queue) - ss.pos
}

// Done reports whether every item, including retries, has been rated.
func (ss *Session) Done() bool {
	return ss.pos >= len(ss.queue)
}

// Answer rates the current item and advances the queue.
func (ss *Session) Answer(ctx context.Context, q srs.Quality) (Outcome, error) {
	if ss.Done() {
		return Outcome{}, ErrSessionDone
	}
	cur := ss.queue[ss.pos]

	advanced := cur.item
	if cur.retry {
		if err := validQuality(q); err != nil {
			return Outcome{}, err
		}
		advanced.State = applyRating(cur.item.State, q, ss.svc.now())
	} else {
		state, err := ss.svc.submit(ctx, ss.learnerID, cur.item.Word.ID, q)
		if err != nil {
			return Outcome{}, err
		}
		advanced.State = state
		ss.Reviewed++
		if q.Passing() {
			ss.Correct++
		}
	}
	out := outcome(advanced.State, q)

	ss.pos++
	if !q.Passing() {
		ss.queue = append(ss.queue, entry{item: advanced, retry: true})
		ss.Retries++
	}
	return out, nil
}

// Elapsed is the time since the session started.
func (ss *Session) Elapsed() time.Duration {
	return ss.svc.now().Sub(ss.started)
}
