package tidyq

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueOps runs the queue operations against one set of keys. Jobs move
// through three structures: pending (FIFO list of ids), working (sorted set
// scored by claim time), results (hash id -> result). Payloads live in the
// values hash for the job's whole lifetime; values and results are never
// deleted, so storage grows with every job enqueued.
type QueueOps struct {
	R       RedisLike
	Keys    QueueKeys
	Stale   time.Duration
	Retries int
	Logger  Logger
}

// Enqueue stores the payload and appends the job id to pending. The payload
// is written before the id becomes visible, so a dequeuer never sees an id
// without a value.
func (q *QueueOps) Enqueue(payload []byte) (string, error) {
	id := uuid.NewString()

	if _, err := q.R.HSet(q.Keys.Values, id, string(payload)); err != nil {
		return "", storeErr("enqueue", err)
	}
	if _, err := q.R.RPush(q.Keys.Pending, id); err != nil {
		return "", storeErr("enqueue", err)
	}
	return id, nil
}

// EnqueueJSON encodes v as compact JSON and enqueues it.
func (q *QueueOps) EnqueueJSON(v any) (string, error) {
	s, err := jsonCompactNoEscape(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return q.Enqueue([]byte(s))
}

// Dequeue claims the oldest pending job and returns its id, or "" when the
// queue is empty. The pop and the claim stamp commit in one transaction;
// losing the claim race to another worker retries up to Retries times
// before surfacing ErrContention.
func (q *QueueOps) Dequeue(nowMsOverride int64) (string, error) {
	nms := nowMsOverride
	if nms <= 0 {
		nms = NowMs()
	}

	retries := q.Retries
	if retries <= 0 {
		retries = DefaultDequeueRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		id, err := q.R.LPopZAdd(q.Keys.Pending, q.Keys.Working, nms)
		if err == nil {
			if id == nil {
				return "", nil
			}
			return *id, nil
		}
		if !errors.Is(err, ErrTxConflict) {
			return "", storeErr("dequeue", err)
		}
	}

	return "", ErrContention
}

// Value returns the payload stored for id.
func (q *QueueOps) Value(id string) ([]byte, error) {
	v, err := q.R.HGet(q.Keys.Values, id)
	if err != nil {
		return nil, storeErr("value", err)
	}
	if v == nil {
		return nil, ErrUnknownJob
	}
	return []byte(*v), nil
}

// Record stores the job's result. Recording again overwrites. The id stays
// in working until a later tidy sweep drops it.
func (q *QueueOps) Record(id string, result []byte) error {
	known, err := q.R.HExists(q.Keys.Values, id)
	if err != nil {
		return storeErr("record", err)
	}
	if !known {
		return ErrUnknownJob
	}

	if _, err := q.R.HSet(q.Keys.Results, id, string(result)); err != nil {
		return storeErr("record", err)
	}
	return nil
}

// Result returns the recorded result for id, ErrNoResult when the job has
// not completed.
func (q *QueueOps) Result(id string) ([]byte, error) {
	v, err := q.R.HGet(q.Keys.Results, id)
	if err != nil {
		return nil, storeErr("result", err)
	}
	if v != nil {
		return []byte(*v), nil
	}

	known, err := q.R.HExists(q.Keys.Values, id)
	if err != nil {
		return nil, storeErr("result", err)
	}
	if !known {
		return nil, ErrUnknownJob
	}
	return nil, ErrNoResult
}

// Tidy reclaims working entries whose claim is older than Stale. Reclaimed
// ids with a recorded result are dropped; the rest are pushed back onto
// pending. The range read and range delete commit in one step, so
// overlapping sweeps never requeue the same claim twice. Returns the number
// of jobs requeued.
func (q *QueueOps) Tidy(nowMsOverride int64) (int, error) {
	nms := nowMsOverride
	if nms <= 0 {
		nms = NowMs()
	}

	stale := q.Stale
	if stale <= 0 {
		stale = DefaultStaleTime
	}
	cutoff := nms - stale.Milliseconds()

	ids, err := q.R.ZPopByScore(q.Keys.Working, 0, cutoff)
	if err != nil {
		return 0, storeErr("tidy", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	results, err := q.R.HMGet(q.Keys.Results, ids...)
	if err != nil {
		return 0, storeErr("tidy", err)
	}

	requeue := make([]string, 0, len(ids))
	for i, id := range ids {
		if results[i] == nil {
			requeue = append(requeue, id)
		}
	}
	if len(requeue) == 0 {
		return 0, nil
	}

	if _, err := q.R.RPush(q.Keys.Pending, requeue...); err != nil {
		return 0, storeErr("tidy", err)
	}

	for _, id := range requeue {
		safeLog(q.Logger, fmt.Sprintf("[tidy] requeue stale job id=%s", id))
	}
	return len(requeue), nil
}

// State reports where the job currently sits. A job can show StateUnknown
// briefly while tidy moves it between working and pending.
func (q *QueueOps) State(id string) (JobState, error) {
	done, err := q.R.HExists(q.Keys.Results, id)
	if err != nil {
		return StateUnknown, storeErr("state", err)
	}
	if done {
		return StateCompleted, nil
	}

	score, err := q.R.ZScore(q.Keys.Working, id)
	if err != nil {
		return StateUnknown, storeErr("state", err)
	}
	if score != nil {
		return StateWorking, nil
	}

	pos, err := q.R.LPos(q.Keys.Pending, id)
	if err != nil {
		return StateUnknown, storeErr("state", err)
	}
	if pos != nil {
		return StatePending, nil
	}

	return StateUnknown, nil
}

// ClaimedAt returns when the job was claimed, nil when it is not in working.
func (q *QueueOps) ClaimedAt(id string) (*time.Time, error) {
	score, err := q.R.ZScore(q.Keys.Working, id)
	if err != nil {
		return nil, storeErr("claimed_at", err)
	}
	if score == nil {
		return nil, nil
	}
	t := time.UnixMilli(int64(*score))
	return &t, nil
}

func (q *QueueOps) Stats() (Stats, error) {
	pending, err := q.R.LLen(q.Keys.Pending)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	working, err := q.R.ZCard(q.Keys.Working)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	completed, err := q.R.HLen(q.Keys.Results)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	values, err := q.R.HLen(q.Keys.Values)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}

	return Stats{
		Pending:   pending,
		Working:   working,
		Completed: completed,
		Values:    values,
	}, nil
}

func (q *QueueOps) Ping() error {
	return q.R.Ping()
}
