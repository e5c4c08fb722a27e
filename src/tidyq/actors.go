package tidyq

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

func safeLog(logger Logger, msg string) {
	if logger == nil {
		return
	}
	defer func() { _ = recover() }()
	logger(msg)
}

type ProducerOpts struct {
	Queue    *QueueOps
	Interval time.Duration
	Prefix   string
	Logger   Logger
}

// Producer enqueues a numbered payload every interval.
type Producer struct {
	opts ProducerOpts
	seq  atomic.Int64
	loop *Periodic
}

func NewProducer(opts ProducerOpts) *Producer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Prefix == "" {
		opts.Prefix = "Job"
	}

	p := &Producer{opts: opts}
	p.loop = &Periodic{
		Interval: opts.Interval,
		Task:     p.produceOne,
		Logger:   opts.Logger,
	}
	return p
}

func (p *Producer) Start() { p.loop.Start() }
func (p *Producer) Stop()  { p.loop.Stop() }

func (p *Producer) produceOne() {
	n := p.seq.Add(1)
	payload := fmt.Sprintf("%s %d", p.opts.Prefix, n)

	id, err := p.opts.Queue.Enqueue([]byte(payload))
	if err != nil {
		safeLog(p.opts.Logger, fmt.Sprintf("[produce] enqueue error: %v", err))
		return
	}
	safeLog(p.opts.Logger, fmt.Sprintf("[produce] enqueued %q id=%s", payload, id))
}

type WorkerOpts struct {
	Queue    *QueueOps
	Name     string
	Interval time.Duration

	// FailRate is the probability per claimed job that the worker abandons
	// it without recording a result, simulating a crash mid-job.
	FailRate float64

	Rand   *rand.Rand
	Logger Logger
}

// Worker claims one job per interval, computes "<name>:<payload>" and
// records it. Abandoned jobs stay in working until a tidy sweep requeues
// them.
type Worker struct {
	opts WorkerOpts
	loop *Periodic
}

func NewWorker(opts WorkerOpts) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Name == "" {
		opts.Name = "worker"
	}

	w := &Worker{opts: opts}
	w.loop = &Periodic{
		Interval: opts.Interval,
		Task:     w.workOne,
		Logger:   opts.Logger,
	}
	return w
}

func (w *Worker) Start() { w.loop.Start() }
func (w *Worker) Stop()  { w.loop.Stop() }

func (w *Worker) workOne() {
	id, err := w.opts.Queue.Dequeue(0)
	if err != nil {
		safeLog(w.opts.Logger, fmt.Sprintf("[work] %s dequeue error: %v", w.opts.Name, err))
		return
	}
	if id == "" {
		return
	}

	if w.roll() < w.opts.FailRate {
		safeLog(w.opts.Logger, fmt.Sprintf("[work] %s abandoning id=%s", w.opts.Name, id))
		return
	}

	payload, err := w.opts.Queue.Value(id)
	if err != nil {
		safeLog(w.opts.Logger, fmt.Sprintf("[work] %s value error id=%s: %v", w.opts.Name, id, err))
		return
	}

	result := fmt.Sprintf("%s:%s", w.opts.Name, payload)
	if err := w.opts.Queue.Record(id, []byte(result)); err != nil {
		safeLog(w.opts.Logger, fmt.Sprintf("[work] %s record error id=%s: %v", w.opts.Name, id, err))
		return
	}
	safeLog(w.opts.Logger, fmt.Sprintf("[work] %s recorded id=%s result=%s", w.opts.Name, id, result))
}

func (w *Worker) roll() float64 {
	if w.opts.Rand != nil {
		return w.opts.Rand.Float64()
	}
	return rand.Float64()
}
