package tidyq

import (
	"fmt"
	"io"
	"time"
)

const (
	DefaultQueueName      = "jobs"
	DefaultTidyInterval   = 30 * time.Second
	DefaultStaleTime      = 30 * time.Second
	DefaultDequeueRetries = 32
)

type Logger func(msg string)

func DefaultLogger(msg string) { fmt.Println(msg) }

type Client struct {
	q         QueueOps
	tidy      *Periodic
	closeConn func() error
}

type ClientOpts struct {
	Redis    RedisLike
	RedisURL string
	Host     string
	Port     int
	DB       int
	Username string
	Password string
	SSL      bool

	Name         string
	TidyInterval time.Duration

	// StaleTime is how long a claim may sit unresolved before a tidy sweep
	// requeues it. Too short and jobs that legitimately run long get
	// executed twice; delivery is at-least-once either way.
	StaleTime time.Duration

	DequeueRetries int
	Logger         Logger
}

func NewClient(opts ClientOpts) (*Client, error) {
	var r RedisLike
	var closeConn func() error

	if opts.Redis != nil {
		r = opts.Redis
	} else {
		port := opts.Port
		if port == 0 {
			port = 6379
		}

		conn := RedisConnOpts{
			RedisURL: opts.RedisURL,
			Host:     opts.Host,
			Port:     port,
			DB:       opts.DB,
			Username: opts.Username,
			Password: opts.Password,
			SSL:      opts.SSL,
		}

		built, err := BuildRedisClient(conn)
		if err != nil {
			return nil, err
		}
		r = built

		// Only connections the client opened itself are closed by Close.
		if cl, ok := built.(io.Closer); ok {
			closeConn = cl.Close
		}
	}

	name := opts.Name
	if name == "" {
		name = DefaultQueueName
	}
	tidyInterval := opts.TidyInterval
	if tidyInterval <= 0 {
		tidyInterval = DefaultTidyInterval
	}
	stale := opts.StaleTime
	if stale <= 0 {
		stale = DefaultStaleTime
	}
	retries := opts.DequeueRetries
	if retries <= 0 {
		retries = DefaultDequeueRetries
	}

	c := &Client{
		q: QueueOps{
			R:       r,
			Keys:    KeysFor(name),
			Stale:   stale,
			Retries: retries,
			Logger:  opts.Logger,
		},
		closeConn: closeConn,
	}
	c.tidy = &Periodic{
		Interval: tidyInterval,
		Task:     c.tidyOnce,
		Logger:   opts.Logger,
	}
	return c, nil
}

func (c *Client) tidyOnce() {
	if _, err := c.q.Tidy(0); err != nil {
		safeLog(c.q.Logger, fmt.Sprintf("[tidy] sweep error: %v", err))
	}
}

func (c *Client) Enqueue(payload []byte) (string, error) {
	return c.q.Enqueue(payload)
}

func (c *Client) EnqueueJSON(v any) (string, error) {
	return c.q.EnqueueJSON(v)
}

func (c *Client) Dequeue(nowMsOverride int64) (string, error) {
	return c.q.Dequeue(nowMsOverride)
}

func (c *Client) Value(id string) ([]byte, error) {
	return c.q.Value(id)
}

func (c *Client) Record(id string, result []byte) error {
	return c.q.Record(id, result)
}

func (c *Client) Result(id string) ([]byte, error) {
	return c.q.Result(id)
}

func (c *Client) Tidy(nowMsOverride int64) (int, error) {
	return c.q.Tidy(nowMsOverride)
}

func (c *Client) State(id string) (JobState, error) {
	return c.q.State(id)
}

func (c *Client) Stats() (Stats, error) {
	return c.q.Stats()
}

func (c *Client) Ping() error {
	return c.q.Ping()
}

// StartTidy begins sweeping stale claims every TidyInterval.
func (c *Client) StartTidy() { c.tidy.Start() }

// StopTidy halts the sweep loop, waiting for an in-flight sweep.
func (c *Client) StopTidy() { c.tidy.Stop() }

// Close stops the tidy loop and closes the store connection when the client
// opened it. Injected RedisLike stores are left open.
func (c *Client) Close() error {
	c.tidy.Stop()
	if c.closeConn != nil {
		return c.closeConn()
	}
	return nil
}

func (c *Client) Ops() *QueueOps {
	return &c.q
}
