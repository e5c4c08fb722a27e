package tidyq

import internal "github.com/queueworks/tidyq-go/src/tidyq"

type Client = internal.Client
type ClientOpts = internal.ClientOpts
type QueueOps = internal.QueueOps
type QueueKeys = internal.QueueKeys
type Stats = internal.Stats
type JobState = internal.JobState
type Logger = internal.Logger
type RedisLike = internal.RedisLike
type RedisConnOpts = internal.RedisConnOpts
type StoreError = internal.StoreError
type Periodic = internal.Periodic
type Producer = internal.Producer
type ProducerOpts = internal.ProducerOpts
type Worker = internal.Worker
type WorkerOpts = internal.WorkerOpts

var NewClient = internal.NewClient
var NewProducer = internal.NewProducer
var NewWorker = internal.NewWorker
var WrapRedis = internal.WrapRedis
var BuildRedisClient = internal.BuildRedisClient
var DefaultLogger = internal.DefaultLogger

var (
	ErrUnknownJob    = internal.ErrUnknownJob
	ErrNoResult      = internal.ErrNoResult
	ErrContention    = internal.ErrContention
	ErrSerialization = internal.ErrSerialization
	ErrTxConflict    = internal.ErrTxConflict
)

const (
	StatePending   = internal.StatePending
	StateWorking   = internal.StateWorking
	StateCompleted = internal.StateCompleted
	StateUnknown   = internal.StateUnknown
)
