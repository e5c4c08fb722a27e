package tidyq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLike is the store command surface the queue runs on. Implementations
// back it with a real Redis (see WrapRedis / BuildRedisClient) or a fake.
type RedisLike interface {
	RPush(key string, values ...string) (int64, error)
	LLen(key string) (int64, error)
	LPos(key, element string) (*int64, error)

	HSet(key, field, value string) (int64, error)
	HGet(key, field string) (*string, error)
	HMGet(key string, fields ...string) ([]*string, error)
	HExists(key, field string) (bool, error)
	HLen(key string) (int64, error)

	ZScore(key, member string) (*float64, error)
	ZCard(key string) (int64, error)

	// LPopZAdd atomically moves the head of listKey into zsetKey with the
	// given score, under an optimistic transaction watching listKey.
	// Returns nil when the list is empty. Returns ErrTxConflict when a
	// concurrent writer touched listKey between observe and commit.
	LPopZAdd(listKey, zsetKey string, scoreMs int64) (*string, error)

	// ZPopByScore removes and returns the members of key scored within
	// [minMs, maxMs], both bounds inclusive, as one atomic step.
	ZPopByScore(key string, minMs, maxMs int64) ([]string, error)

	Ping() error
}

type RedisConnOpts struct {
	RedisURL             string
	Host                 string
	Port                 int
	DB                   int
	Username             string
	Password             string
	SSL                  bool
	SocketTimeout        *time.Duration
	SocketConnectTimeout *time.Duration
}

func looksLikeClusterError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "cluster support disabled") ||
		strings.Contains(msg, "cluster mode is not enabled") ||
		(strings.Contains(msg, "unknown command") && strings.Contains(msg, "cluster")) ||
		strings.Contains(msg, "this instance has cluster support disabled") ||
		strings.Contains(msg, "err this instance has cluster support disabled") ||
		strings.Contains(msg, "only (p)subscribe / (p)unsubscribe / ping / quit allowed in this context") ||
		strings.Contains(msg, "moved") ||
		strings.Contains(msg, "ask")
}

type redisWrap struct {
	rdb redis.UniversalClient
}

// WrapRedis adapts an existing go-redis client for ClientOpts.Redis.
func WrapRedis(rdb redis.UniversalClient) RedisLike {
	return &redisWrap{rdb: rdb}
}

func (w *redisWrap) ctx() context.Context { return context.Background() }

func (w *redisWrap) Ping() error {
	return w.rdb.Ping(w.ctx()).Err()
}

func (w *redisWrap) Close() error {
	return w.rdb.Close()
}

func (w *redisWrap) RPush(key string, values ...string) (int64, error) {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return w.rdb.RPush(w.ctx(), key, args...).Result()
}

func (w *redisWrap) LLen(key string) (int64, error) {
	return w.rdb.LLen(w.ctx(), key).Result()
}

func (w *redisWrap) LPos(key, element string) (*int64, error) {
	v, err := w.rdb.LPos(w.ctx(), key, element, redis.LPosArgs{}).Result()
	if err == nil {
		return &v, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return nil, err
}

func (w *redisWrap) HSet(key, field, value string) (int64, error) {
	return w.rdb.HSet(w.ctx(), key, field, value).Result()
}

func (w *redisWrap) HGet(key, field string) (*string, error) {
	v, err := w.rdb.HGet(w.ctx(), key, field).Result()
	if err == nil {
		return &v, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return nil, err
}

func (w *redisWrap) HMGet(key string, fields ...string) ([]*string, error) {
	raw, err := w.rdb.HMGet(w.ctx(), key, fields...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*string, 0, len(raw))
	for _, it := range raw {
		if it == nil {
			out = append(out, nil)
			continue
		}
		s := fmt.Sprint(it)
		out = append(out, &s)
	}
	return out, nil
}

func (w *redisWrap) HExists(key, field string) (bool, error) {
	return w.rdb.HExists(w.ctx(), key, field).Result()
}

func (w *redisWrap) HLen(key string) (int64, error) {
	return w.rdb.HLen(w.ctx(), key).Result()
}

func (w *redisWrap) ZScore(key, member string) (*float64, error) {
	v, err := w.rdb.ZScore(w.ctx(), key, member).Result()
	if err == nil {
		return &v, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return nil, err
}

func (w *redisWrap) ZCard(key string) (int64, error) {
	return w.rdb.ZCard(w.ctx(), key).Result()
}

func (w *redisWrap) LPopZAdd(listKey, zsetKey string, scoreMs int64) (*string, error) {
	var head *string

	txf := func(tx *redis.Tx) error {
		v, err := tx.LIndex(w.ctx(), listKey, 0).Result()
		if errors.Is(err, redis.Nil) {
			head = nil
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(w.ctx(), func(pipe redis.Pipeliner) error {
			pipe.LPop(w.ctx(), listKey)
			pipe.ZAdd(w.ctx(), zsetKey, redis.Z{Score: float64(scoreMs), Member: v})
			return nil
		})
		if err != nil {
			return err
		}

		head = &v
		return nil
	}

	err := w.rdb.Watch(w.ctx(), txf, listKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrTxConflict
	}
	if err != nil {
		return nil, err
	}
	return head, nil
}

func (w *redisWrap) ZPopByScore(key string, minMs, maxMs int64) ([]string, error) {
	lo := strconv.FormatInt(minMs, 10)
	hi := strconv.FormatInt(maxMs, 10)

	var members *redis.StringSliceCmd
	_, err := w.rdb.TxPipelined(w.ctx(), func(pipe redis.Pipeliner) error {
		members = pipe.ZRangeByScore(w.ctx(), key, &redis.ZRangeBy{Min: lo, Max: hi})
		pipe.ZRemRangeByScore(w.ctx(), key, lo, hi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members.Val(), nil
}

func BuildRedisClient(opts RedisConnOpts) (RedisLike, error) {
	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis_url: %w", err)
		}
		if opts.SSL && ropts.TLSConfig == nil {
			ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		if opts.SocketTimeout != nil {
			ropts.ReadTimeout = *opts.SocketTimeout
			ropts.WriteTimeout = *opts.SocketTimeout
		}
		if opts.SocketConnectTimeout != nil {
			ropts.DialTimeout = *opts.SocketConnectTimeout
		}

		c := redis.NewClient(ropts)
		if err := c.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		return &redisWrap{rdb: c}, nil
	}

	if opts.Host == "" {
		return nil, fmt.Errorf("RedisConnOpts requires host (or redis_url)")
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	var tlsCfg *tls.Config
	if opts.SSL {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	{
		c := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        []string{addr},
			Username:     opts.Username,
			Password:     opts.Password,
			TLSConfig:    tlsCfg,
			ReadTimeout:  durOrZero(opts.SocketTimeout),
			WriteTimeout: durOrZero(opts.SocketTimeout),
			DialTimeout:  durOrZero(opts.SocketConnectTimeout),
		})

		err := c.Ping(context.Background()).Err()
		if err == nil {
			return &redisWrap{rdb: c}, nil
		}
		_ = c.Close()

		if !looksLikeClusterError(err) {
			return nil, err
		}
	}

	c := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		TLSConfig:    tlsCfg,
		ReadTimeout:  durOrZero(opts.SocketTimeout),
		WriteTimeout: durOrZero(opts.SocketTimeout),
		DialTimeout:  durOrZero(opts.SocketConnectTimeout),
	})

	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisWrap{rdb: c}, nil
}

func durOrZero(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}
