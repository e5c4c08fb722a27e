package tidyq

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testWrap(t *testing.T) (RedisLike, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return WrapRedis(rdb), mr
}

func TestWrapNilMapping(t *testing.T) {
	r, _ := testWrap(t)

	v, err := r.HGet("h", "missing")
	require.NoError(t, err)
	require.Nil(t, v)

	score, err := r.ZScore("z", "missing")
	require.NoError(t, err)
	require.Nil(t, score)

	pos, err := r.LPos("l", "missing")
	require.NoError(t, err)
	require.Nil(t, pos)
}

func TestWrapHashOps(t *testing.T) {
	r, _ := testWrap(t)

	_, err := r.HSet("h", "a", "1")
	require.NoError(t, err)
	_, err = r.HSet("h", "b", "2")
	require.NoError(t, err)

	v, err := r.HGet("h", "a")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "1", *v)

	ok, err := r.HExists("h", "b")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.HExists("h", "zzz")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := r.HLen("h")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	vals, err := r.HMGet("h", "a", "zzz", "b")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	require.Equal(t, "1", *vals[0])
	require.Nil(t, vals[1])
	require.Equal(t, "2", *vals[2])
}

func TestWrapLPopZAdd(t *testing.T) {
	r, _ := testWrap(t)

	// Empty list: no move, no error.
	id, err := r.LPopZAdd("l", "z", 1000)
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = r.RPush("l", "a", "b")
	require.NoError(t, err)

	id, err = r.LPopZAdd("l", "z", 1000)
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, "a", *id)

	n, err := r.LLen("l")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	score, err := r.ZScore("z", "a")
	require.NoError(t, err)
	require.NotNil(t, score)
	require.Equal(t, float64(1000), *score)
}

func TestWrapZPopByScore(t *testing.T) {
	r, mr := testWrap(t)

	mr.ZAdd("z", 100, "old")
	mr.ZAdd("z", 200, "mid")
	mr.ZAdd("z", 300, "new")

	members, err := r.ZPopByScore("z", 0, 200)
	require.NoError(t, err)
	require.Equal(t, []string{"old", "mid"}, members)

	left, err := r.ZCard("z")
	require.NoError(t, err)
	require.Equal(t, int64(1), left)

	// Popped members are gone; the next sweep sees nothing.
	members, err = r.ZPopByScore("z", 0, 200)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestLooksLikeClusterError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cluster disabled", errors.New("ERR This instance has cluster support disabled"), true},
		{"cluster not enabled", errors.New("cluster mode is not enabled"), true},
		{"moved", errors.New("MOVED 1234 10.0.0.1:6379"), true},
		{"plain refusal", errors.New("connection refused"), false},
		{"auth", errors.New("NOAUTH Authentication required"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, looksLikeClusterError(tc.err))
		})
	}
}
