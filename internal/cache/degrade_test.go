// internal/cache/degrade_test.go
package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"shiftwork-backend/internal/common/logger"
)

// miniredis cannot produce server-side errors on demand, so the degradation
// paths are exercised against a scripted client instead.

func TestCache_GetErrorReadsAsMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, logger.NewTestLogger(t))

	mock.ExpectGet("shift:1").SetErr(errors.New("LOADING Redis is loading the dataset"))

	_, ok := c.Get(context.Background(), "shift:1")

	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetErrorIsSwallowed(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, logger.NewTestLogger(t))

	mock.ExpectSet("shift:1", []byte("x"), time.Minute).SetErr(errors.New("OOM command not allowed"))

	c.Set(context.Background(), "shift:1", []byte("x"), time.Minute)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidatePatternStopsOnScanError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, logger.NewTestLogger(t))

	mock.ExpectScan(0, "shift:list:*", 100).SetErr(errors.New("connection reset"))

	c.InvalidatePattern(context.Background(), "shift:list:*")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidatePatternDeletesAcrossCursors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, logger.NewTestLogger(t))

	mock.ExpectScan(0, "shift:list:*", 100).SetVal([]string{"shift:list:a"}, 7)
	mock.ExpectDel("shift:list:a").SetVal(1)
	mock.ExpectScan(7, "shift:list:*", 100).SetVal([]string{"shift:list:b"}, 0)
	mock.ExpectDel("shift:list:b").SetVal(1)

	c.InvalidatePattern(context.Background(), "shift:list:*")

	assert.NoError(t, mock.ExpectationsWereMet())
}
