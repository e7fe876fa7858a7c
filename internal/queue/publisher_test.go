package queue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialTimeout(t *testing.T) {
	d, err := dialTimeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultDialTimeout, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err = dialTimeout(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, time.Second)
	assert.Greater(t, d, time.Duration(0))

	ctx, cancel = context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	d, err = dialTimeout(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultDialTimeout, d)

	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	_, err = dialTimeout(done)
	assert.ErrorIs(t, err, context.Canceled)
}

// A broker that accepts TCP but never speaks AMQP must not hold the
// publisher past the caller's deadline.
func TestPublish_SilentBrokerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	p := NewPublisher("amqp://guest:guest@" + ln.Addr().String() + "/")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = p.PublishBookingCancelled(ctx, BookingCancelledEvent{BookingID: 1})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
