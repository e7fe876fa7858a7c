package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConn is a database/sql driver that records every Exec and fails
// the n-th one (1-based) with failErr.
type scriptedConn struct {
	mu         sync.Mutex
	execs      [][]driver.Value
	failAt     int
	failErr    error
	committed  bool
	rolledBack bool
}

func (c *scriptedConn) Connect(context.Context) (driver.Conn, error) { return c, nil }
func (c *scriptedConn) Driver() driver.Driver                        { return c }
func (c *scriptedConn) Open(string) (driver.Conn, error)             { return c, nil }
func (c *scriptedConn) Prepare(string) (driver.Stmt, error)          { return scriptedStmt{c}, nil }
func (c *scriptedConn) Close() error                                 { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error)                    { return scriptedTx{c}, nil }

func (c *scriptedConn) seatOrder() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, 0, len(c.execs))
	for _, args := range c.execs {
		switch v := args[1].(type) {
		case int64:
			out = append(out, uint64(v))
		case uint64:
			out = append(out, v)
		}
	}
	return out
}

type scriptedStmt struct{ c *scriptedConn }

func (s scriptedStmt) Close() error  { return nil }
func (s scriptedStmt) NumInput() int { return -1 }
func (s scriptedStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

func (s scriptedStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.execs = append(s.c.execs, args)
	n := len(s.c.execs)
	if n == s.c.failAt {
		return nil, s.c.failErr
	}
	return scriptedResult(n), nil
}

// scriptedResult reports the exec's sequence number as the insert id.
type scriptedResult int64

func (r scriptedResult) LastInsertId() (int64, error) { return int64(r), nil }
func (r scriptedResult) RowsAffected() (int64, error) { return 1, nil }

type scriptedTx struct{ c *scriptedConn }

func (t scriptedTx) Commit() error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.committed = true
	return nil
}

func (t scriptedTx) Rollback() error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.rolledBack = true
	return nil
}

func newScriptedRepo(t *testing.T, failAt int, failErr error) (*BookingRepo, *scriptedConn) {
	t.Helper()
	conn := &scriptedConn{failAt: failAt, failErr: failErr}
	db := sql.OpenDB(conn)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), conn
}

var batchAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCreateBatch_InsertsInSeatOrder(t *testing.T) {
	repo, conn := newScriptedRepo(t, 0, nil)

	input := []uint64{30, 10, 20}
	created, err := repo.CreateBatch(context.Background(), 5, 9, input, batchAt)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, conn.seatOrder())
	assert.True(t, conn.committed)
	assert.Equal(t, []uint64{30, 10, 20}, input, "caller's slice is left untouched")

	require.Len(t, created, 3)
	for i, want := range []uint64{10, 20, 30} {
		assert.Equal(t, want, created[i].SeatID)
		assert.Equal(t, uint64(i+1), created[i].ID)
		assert.Equal(t, uint64(9), created[i].UserID)
	}
}

func TestCreateBatch_ContentionIsSeatConflict(t *testing.T) {
	cases := map[string]error{
		"duplicate entry":   &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
		"deadlock":          &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"},
		"lock wait timeout": &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"},
	}
	for name, failErr := range cases {
		t.Run(name, func(t *testing.T) {
			repo, conn := newScriptedRepo(t, 2, failErr)

			_, err := repo.CreateBatch(context.Background(), 5, 9, []uint64{20, 10}, batchAt)
			var conflict *SeatConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, uint64(20), conflict.SeatID)
			assert.Equal(t, []uint64{10, 20}, conn.seatOrder())
			assert.Equal(t, uint64(5), conflict.ShowtimeID)
			assert.ErrorIs(t, err, ErrConflict)
			assert.True(t, conn.rolledBack)
			assert.False(t, conn.committed)
		})
	}
}

func TestCreateBatch_OtherErrorsPassThrough(t *testing.T) {
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	repo, conn := newScriptedRepo(t, 1, fk)

	_, err := repo.CreateBatch(context.Background(), 5, 9, []uint64{10}, batchAt)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, fk)
	assert.True(t, conn.rolledBack)
}
