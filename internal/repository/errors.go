// Package repository implements MySQL persistence for halls, seats,
// showtimes, bookings, movies and users. Sentinel values below let higher
// layers tell not-found and conflict cases apart from storage failures.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrHallNotFound     = errors.New("hall not found")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrMovieNotFound    = errors.New("movie not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrPhoneExists      = errors.New("phone already exists")
)

// ErrConflict is returned when a write is rejected by a uniqueness
// constraint. Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// SeatConflictError reports the seat whose booking hit the
// (showtime, seat) uniqueness constraint. It matches ErrConflict.
type SeatConflictError struct {
	ShowtimeID uint64
	SeatID     uint64
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %d already booked for showtime %d", e.SeatID, e.ShowtimeID)
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrConflict }

// MySQL server error numbers.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock       = 1213 // ER_LOCK_DEADLOCK
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool { return mysqlErrNumber(err) == mysqlDuplicateEntry }

// duplicateKeyName returns the unique key named in an ER_DUP_ENTRY
// message ("Duplicate entry 'x' for key 'users.uq_users_phone'").
func duplicateKeyName(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return ""
	}
	_, key, ok := strings.Cut(me.Message, "for key '")
	if !ok {
		return ""
	}
	key = strings.TrimSuffix(key, "'")
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return key
}

// isSeatContention reports errors raised when another transaction holds
// or has just taken the same (showtime, seat) key.
func isSeatContention(err error) bool {
	switch mysqlErrNumber(err) {
	case mysqlDuplicateEntry, mysqlLockWaitTimeout, mysqlDeadlock:
		return true
	}
	return false
}
