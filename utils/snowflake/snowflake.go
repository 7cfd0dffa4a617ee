// Package snowflake decodes the 64-bit ids Discord assigns to guilds, users,
// channels and messages.
package snowflake

import (
	"errors"
	"strconv"
	"time"
)

const (
	// Epoch is the Discord epoch (2015-01-01T00:00:00Z) in milliseconds.
	Epoch int64 = 1420070400000

	workerBits    = 5
	processBits   = 5
	incrementBits = 12

	timestampShift = workerBits + processBits + incrementBits
	workerShift    = processBits + incrementBits
	processShift   = incrementBits

	workerMask    = 1<<workerBits - 1
	processMask   = 1<<processBits - 1
	incrementMask = 1<<incrementBits - 1
)

var (
	ErrEmpty    = errors.New("snowflake is empty")
	ErrNotValid = errors.New("snowflake must be a positive decimal integer")
)

// Parts are the fields packed into a snowflake.
type Parts struct {
	Time      time.Time
	WorkerID  int64
	ProcessID int64
	Increment int64
}

// Parse converts the decimal string form used on the wire into an id.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, ErrEmpty
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotValid
	}
	return id, nil
}

// Format is the inverse of Parse.
func Format(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Decode splits id into its fields.
func Decode(id int64) Parts {
	return Parts{
		Time:      Time(id),
		WorkerID:  (id >> workerShift) & workerMask,
		ProcessID: (id >> processShift) & processMask,
		Increment: id & incrementMask,
	}
}

// Time returns the creation time encoded in id.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + Epoch).UTC()
}

// FromTime returns the smallest id that could have been created at t. Ids
// compare in creation order, so it works as a pagination or age cutoff.
func FromTime(t time.Time) int64 {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		return 0
	}
	return ms << timestampShift
}

// OlderThan reports whether id was created more than age before now.
func OlderThan(id int64, age time.Duration, now time.Time) bool {
	return id < FromTime(now.Add(-age))
}
