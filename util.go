package sdk

import (
	"time"

	"github.com/google/uuid"
)

// DurationPtr is a convenience helper for optional timeout fields.
func DurationPtr(d time.Duration) *time.Duration { return &d }

// BoolPtr is a convenience helper for optional boolean fields.
func BoolPtr(b bool) *bool { return &b }

// Int64Ptr is a convenience helper for optional int64 fields.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr is a convenience helper for optional float64 fields.
func Float64Ptr(v float64) *float64 { return &v }

// NewRequestID returns a fresh correlation id for the X-Threadline-Request-Id
// header. Supplying the same id on a retried call makes the call idempotent.
func NewRequestID() string {
	return uuid.NewString()
}
