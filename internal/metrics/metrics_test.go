package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/bookings", 201)
		IncBookingCreated()
		IncBookingConflict()
		IncTransition("pending", "confirmed")
		IncTransitionRejected("invalid_transition")
		IncRating()
		IncPriceOverride()
		IncSyncTask("completed")
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("active", "completed"))
	IncTransition("active", "completed")
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("active", "completed")))

	beforeConflicts := testutil.ToFloat64(bookingConflicts)
	IncBookingConflict()
	assert.Equal(t, beforeConflicts+1, testutil.ToFloat64(bookingConflicts))
}
