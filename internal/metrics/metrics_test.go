package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("POST", "/bookings", "201")
		IncEventPublish("booking_created", "ok")
	})

	before := testutil.ToFloat64(reservations.WithLabelValues(OutcomeRideFull))
	ObserveReservation(OutcomeRideFull, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(reservations.WithLabelValues(OutcomeRideFull)))

	beforeComp := testutil.ToFloat64(compensations.WithLabelValues("released"))
	IncCompensation("released")
	assert.Equal(t, beforeComp+1, testutil.ToFloat64(compensations.WithLabelValues("released")))
}
