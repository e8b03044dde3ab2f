package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepLockTTLTracksInterval(t *testing.T) {
	// The sweep lock must expire on the scale of a sweep cycle, not on
	// the scale of the hold threshold, or a crashed sweeper stalls every
	// replica until the hold runs out.
	s := NewExpiryService(nil, nil, nil, 15*time.Minute, 60*time.Second)
	assert.Equal(t, 60*time.Second, s.lockTTL)
	assert.Equal(t, 15*time.Minute, s.holdDuration)

	s = NewExpiryService(nil, nil, nil, 15*time.Minute, 0)
	assert.Equal(t, time.Minute, s.lockTTL)
}
