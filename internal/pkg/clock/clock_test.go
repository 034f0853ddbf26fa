package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Location(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	c := New(loc)

	assert.Equal(t, loc, c.Now().Location())
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}

func TestNew_NilLocation(t *testing.T) {
	c := New(nil)
	assert.Equal(t, time.Local, c.Location)
}

func TestFixed(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := Fixed(at)
	assert.Equal(t, at, c.Now())
}
