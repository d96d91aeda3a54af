package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedTruncatesToDay(t *testing.T) {
	c := Fixed{Day: time.Date(2024, 3, 15, 22, 30, 0, 0, time.FixedZone("X", -3*3600))}
	assert.Equal(t, "2024-03-15", c.Today().Format("2006-01-02"))
	assert.Equal(t, time.UTC, c.Today().Location())
}

func TestSystemUsesLocationCalendarDay(t *testing.T) {
	loc := time.FixedZone("Far-East", 14*3600)
	c := NewSystem(loc)
	expected := time.Now().In(loc).Format("2006-01-02")
	assert.Equal(t, expected, c.Today().Format("2006-01-02"))
}

func TestNewSystemDefaultsToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem(nil).Location)
}
