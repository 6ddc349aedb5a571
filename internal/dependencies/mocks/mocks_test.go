package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockRandom_Queues(t *testing.T) {
	r := NewMockRandom()
	r.QueueIntn(3, 1)
	r.QueueString("abcde")
	r.QueueToken("secret")
	r.QueueID("player-1")

	assert.Equal(t, 3, r.Intn(10))
	assert.Equal(t, 1, r.Intn(10))
	assert.Equal(t, 0, r.Intn(10))
	assert.Equal(t, "abcde", r.String(5, "xyz"))
	assert.Equal(t, "secret", r.Token())
	assert.Equal(t, "token-1", r.Token())
	assert.Equal(t, "player-1", r.ID())
	assert.Equal(t, "id-1", r.ID())
}

func TestMockRandom_StringFallbackIsDistinct(t *testing.T) {
	r := NewMockRandom()
	assert.Equal(t, "aaaaa", r.String(5, "abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "aaaab", r.String(5, "abcdefghijklmnopqrstuvwxyz"))
	r.Reset()
	assert.Equal(t, "aaaaa", r.String(5, "abcdefghijklmnopqrstuvwxyz"))
}

func TestMockClock_Step(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	c.Step = time.Second
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	c.Set(start)
	c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}
