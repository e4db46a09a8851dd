package proxy_test

import (
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"

	"github.com/edgegate/edgegate/internal/proxy"
)

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"too few requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"mostly fine", gobreaker.Counts{Requests: 10, TotalFailures: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, proxy.DefaultReadyToTrip(tt.counts))
		})
	}
}

func TestBreakerSet(t *testing.T) {
	set := proxy.NewBreakerSet(proxy.DefaultBreakerConfig())

	a := set.Get("a")
	assert.Same(t, a, set.Get("a"))
	assert.NotSame(t, a, set.Get("b"))

	states := set.States()
	assert.Len(t, states, 2)
	assert.Equal(t, "a", states[0].Name)
	assert.Equal(t, gobreaker.StateClosed, states[0].State)

	set.Forget("a")
	assert.NotSame(t, a, set.Get("a"))
}
