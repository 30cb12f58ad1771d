package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 1*time.Minute, "2h 1m 0s"},
		{1499 * time.Millisecond, "1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestFormatDateTimeMs(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 42*int(time.Millisecond), time.UTC)
	assert.Equal(t, "2024-03-09 07:05:01.042", FormatDateTimeMs(ts))
}
