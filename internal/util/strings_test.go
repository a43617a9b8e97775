package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountNoun(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "0 servers"},
		{1, "1 server"},
		{6, "6 servers"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CountNoun(tt.count, "server", "servers"))
		})
	}
}
