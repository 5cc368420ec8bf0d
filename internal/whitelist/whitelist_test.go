package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsTrusted(t *testing.T) {
	c := NewChecker([]string{" Example.COM ", "corp.internal.", ""}, zap.NewNop())

	tests := []struct {
		sender string
		want   bool
	}{
		{"alice@example.com", true},
		{"Alice <alice@EXAMPLE.com>", true},
		{"bob@mail.example.com", true},
		{"eve@example.com.evil.net", false},
		{"eve@notexample.com", false},
		{"ops@corp.internal", true},
		{"no-at-sign", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsTrusted(tt.sender))
		})
	}
}

func TestChecker_EmptyList(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.IsTrusted("alice@example.com"))
}
