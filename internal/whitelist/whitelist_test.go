package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Example.com ", "@corp.test", "", "partner.org."}, zap.NewNop())

	assert.Equal(t, []string{"example.com", "corp.test", "partner.org"}, checker.Domains())

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"Alice <ALICE@Example.COM>", true},
		{"bob@mail.example.com", true},
		{"eve@notexample.com", false},
		{"carol@corp.test", true},
		{"\"Partner\" <p@partner.org>", true},
		{"someone@other.net", false},
		{"no address here", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsWhitelisted(tt.from))
		})
	}
}

func TestEmptyChecker(t *testing.T) {
	checker := NewChecker(nil, nil)

	assert.Empty(t, checker.Domains())
	assert.False(t, checker.IsWhitelisted("alice@example.com"))
}
