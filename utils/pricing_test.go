package utils

import (
	"testing"
	"time"

	"github.com/gymease/backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		percent string
		want    string
	}{
		{"ten percent", "100000", "10", "90000"},
		{"rounds discount half up", "99999.99", "15", "84999.99"},
		{"fractional percent", "250000", "12.5", "218750"},
		{"full discount", "150000", "100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := &models.Promo{DiscountPercent: decimal.RequireFromString(tt.percent)}
			got := EffectivePrice(decimal.RequireFromString(tt.base), promo)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestEffectivePriceWithoutPromo(t *testing.T) {
	base := decimal.RequireFromString("175000.50")
	assert.True(t, EffectivePrice(base, nil).Equal(base))
}

func TestRupiahAmount(t *testing.T) {
	for in, want := range map[string]string{
		"89999.10": "89999",
		"89999.50": "90000",
		"90000":    "90000",
	} {
		got := RupiahAmount(decimal.RequireFromString(in))
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: got %s want %s", in, got, want)
	}
}

func TestDiscountAmountRounding(t *testing.T) {
	// 33333.33 * 33 / 100 = 10999.9989
	got := DiscountAmount(decimal.RequireFromString("33333.33"), decimal.NewFromInt(33))
	assert.Equal(t, "11000", got.String())
}

func TestMembershipWindow(t *testing.T) {
	start := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	w := MembershipWindow(start, 30)

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, 30, w.Days())
	assert.False(t, w.Empty())

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestMembershipWindowZeroDuration(t *testing.T) {
	w := MembershipWindow(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), 0)

	assert.True(t, w.Empty())
	assert.Equal(t, 0, w.Days())
	assert.False(t, w.Contains(w.Start))
}

func TestMembershipWindowKeepsLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 23:30 in Jakarta is still the 19th locally
	w := MembershipWindow(time.Date(2026, 10, 19, 23, 30, 0, 0, jakarta), 1)

	assert.Equal(t, 19, w.Start.Day())
	assert.Equal(t, jakarta, w.Start.Location())
	assert.Equal(t, 20, w.End.Day())
}
