package credential

import (
	"testing"
	"time"
)

func TestItem_Age(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-100 * 24 * time.Hour)
	updated := now.Add(-10 * 24 * time.Hour)

	tests := []struct {
		name string
		item Item
		want time.Duration
	}{
		{"uses_updated", Item{CreatedAt: created, UpdatedAt: updated}, 10 * 24 * time.Hour},
		{"falls_back_to_created", Item{CreatedAt: created}, 100 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Age(now); got != tt.want {
				t.Errorf("Age() = %v, want %v", got, tt.want)
			}
		})
	}
}
