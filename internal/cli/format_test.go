package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/ivy/internal/models"
)

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(decimal.RequireFromString("173.7249")); got != "$173.72" {
		t.Fatalf("FormatPrice = %q", got)
	}
	if got := FormatPrice(decimal.NewFromInt(2)); got != "$2.00" {
		t.Fatalf("FormatPrice = %q", got)
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		cur, prev string
		want      string
	}{
		{"100", "50", "+50.00 (+100.00%)"},
		{"95", "100", "-5.00 (-5.00%)"},
		{"10", "10", "0.00 (0.00%)"},
		{"10", "0", "+10.00 (+0.00%)"},
	}
	for _, tt := range tests {
		c := models.NewStockCandidate("X", "X", decimal.RequireFromString(tt.cur), decimal.RequireFromString(tt.prev))
		if got := FormatChange(c); got != tt.want {
			t.Errorf("FormatChange(%s, %s) = %q, want %q", tt.cur, tt.prev, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{49 * time.Hour, "2 days ago"},
		{65 * 24 * time.Hour, "2 months ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tt := range tests {
		if got := TimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestProfileFormatting(t *testing.T) {
	if got := FormatHorizon(1); got != "1 year" {
		t.Fatalf("FormatHorizon(1) = %q", got)
	}
	if got := FormatHorizon(12); got != "12 years" {
		t.Fatalf("FormatHorizon(12) = %q", got)
	}
	if got := FormatPercent(0.35); got != "35%" {
		t.Fatalf("FormatPercent = %q", got)
	}
}

func TestTruncateAndLargeNumbers(t *testing.T) {
	if got := truncateString("Advanced Micro Devices", 10); got != "Advanced …" {
		t.Fatalf("truncateString = %q", got)
	}
	if got := truncateString("AMD", 10); got != "AMD" {
		t.Fatalf("truncateString = %q", got)
	}
	tests := map[float64]string{
		1.2e12: "1.20T",
		3.5e9:  "3.50B",
		4e6:    "4.00M",
		1500:   "1.50K",
		12:     "12",
	}
	for in, want := range tests {
		if got := formatLarge(in); got != want {
			t.Errorf("formatLarge(%v) = %q, want %q", in, got, want)
		}
	}
}
