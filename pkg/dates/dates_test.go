package dates

import (
	"testing"
	"time"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"2025-01-31"`, "2025-01-31", false},
		{`"2025-01-31T23:30:00-06:00"`, "2025-02-01", false},
		{`"31/01/2025"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			err := d.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := d.Format(Layout); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	b, _ := Of(time.Date(2025, 1, 31, 18, 0, 0, 0, time.UTC)).MarshalJSON()
	if string(b) != `"2025-01-31"` {
		t.Errorf("unexpected marshal %s", b)
	}
	b, _ = Date{}.MarshalJSON()
	if string(b) != "null" {
		t.Errorf("expected null for zero date, got %s", b)
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	got := Day(time.Date(2024, 3, 10, 20, 0, 0, 0, loc))
	if !got.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day %v", got)
	}
}
