package forecast

import (
	"testing"
	"time"
)

func TestHorizonEndDate(t *testing.T) {
	last := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		horizon Horizon
		want    time.Time
	}{
		{"month_end", Horizon{Policy: HorizonMonthEnd}, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"quarter_end", Horizon{Policy: HorizonQuarterEnd}, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"year_end", Horizon{Policy: HorizonYearEnd}, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"custom_10", Horizon{Policy: HorizonCustom, CustomDays: 10}, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := c.horizon.EndDate(last)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%s: expected %s got %s", c.name, c.want.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestHorizonEndDate_LeapFebruary(t *testing.T) {
	last := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	got, err := Horizon{Policy: HorizonMonthEnd}.EndDate(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Day() != 29 {
		t.Fatalf("expected leap-year Feb 29, got %s", got.Format("2006-01-02"))
	}
}

func TestHorizonEndDate_QuarterRollsForward(t *testing.T) {
	last := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	got, err := Horizon{Policy: HorizonQuarterEnd}.EndDate(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s got %s", want.Format("2006-01-02"), got.Format("2006-01-02"))
	}
}

func TestHorizonEndDate_CustomRequiresDays(t *testing.T) {
	_, err := Horizon{Policy: HorizonCustom}.EndDate(time.Now())
	if err == nil {
		t.Fatalf("expected error for custom horizon without days")
	}
}

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{
		"trend_seasonal": MethodTrendSeasonal,
		"Prophet":        MethodTrendSeasonal,
		"linear":         MethodLinear,
		"Exponential":    MethodExponential,
		"holt":           MethodExponential,
	}
	for in, want := range cases {
		got, err := ParseMethod(in)
		if err != nil {
			t.Fatalf("ParseMethod(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMethod(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseMethod("arima"); err == nil {
		t.Fatalf("expected error for unsupported method")
	}
}

func TestResultEmpty(t *testing.T) {
	if !(Result{}).Empty() {
		t.Fatalf("zero result should be empty")
	}
	r := Result{Days: 3, Future: []Point{{Value: 1}}}
	if r.Empty() {
		t.Fatalf("result with future points should not be empty")
	}
}
