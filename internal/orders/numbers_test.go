package orders

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	number, err := GenerateOrderNumber(now)
	if err != nil {
		t.Fatalf("generate order number: %v", err)
	}

	pattern := regexp.MustCompile(`^ORD-\d+-[0-9A-Z]{5}$`)
	if !pattern.MatchString(number) {
		t.Fatalf("order number %q does not match expected shape", number)
	}
	if !strings.Contains(number, "1773480413000") {
		t.Fatalf("order number %q missing millisecond timestamp", number)
	}
}

func TestGeneratePickupCodeAlwaysSixDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GeneratePickupCode()
		if err != nil {
			t.Fatalf("generate pickup code: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("pickup code %q is not six digits", code)
		}
	}
}
