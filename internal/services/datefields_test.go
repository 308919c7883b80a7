package services

import "testing"

func TestSplitDueDate(t *testing.T) {
	year, month, day, err := SplitDueDate("2024-09-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year != 2024 || month != 9 || day != 5 {
		t.Fatalf("got %d-%d-%d", year, month, day)
	}
}

func TestSplitDueDateInvalid(t *testing.T) {
	for _, in := range []string{"", "2024-09", "2024/09/05", "abcd-ef-gh", "2024-13-01", "2024-00-10", "2024-01-32"} {
		if _, _, _, err := SplitDueDate(in); err == nil {
			t.Errorf("SplitDueDate(%q) should fail", in)
		}
	}
}

func TestSplitDueTime(t *testing.T) {
	hour, minute, err := SplitDueTime("23:59")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hour != 23 || minute != 59 {
		t.Fatalf("got %d:%d", hour, minute)
	}
}

func TestSplitDueTimeInvalid(t *testing.T) {
	for _, in := range []string{"", "9", "24:00", "12:60", "12:30:00", "ab:cd"} {
		if _, _, err := SplitDueTime(in); err == nil {
			t.Errorf("SplitDueTime(%q) should fail", in)
		}
	}
}

func TestDueDateRoundTrip(t *testing.T) {
	in := "2025-01-09"
	year, month, day, err := SplitDueDate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := formatDueDate(year, month, day); out != in {
		t.Fatalf("round trip %q -> %q", in, out)
	}
}

func TestDueTimeRoundTrip(t *testing.T) {
	in := "08:05"
	hour, minute, err := SplitDueTime(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := formatDueTime(hour, minute); out != in {
		t.Fatalf("round trip %q -> %q", in, out)
	}
}
