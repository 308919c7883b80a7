package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Stored dates and times are plain "YYYY-MM-DD" / "HH:MM" strings. They are
// taken apart by splitting on their delimiters instead of being parsed into a
// full datetime, which sidesteps the off-by-one-day shifts that come from
// constructing a datetime in one timezone and rendering it in another.

func SplitDueDate(dueDate string) (year, month, day int, err error) {
	parts := strings.Split(dueDate, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid due date %q", dueDate)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid due date %q", dueDate)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid due date %q", dueDate)
	}
	day, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid due date %q", dueDate)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("invalid due date %q", dueDate)
	}
	return year, month, day, nil
}

func SplitDueTime(dueTime string) (hour, minute int, err error) {
	parts := strings.Split(dueTime, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid due time %q", dueTime)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid due time %q", dueTime)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid due time %q", dueTime)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid due time %q", dueTime)
	}
	return hour, minute, nil
}

func formatDueDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func formatDueTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
