package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/coursecal/coursecal-backend/internal/types"
)

func TestBuildClassCalendar(t *testing.T) {
	class := &types.Class{ID: uuid.New(), Name: "Biology 101"}
	dueTime := "14:30"
	allDay := &types.CalendarEvent{
		ID:          uuid.New(),
		Title:       "Essay 1",
		Description: "Five pages",
		EventType:   types.EventTypeAssignment,
		DueDate:     "2024-09-15",
	}
	timed := &types.CalendarEvent{
		ID:        uuid.New(),
		Title:     "Midterm Exam",
		EventType: types.EventTypeExam,
		DueDate:   "2024-10-15",
		DueTime:   &dueTime,
	}
	broken := &types.CalendarEvent{
		ID:        uuid.New(),
		Title:     "No real date",
		EventType: types.EventTypeDeadline,
		DueDate:   "sometime",
	}

	serialized, uidByEventID, err := buildClassCalendar(class, []*types.CalendarEvent{allDay, timed, broken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(serialized, "BEGIN:VCALENDAR") || !strings.Contains(serialized, "END:VCALENDAR") {
		t.Fatalf("missing VCALENDAR envelope:\n%s", serialized)
	}
	if !strings.Contains(serialized, "SUMMARY:Essay 1") {
		t.Fatalf("missing all-day event summary:\n%s", serialized)
	}
	if !strings.Contains(serialized, "SUMMARY:Midterm Exam") {
		t.Fatalf("missing timed event summary:\n%s", serialized)
	}
	// All-day events serialize DTSTART as a date value.
	if !strings.Contains(serialized, "VALUE=DATE:20240915") {
		t.Fatalf("all-day DTSTART missing:\n%s", serialized)
	}
	if strings.Contains(serialized, "No real date") {
		t.Fatalf("event with malformed date must be skipped:\n%s", serialized)
	}

	if len(uidByEventID) != 2 {
		t.Fatalf("expected 2 exported uids, got %d", len(uidByEventID))
	}
	if _, ok := uidByEventID[broken.ID]; ok {
		t.Fatal("skipped event must not be marked exported")
	}
}

func TestBuildClassCalendarReusesAssignedUID(t *testing.T) {
	class := &types.Class{ID: uuid.New(), Name: "Chem"}
	existingUID := "stable-uid@coursecal"
	ev := &types.CalendarEvent{
		ID:        uuid.New(),
		Title:     "Quiz 1",
		EventType: types.EventTypeQuiz,
		DueDate:   "2024-09-20",
		ICSUID:    &existingUID,
	}

	serialized, uidByEventID, err := buildClassCalendar(class, []*types.CalendarEvent{ev})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uidByEventID[ev.ID] != existingUID {
		t.Fatalf("uid changed across exports: %q", uidByEventID[ev.ID])
	}
	if !strings.Contains(serialized, existingUID) {
		t.Fatalf("serialized feed missing the stable uid:\n%s", serialized)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Biology 101":    "Biology_101",
		"CS/361: Algos!": "CS361_Algos",
		"":               "calendar",
		"///":            "calendar",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
