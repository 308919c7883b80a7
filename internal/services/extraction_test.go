package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

func testLogger(t testing.TB) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

type stubGemini struct {
	response string
	err      error
	calls    int
}

func (s *stubGemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractEmptyTextReturnsEmpty(t *testing.T) {
	llm := &stubGemini{response: `[]`}
	ex := NewExtractionService(testLogger(t), llm)

	events := ex.Extract(context.Background(), "   \n\t ")
	if len(events) != 0 {
		t.Fatalf("expected no events for blank text, got %d", len(events))
	}
	if llm.calls != 0 {
		t.Fatalf("model should not be called for blank text, got %d calls", llm.calls)
	}
}

func TestExtractParsesModelResponse(t *testing.T) {
	llm := &stubGemini{response: "Here are the events:\n" + `[
		{"title": "Midterm Exam", "description": "Chapters 1-5", "eventType": "exam", "dueDate": "2024-10-15", "dueTime": "14:00", "confidenceScore": 0.95, "sourceText": "Midterm: Oct 15"}
	]` + "\nLet me know if you need anything else."}
	ex := NewExtractionService(testLogger(t), llm)

	events := ex.Extract(context.Background(), "Midterm: Oct 15, 2024")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Title != "Midterm Exam" {
		t.Fatalf("title = %q", ev.Title)
	}
	if ev.EventType != types.EventTypeExam {
		t.Fatalf("eventType = %q", ev.EventType)
	}
	if ev.DueDate != "2024-10-15" {
		t.Fatalf("dueDate = %q", ev.DueDate)
	}
	if ev.DueTime == nil || *ev.DueTime != "14:00" {
		t.Fatalf("dueTime = %v", ev.DueTime)
	}
	if ev.ConfidenceScore != 0.95 {
		t.Fatalf("confidenceScore = %v", ev.ConfidenceScore)
	}
}

func TestExtractCoercesMissingFields(t *testing.T) {
	llm := &stubGemini{response: `[{"dueDate": "2024-09-01"}, "not an object", 42]`}
	ex := NewExtractionService(testLogger(t), llm)

	events := ex.Extract(context.Background(), "some syllabus text")
	if len(events) != 1 {
		t.Fatalf("expected 1 event (non-objects skipped), got %d", len(events))
	}
	ev := events[0]
	if ev.Title != "Unknown Event" {
		t.Fatalf("default title = %q", ev.Title)
	}
	if ev.EventType != types.EventTypeDeadline {
		t.Fatalf("default eventType = %q", ev.EventType)
	}
	if ev.ConfidenceScore != 0.5 {
		t.Fatalf("default confidenceScore = %v", ev.ConfidenceScore)
	}
	if ev.SourceText != "" {
		t.Fatalf("default sourceText = %q", ev.SourceText)
	}
	if ev.Description != nil || ev.DueTime != nil {
		t.Fatalf("optional fields should stay nil, got %v %v", ev.Description, ev.DueTime)
	}
}

func TestExtractFallsBackWhenModelErrors(t *testing.T) {
	llm := &stubGemini{err: errors.New("upstream 500")}
	ex := NewExtractionService(testLogger(t), llm)

	events := ex.Extract(context.Background(), "Assignment due: September 15, 2024")
	if llm.calls != 1 {
		t.Fatalf("expected one model attempt, got %d", llm.calls)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 fallback event, got %d", len(events))
	}
	ev := events[0]
	if ev.Title != "Assignment" {
		t.Fatalf("title = %q", ev.Title)
	}
	if ev.EventType != types.EventTypeAssignment {
		t.Fatalf("eventType = %q", ev.EventType)
	}
	if ev.DueDate != "2024-09-15" {
		t.Fatalf("dueDate = %q", ev.DueDate)
	}
	if ev.ConfidenceScore != fallbackConfidence {
		t.Fatalf("confidenceScore = %v, want %v", ev.ConfidenceScore, fallbackConfidence)
	}
	if ev.DueTime != nil {
		t.Fatalf("fallback events never carry a time, got %v", *ev.DueTime)
	}
}

func TestExtractFallsBackWhenResponseHasNoArray(t *testing.T) {
	llm := &stubGemini{response: "I could not find any events in this syllabus."}
	ex := NewExtractionService(testLogger(t), llm)

	events := ex.Extract(context.Background(), "Final exam May 10, 2025")
	if len(events) != 1 {
		t.Fatalf("expected 1 fallback event, got %d", len(events))
	}
	if events[0].EventType != types.EventTypeExam {
		t.Fatalf("eventType = %q", events[0].EventType)
	}
	if events[0].DueDate != "2025-05-10" {
		t.Fatalf("dueDate = %q", events[0].DueDate)
	}
}

func TestExtractWithoutModelUsesFallback(t *testing.T) {
	ex := NewExtractionService(testLogger(t), nil)

	events := ex.Extract(context.Background(), "Project deadline 10/31/2024")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != types.EventTypeProject {
		t.Fatalf("eventType = %q", events[0].EventType)
	}
	if events[0].DueDate != "2024-10-31" {
		t.Fatalf("dueDate = %q", events[0].DueDate)
	}
}

func TestFallbackDropsDatesWithoutYear(t *testing.T) {
	ex := NewExtractionService(testLogger(t), nil)

	events := ex.Extract(context.Background(), "Quiz on Sep 15")
	if len(events) != 0 {
		t.Fatalf("year-less dates must be dropped, got %d events", len(events))
	}
}

func TestFallbackDoesNotCrossLines(t *testing.T) {
	ex := NewExtractionService(testLogger(t), nil)

	// The keyword and date sit on different lines, so no match.
	events := ex.Extract(context.Background(), "Assignment policies apply.\nOffice hours start September 15, 2024")
	if len(events) != 0 {
		t.Fatalf("matches must not span lines, got %d events", len(events))
	}
}

func TestFirstJSONArray(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"[]", "[]"},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"no array here", ""},
		{"closing ] before opening", ""},
	}
	for _, tc := range cases {
		if got := firstJSONArray(tc.in); got != tc.want {
			t.Errorf("firstJSONArray(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryForKeywordPrecedence(t *testing.T) {
	cases := map[string]string{
		"final exam":  types.EventTypeExam,
		"midterm":     types.EventTypeExam,
		"Exams":       types.EventTypeExam,
		"quizzes":     types.EventTypeQuiz,
		"project":     types.EventTypeProject,
		"assignments": types.EventTypeAssignment,
		"due":         types.EventTypeDeadline,
		"deadline":    types.EventTypeDeadline,
	}
	for keyword, want := range cases {
		if got := categoryForKeyword(keyword); got != want {
			t.Errorf("categoryForKeyword(%q) = %q, want %q", keyword, got, want)
		}
	}
}

func TestFallbackTitleFiltersConnectors(t *testing.T) {
	if got := fallbackTitle("assignment", "due: "); got != "Assignment" {
		t.Fatalf("empty middle should fall back to keyword, got %q", got)
	}
	if got := fallbackTitle("exam", "Chapter 5 review is due by "); got != "Chapter 5 review" {
		t.Fatalf("got %q", got)
	}
}
