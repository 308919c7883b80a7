package services

import (
	"strings"
	"time"

	"github.com/coursecal/coursecal-backend/internal/types"
)

// Categories the extraction-time validator accepts. Note: the extraction
// prompt allows "reading" but this allow-list does not, so model-extracted
// readings are filtered out. Intentional narrowing carried over from the
// original behavior; confirm before widening.
var acceptedCandidateTypes = map[string]bool{
	types.EventTypeAssignment: true,
	types.EventTypeExam:       true,
	types.EventTypeQuiz:       true,
	types.EventTypeProject:    true,
	types.EventTypeDeadline:   true,
}

// ValidateCandidates is a stable pure filter: surviving events keep their
// input order and are not mutated. An event is rejected when its title is
// empty, its due date is missing or not a real calendar date, its type is
// outside the accepted set, or its confidence is outside [0, 1].
func ValidateCandidates(events []CandidateEvent) []CandidateEvent {
	out := make([]CandidateEvent, 0, len(events))
	for _, ev := range events {
		if strings.TrimSpace(ev.Title) == "" {
			continue
		}
		if !validDueDate(ev.DueDate) {
			continue
		}
		if !acceptedCandidateTypes[ev.EventType] {
			continue
		}
		if ev.ConfidenceScore < 0 || ev.ConfidenceScore > 1 {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// DedupeCandidates collapses events sharing a normalized (title, date) key.
// First occurrence wins regardless of differing description, time or
// confidence. Exact-match only: near-duplicates are left alone.
func DedupeCandidates(events []CandidateEvent) []CandidateEvent {
	seen := make(map[string]bool, len(events))
	out := make([]CandidateEvent, 0, len(events))
	for _, ev := range events {
		key := dedupeKey(ev.Title, ev.DueDate)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	return out
}

func dedupeKey(title, dueDate string) string {
	return strings.ToLower(title) + "-" + dueDate
}

func validDueDate(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
