package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

// CandidateEvent is an extracted-but-not-yet-validated event. It is never
// persisted in this shape; validation and deduplication run before anything
// is written.
type CandidateEvent struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	EventType       string  `json:"eventType"`
	DueDate         string  `json:"dueDate"`
	DueTime         *string `json:"dueTime"`
	ConfidenceScore float64 `json:"confidenceScore"`
	SourceText      string  `json:"sourceText"`
}

// EventExtractor turns raw syllabus text into candidate events. Extract never
// returns an error: if the model path fails the regex fallback runs, and if
// that also finds nothing the result is simply an empty list.
type EventExtractor interface {
	Extract(ctx context.Context, text string) []CandidateEvent
}

type extractionService struct {
	log *logger.Logger
	llm GeminiClient
}

// NewExtractionService builds the extractor. llm may be nil (no API
// credential configured), in which case every extraction uses the regex
// fallback.
func NewExtractionService(baseLog *logger.Logger, llm GeminiClient) EventExtractor {
	return &extractionService{
		log: baseLog.With("service", "ExtractionService"),
		llm: llm,
	}
}

// The instruction block is authoritative: it fixes the output field names,
// the allowed categories and the extraction rules. The syllabus text is
// appended directly after it.
const extractionPrompt = `You are extracting calendar events from a course syllabus.

Analyze the following syllabus text and extract every event that has an explicit calendar date: assignments, exams, quizzes, projects, readings and other deadlines.

Return ONLY a JSON array, with no surrounding prose or markdown fences. Each element must have exactly these fields:
- "title": short name of the event
- "description": optional details, or null
- "eventType": one of "assignment", "exam", "quiz", "project", "reading", "deadline"
- "dueDate": the date in YYYY-MM-DD format
- "dueTime": the time of day in 24-hour HH:MM format, or null if no time is given
- "confidenceScore": your confidence in this extraction as a number from 0.0 to 1.0
- "sourceText": the snippet of syllabus text that justifies this event

Rules:
- Only extract events whose date can be fully resolved to a calendar date. Skip relative or vague references like "second Tuesday" or "Week 3" unless the text anchors them to a real date.
- confidenceScore must reflect genuine certainty. Give ambiguous matches a low score instead of omitting them, unless no date can be resolved at all.

Syllabus text:

`

func (es *extractionService) Extract(ctx context.Context, text string) []CandidateEvent {
	if strings.TrimSpace(text) == "" {
		return []CandidateEvent{}
	}

	if es.llm != nil {
		events, err := es.extractWithModel(ctx, text)
		if err == nil {
			es.log.Info("Model extraction succeeded", "event_count", len(events))
			return events
		}
		es.log.Warn("Model extraction failed, using regex fallback", "error", err)
	} else {
		es.log.Debug("No model client configured, using regex fallback")
	}

	events := es.extractWithRegex(text)
	es.log.Info("Regex fallback extraction finished", "event_count", len(events))
	return events
}

func (es *extractionService) extractWithModel(ctx context.Context, text string) ([]CandidateEvent, error) {
	response, err := es.llm.GenerateContent(ctx, extractionPrompt+text)
	if err != nil {
		return nil, err
	}

	arrayText := firstJSONArray(response)
	if arrayText == "" {
		return nil, fmt.Errorf("no JSON array found in model response")
	}

	var raw []interface{}
	if err := json.Unmarshal([]byte(arrayText), &raw); err != nil {
		return nil, fmt.Errorf("model response array did not parse: %w", err)
	}

	events := make([]CandidateEvent, 0, len(raw))
	for _, element := range raw {
		m, ok := element.(map[string]interface{})
		if !ok {
			continue
		}
		events = append(events, coerceCandidate(m))
	}
	return events, nil
}

// firstJSONArray pulls the first bracket-delimited substring out of free-form
// model output. Known to be fragile when descriptions themselves contain
// brackets; kept until a schema-constrained generation mode is adopted.
func firstJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "]")
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// coerceCandidate applies the defaulting rules to one raw element. dueDate
// and dueTime pass through unmodified; a missing dueDate is accepted here and
// rejected later by validation.
func coerceCandidate(m map[string]interface{}) CandidateEvent {
	ev := CandidateEvent{
		Title:           stringField(m, "title", "Unknown Event"),
		EventType:       stringField(m, "eventType", types.EventTypeDeadline),
		DueDate:         stringField(m, "dueDate", ""),
		ConfidenceScore: floatField(m, "confidenceScore", 0.5),
		SourceText:      stringField(m, "sourceText", ""),
	}
	if d, ok := m["description"].(string); ok && d != "" {
		ev.Description = &d
	}
	if t, ok := m["dueTime"].(string); ok && t != "" {
		ev.DueTime = &t
	}
	return ev
}

func stringField(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func floatField(m map[string]interface{}, key string, def float64) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return def
}

// ---- regex fallback ----

// Every fallback event gets this fixed confidence; the regexes are reliable
// when they hit but blind to context.
const fallbackConfidence = 0.7

const (
	monthLongPat = `(?:January|February|March|April|May|June|July|August|September|October|November|December)`
	monthAbbrPat = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`
	keywordPat   = `(final\s+exam|midterm|assignments?|exams?|quiz(?:zes)?|projects?|deadlines?|due)`
)

// Three date forms: "Month DD, YYYY", "MM/DD/YYYY" and an abbreviated month
// with no year. The last form never resolves to a date and is dropped at
// parse time. Matches never cross a line boundary.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)` + keywordPat + `[:\s\-]*([^\n]{0,100}?)(` + monthLongPat + `\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)` + keywordPat + `[:\s\-]*([^\n]{0,100}?)(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)` + keywordPat + `[:\s\-]*([^\n]{0,100}?)(` + monthAbbrPat + `\.?\s+\d{1,2})(?:\D|$)`),
}

// extractWithRegex is best effort. Multiple patterns hitting the same text
// span can produce duplicate or overlapping candidates; exact (title, date)
// repeats are collapsed downstream, differently-worded overlaps are not.
func (es *extractionService) extractWithRegex(text string) []CandidateEvent {
	var events []CandidateEvent
	for _, pattern := range fallbackPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			keyword, middle, rawDate := match[1], match[2], match[3]
			dueDate, ok := parseFallbackDate(rawDate)
			if !ok {
				continue
			}
			events = append(events, CandidateEvent{
				Title:           fallbackTitle(keyword, middle),
				EventType:       categoryForKeyword(keyword),
				DueDate:         dueDate,
				ConfidenceScore: fallbackConfidence,
				SourceText:      strings.TrimSpace(match[0]),
			})
		}
	}
	return events
}

// Category precedence: exam beats quiz beats project beats assignment;
// anything else is a plain deadline.
func categoryForKeyword(keyword string) string {
	k := strings.ToLower(keyword)
	switch {
	case strings.Contains(k, "exam"), strings.Contains(k, "final"), strings.Contains(k, "midterm"):
		return types.EventTypeExam
	case strings.Contains(k, "quiz"):
		return types.EventTypeQuiz
	case strings.Contains(k, "project"):
		return types.EventTypeProject
	case strings.Contains(k, "assignment"):
		return types.EventTypeAssignment
	default:
		return types.EventTypeDeadline
	}
}

var connectorWords = map[string]bool{
	"due":  true,
	"on":   true,
	"by":   true,
	"date": true,
	"is":   true,
}

// fallbackTitle cleans the free-text segment between the keyword and the
// date. When nothing usable is left the keyword itself becomes the title.
func fallbackTitle(keyword, middle string) string {
	var kept []string
	for _, word := range strings.Fields(middle) {
		trimmed := strings.Trim(word, ":-–,")
		if trimmed == "" || connectorWords[strings.ToLower(trimmed)] {
			continue
		}
		kept = append(kept, trimmed)
	}
	if title := strings.Join(kept, " "); title != "" {
		return title
	}
	normalized := strings.Join(strings.Fields(keyword), " ")
	return strings.ToUpper(normalized[:1]) + strings.ToLower(normalized[1:])
}

// parseFallbackDate normalizes a matched date string to YYYY-MM-DD. A date
// without a resolvable year reports !ok and the match is discarded silently.
func parseFallbackDate(raw string) (string, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ".", ""))
	layouts := []string{"January 2, 2006", "January 2 2006", "1/2/2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
