package services

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/types"
)

const icsUIDDomain = "coursecal"

type ICSExportService interface {
	// ExportClass renders every event of the class (not just unexported ones)
	// as a VCALENDAR and marks them exported. Re-downloading the feed after
	// an edit yields the same UID per event, so calendar apps update in place.
	ExportClass(ctx context.Context, classID uuid.UUID) (string, string, error)
}

type icsExportService struct {
	db           *gorm.DB
	log          *logger.Logger
	eventRepo    repos.CalendarEventRepo
	classService ClassService
}

func NewICSExportService(db *gorm.DB, baseLog *logger.Logger, eventRepo repos.CalendarEventRepo, classService ClassService) ICSExportService {
	return &icsExportService{
		db:           db,
		log:          baseLog.With("service", "ICSExportService"),
		eventRepo:    eventRepo,
		classService: classService,
	}
}

func (is *icsExportService) ExportClass(ctx context.Context, classID uuid.UUID) (string, string, error) {
	class, err := is.classService.RequireOwnedClass(ctx, nil, classID)
	if err != nil {
		return "", "", err
	}
	events, err := is.eventRepo.GetByClassIDs(ctx, nil, []uuid.UUID{classID})
	if err != nil {
		return "", "", fmt.Errorf("load class events: %w", err)
	}

	serialized, uidByEventID, err := buildClassCalendar(class, events)
	if err != nil {
		return "", "", err
	}

	if len(uidByEventID) > 0 {
		err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return is.eventRepo.MarkExported(ctx, tx, uidByEventID, time.Now())
		})
		if err != nil {
			return "", "", fmt.Errorf("mark events exported: %w", err)
		}
	}
	is.log.Info("Exported class calendar", "class_id", classID, "event_count", len(uidByEventID))

	filename := fmt.Sprintf("%s.ics", sanitizeFilename(class.Name))
	return serialized, filename, nil
}

// buildClassCalendar renders the events without touching the database, so the
// serialization logic is testable on its own. Events with an unparseable due
// date are skipped rather than failing the whole feed.
func buildClassCalendar(class *types.Class, events []*types.CalendarEvent) (string, map[uuid.UUID]string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//CourseCal//CourseCal Backend//EN")
	cal.SetName(class.Name)

	now := time.Now()
	uidByEventID := make(map[uuid.UUID]string, len(events))
	for _, ev := range events {
		year, month, day, err := SplitDueDate(ev.DueDate)
		if err != nil {
			continue
		}

		uid := eventUID(ev)
		icsEvent := cal.AddEvent(uid)
		icsEvent.SetDtStampTime(now)
		icsEvent.SetSummary(ev.Title)
		if ev.Description != "" {
			icsEvent.SetDescription(ev.Description)
		}

		if ev.DueTime != nil {
			hour, minute, tErr := SplitDueTime(*ev.DueTime)
			if tErr != nil {
				continue
			}
			start := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
			icsEvent.SetStartAt(start)
			icsEvent.SetEndAt(start.Add(time.Hour))
		} else {
			// All-day: DTSTART is a date value and DTEND the following day,
			// per the usual exclusive-end convention.
			start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			icsEvent.SetAllDayStartAt(start)
			icsEvent.SetAllDayEndAt(start.AddDate(0, 0, 1))
		}
		uidByEventID[ev.ID] = uid
	}

	return cal.Serialize(), uidByEventID, nil
}

// eventUID reuses a previously assigned UID so repeat exports stay stable.
func eventUID(ev *types.CalendarEvent) string {
	if ev.ICSUID != nil && *ev.ICSUID != "" {
		return *ev.ICSUID
	}
	return fmt.Sprintf("%s@%s", ev.ID, icsUIDDomain)
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "calendar"
	}
	return string(out)
}
