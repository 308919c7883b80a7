package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
	"github.com/coursecal/coursecal-backend/internal/utils"
)

const googleCalendarID = "primary"

type GoogleCalendarService interface {
	// ConnectWithCode exchanges an OAuth authorization code and stores the
	// resulting token on the authenticated user.
	ConnectWithCode(ctx context.Context, authCode string) error
	// SaveToken stores a token the client already exchanged elsewhere.
	SaveToken(ctx context.Context, token *oauth2.Token) error
	// ExportClass pushes the class's not-yet-exported events to the user's
	// primary Google calendar and records the returned iCal UIDs.
	ExportClass(ctx context.Context, classID uuid.UUID) (int, error)
	// ImportEvents pulls events from the user's primary calendar inside the
	// given window and stores the ones not already present on the class.
	ImportEvents(ctx context.Context, classID uuid.UUID, timeMin, timeMax time.Time) ([]*types.CalendarEvent, error)
}

type googleCalendarService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	eventRepo    repos.CalendarEventRepo
	classService ClassService
	oauthConfig  *oauth2.Config
}

func NewGoogleCalendarService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	eventRepo repos.CalendarEventRepo,
	classService ClassService,
) GoogleCalendarService {
	serviceLog := baseLog.With("service", "GoogleCalendarService")
	cfg := &oauth2.Config{
		ClientID:     utils.GetEnv("GOOGLE_CLIENT_ID", "", serviceLog),
		ClientSecret: utils.GetEnv("GOOGLE_CLIENT_SECRET", "", serviceLog),
		RedirectURL:  utils.GetEnv("GOOGLE_REDIRECT_URL", "urn:ietf:wg:oauth:2.0:oob", serviceLog),
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
	return &googleCalendarService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		eventRepo:    eventRepo,
		classService: classService,
		oauthConfig:  cfg,
	}
}

func (gs *googleCalendarService) ConnectWithCode(ctx context.Context, authCode string) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("no authenticated user in context")
	}
	if gs.oauthConfig.ClientID == "" || gs.oauthConfig.ClientSecret == "" {
		return fmt.Errorf("google calendar integration is not configured")
	}
	token, err := gs.oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return gs.SaveToken(ctx, token)
}

func (gs *googleCalendarService) SaveToken(ctx context.Context, token *oauth2.Token) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("no authenticated user in context")
	}
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("token is missing an access token")
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := gs.userRepo.UpdateFields(ctx, nil, rd.UserID, map[string]interface{}{
		"google_calendar_token": datatypes.JSON(raw),
	}); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	gs.log.Info("Stored Google Calendar token", "user_id", rd.UserID)
	return nil
}

func (gs *googleCalendarService) ExportClass(ctx context.Context, classID uuid.UUID) (int, error) {
	class, err := gs.classService.RequireOwnedClass(ctx, nil, classID)
	if err != nil {
		return 0, err
	}
	svc, err := gs.serviceForUser(ctx, class.UserID)
	if err != nil {
		return 0, err
	}
	events, err := gs.eventRepo.GetUnexportedByClassID(ctx, nil, classID)
	if err != nil {
		return 0, fmt.Errorf("load unexported events: %w", err)
	}

	uidByEventID := make(map[uuid.UUID]string, len(events))
	for _, ev := range events {
		gEvent, bErr := googleEventFor(class, ev)
		if bErr != nil {
			gs.log.Warn("Skipping event with malformed date", "event_id", ev.ID, "error", bErr)
			continue
		}
		inserted, iErr := svc.Events.Insert(googleCalendarID, gEvent).Context(ctx).Do()
		if iErr != nil {
			// Events already pushed stay marked; the rest retry next export.
			if mErr := gs.eventRepo.MarkExported(ctx, nil, uidByEventID, time.Now()); mErr != nil {
				gs.log.Error("Failed to record partial export", "error", mErr)
			}
			return len(uidByEventID), fmt.Errorf("insert event %s: %w", ev.ID, iErr)
		}
		uidByEventID[ev.ID] = inserted.ICalUID
	}

	if len(uidByEventID) > 0 {
		if mErr := gs.eventRepo.MarkExported(ctx, nil, uidByEventID, time.Now()); mErr != nil {
			return len(uidByEventID), fmt.Errorf("mark events exported: %w", mErr)
		}
	}
	gs.log.Info("Exported events to Google Calendar", "class_id", classID, "count", len(uidByEventID))
	return len(uidByEventID), nil
}

func (gs *googleCalendarService) ImportEvents(ctx context.Context, classID uuid.UUID, timeMin, timeMax time.Time) ([]*types.CalendarEvent, error) {
	class, err := gs.classService.RequireOwnedClass(ctx, nil, classID)
	if err != nil {
		return nil, err
	}
	svc, err := gs.serviceForUser(ctx, class.UserID)
	if err != nil {
		return nil, err
	}

	listed, err := svc.Events.List(googleCalendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list google calendar events: %w", err)
	}

	existing, err := gs.eventRepo.GetByClassIDs(ctx, nil, []uuid.UUID{classID})
	if err != nil {
		return nil, fmt.Errorf("load existing events: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, ev := range existing {
		seen[dedupeKey(ev.Title, ev.DueDate)] = true
	}

	var imported []*types.CalendarEvent
	for _, item := range listed.Items {
		dueDate, dueTime, ok := splitGoogleStart(item.Start)
		if !ok || item.Summary == "" {
			continue
		}
		key := dedupeKey(item.Summary, dueDate)
		if seen[key] {
			continue
		}
		seen[key] = true
		uid := item.ICalUID
		imported = append(imported, &types.CalendarEvent{
			ID:               uuid.New(),
			UserID:           class.UserID,
			ClassID:          class.ID,
			Title:            item.Summary,
			Description:      item.Description,
			EventType:        types.EventTypeGoogleCalendar,
			DueDate:          dueDate,
			DueTime:          dueTime,
			ExtractionMethod: types.ExtractionMethodGoogleImport,
			ICSUID:           &uid,
		})
	}

	if _, err := gs.eventRepo.Create(ctx, nil, imported); err != nil {
		return nil, fmt.Errorf("save imported events: %w", err)
	}
	gs.log.Info("Imported events from Google Calendar", "class_id", classID, "count", len(imported))
	if imported == nil {
		imported = []*types.CalendarEvent{}
	}
	return imported, nil
}

func (gs *googleCalendarService) serviceForUser(ctx context.Context, userID uuid.UUID) (*calendar.Service, error) {
	users, err := gs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil || len(users) == 0 {
		return nil, fmt.Errorf("load user for calendar access")
	}
	user := users[0]
	if len(user.GoogleCalendarToken) == 0 {
		return nil, fmt.Errorf("google calendar is not connected for this account")
	}
	var token oauth2.Token
	if err := json.Unmarshal(user.GoogleCalendarToken, &token); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	source := gs.oauthConfig.TokenSource(ctx, &token)
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// googleEventFor maps a stored event to the API shape. Date-only events use
// the all-day Date field so no timezone conversion can shift the day.
func googleEventFor(class *types.Class, ev *types.CalendarEvent) (*calendar.Event, error) {
	year, month, day, err := SplitDueDate(ev.DueDate)
	if err != nil {
		return nil, err
	}
	out := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
	}
	if class.Name != "" {
		out.Summary = fmt.Sprintf("%s: %s", class.Name, ev.Title)
	}
	if ev.DueTime != nil {
		hour, minute, tErr := SplitDueTime(*ev.DueTime)
		if tErr != nil {
			return nil, tErr
		}
		start := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
		out.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		out.End = &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)}
	} else {
		next := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		out.Start = &calendar.EventDateTime{Date: ev.DueDate}
		out.End = &calendar.EventDateTime{Date: next.Format("2006-01-02")}
	}
	return out, nil
}

// splitGoogleStart slices the stored date and time straight out of the API's
// string fields. All-day events carry Date ("YYYY-MM-DD"), timed events carry
// an RFC3339 DateTime whose first 10 runes are the date and runes 11..16 the
// time, both already in the event's own timezone.
func splitGoogleStart(start *calendar.EventDateTime) (string, *string, bool) {
	if start == nil {
		return "", nil, false
	}
	if start.Date != "" {
		return start.Date, nil, true
	}
	if len(start.DateTime) >= 16 {
		dueTime := start.DateTime[11:16]
		return start.DateTime[:10], &dueTime, true
	}
	return "", nil, false
}
