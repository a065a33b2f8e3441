// Package gcal reads busy time from and exports blocks to Google Calendar.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
)

const (
	defaultCalendarID = "primary"
	defaultRate       = 5 // requests per second
	pageSize          = 250
)

var (
	_ calendar.Source   = (*Client)(nil)
	_ calendar.Exporter = (*Client)(nil)
)

// Client wraps the Calendar API service. Every request waits on a shared
// rate limiter.
type Client struct {
	service    *gapi.Service
	calendarID string
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithCalendarID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.calendarID = id
		}
	}
}

// WithRateLimit caps requests per second. Non-positive values keep the default.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

func newClient(svc *gapi.Service, opts []Option) *Client {
	c := &Client{
		service:    svc,
		calendarID: defaultCalendarID,
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromCredentialsFile reads a service account or installed-app
// credentials file. Installed-app credentials also need a token file.
func NewClientFromCredentialsFile(ctx context.Context, credentialsPath, tokenPath string, opts ...Option) (*Client, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return NewClientFromCredentialsJSON(ctx, data, tokenPath, opts...)
}

func NewClientFromCredentialsJSON(ctx context.Context, credentialsJSON []byte, tokenPath string, opts ...Option) (*Client, error) {
	return fromCredentials(ctx, credentialsJSON, func() ([]byte, error) {
		data, err := os.ReadFile(tokenPath)
		if err != nil {
			return nil, fmt.Errorf("installed-app credentials need a token file at %s: %w", tokenPath, err)
		}
		return data, nil
	}, opts)
}

// NewClientWithToken is NewClientFromCredentialsJSON with the OAuth token
// already in hand, e.g. read from the OS keyring.
func NewClientWithToken(ctx context.Context, credentialsJSON, tokenJSON []byte, opts ...Option) (*Client, error) {
	return fromCredentials(ctx, credentialsJSON, func() ([]byte, error) {
		return tokenJSON, nil
	}, opts)
}

func fromCredentials(ctx context.Context, credentialsJSON []byte, token func() ([]byte, error), opts []Option) (*Client, error) {
	if jwt, err := google.JWTConfigFromJSON(credentialsJSON, gapi.CalendarScope); err == nil {
		svc, err := gapi.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar service: %w", err)
		}
		return newClient(svc, opts), nil
	}

	var creds struct {
		Installed struct {
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
		} `json:"installed"`
	}
	if err := json.Unmarshal(credentialsJSON, &creds); err != nil || creds.Installed.ClientID == "" {
		return nil, fmt.Errorf("unsupported credentials format")
	}
	cfg := &oauth2.Config{
		ClientID:     creds.Installed.ClientID,
		ClientSecret: creds.Installed.ClientSecret,
		Scopes:       []string{gapi.CalendarScope},
		Endpoint:     google.Endpoint,
	}

	tokenData, err := token()
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenData, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	svc, err := gapi.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service from OAuth token: %w", err)
	}
	return newClient(svc, opts), nil
}

// NewClientFromHTTP uses a preconfigured HTTP client, e.g. in tests
func NewClientFromHTTP(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	svc, err := gapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return newClient(svc, opts), nil
}

// list pages through every single (expanded) event of calendarID in [from, to)
func (c *Client) list(ctx context.Context, calendarID string, from, to time.Time, fn func(*gapi.Event)) error {
	token := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		call := c.service.Events.List(calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(pageSize).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		page, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to list calendar events: %w", err)
		}
		for _, item := range page.Items {
			fn(item)
		}
		if page.NextPageToken == "" {
			return nil
		}
		token = page.NextPageToken
	}
}

// Events returns the timed events overlapping [from, to)
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	var out []calendar.Event
	err := c.list(ctx, c.calendarID, from, to, func(item *gapi.Event) {
		if e, ok := classify(item); ok {
			out = append(out, e)
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("calendar events loaded", "calendar", c.calendarID, "count", len(out))
	return out, nil
}

// classify maps an API event. Cancelled and all-day events are dropped.
// Events are locked unless marked free, and a private studyplan.locked
// property overrides either way.
func classify(item *gapi.Event) (calendar.Event, bool) {
	if item.Status == "cancelled" || item.Start == nil || item.End == nil || item.Start.DateTime == "" {
		return calendar.Event{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return calendar.Event{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return calendar.Event{}, false
	}

	e := calendar.Event{
		ID:      item.Id,
		Summary: item.Summary,
		Start:   start,
		End:     end,
		Locked:  item.Transparency != "transparent",
	}
	if item.ExtendedProperties != nil {
		switch item.ExtendedProperties.Private[constants.CalendarPropLocked] {
		case "true":
			e.Locked = true
		case "false":
			e.Locked = false
		}
		_, e.Block = item.ExtendedProperties.Private[constants.CalendarPropBlock]
	}
	return e, true
}

// CreateEvent exports b as a free (transparent) event tagged with its
// session key so later reads can skip it.
func (c *Client) CreateEvent(ctx context.Context, b models.ScheduledBlock, title string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	event := &gapi.Event{
		Summary:      title,
		Start:        &gapi.EventDateTime{DateTime: b.Start.Format(time.RFC3339)},
		End:          &gapi.EventDateTime{DateTime: b.End.Format(time.RFC3339)},
		Transparency: "transparent",
		ExtendedProperties: &gapi.EventExtendedProperties{
			Private: map[string]string{
				constants.CalendarPropBlock:  blockTag(b.Key()),
				constants.CalendarPropLocked: "false",
			},
		},
	}
	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes an exported event. Events that are already gone are
// not an error.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete calendar event %s: %w", eventID, err)
	}
	return nil
}

func blockTag(k models.SessionKey) string {
	return fmt.Sprintf("%s/%d/%d", k.TaskID, k.Occurrence, k.Index)
}
