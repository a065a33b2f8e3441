package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gapi "google.golang.org/api/calendar/v3"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type rewriteTransport struct {
	Transport http.RoundTripper
	Host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.Host
	return t.Transport.RoundTrip(req)
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient := &http.Client{Transport: &rewriteTransport{
		Transport: http.DefaultTransport,
		Host:      strings.TrimPrefix(srv.URL, "http://"),
	}}
	c, err := NewClientFromHTTP(context.Background(), httpClient, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func timed(id, start, end string) *gapi.Event {
	return &gapi.Event{
		Id:    id,
		Start: &gapi.EventDateTime{DateTime: start},
		End:   &gapi.EventDateTime{DateTime: end},
	}
}

func TestClassify(t *testing.T) {
	free := timed("free", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	free.Transparency = "transparent"
	forcedFree := timed("forced-free", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	forcedFree.ExtendedProperties = &gapi.EventExtendedProperties{Private: map[string]string{constants.CalendarPropLocked: "false"}}
	forcedLocked := timed("forced-locked", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	forcedLocked.Transparency = "transparent"
	forcedLocked.ExtendedProperties = &gapi.EventExtendedProperties{Private: map[string]string{constants.CalendarPropLocked: "true"}}
	ours := timed("ours", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	ours.ExtendedProperties = &gapi.EventExtendedProperties{Private: map[string]string{constants.CalendarPropBlock: "a/0/0"}}
	cancelled := timed("cancelled", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	cancelled.Status = "cancelled"
	allDay := &gapi.Event{Id: "all-day", Start: &gapi.EventDateTime{Date: "2025-03-10"}, End: &gapi.EventDateTime{Date: "2025-03-11"}}

	tests := []struct {
		name       string
		item       *gapi.Event
		wantOK     bool
		wantLocked bool
		wantBlock  bool
	}{
		{name: "busy", item: timed("busy", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z"), wantOK: true, wantLocked: true},
		{name: "free", item: free, wantOK: true},
		{name: "property unlocks", item: forcedFree, wantOK: true},
		{name: "property locks", item: forcedLocked, wantOK: true, wantLocked: true},
		{name: "exported block", item: ours, wantOK: true, wantLocked: true, wantBlock: true},
		{name: "cancelled", item: cancelled},
		{name: "all day", item: allDay},
		{name: "bad time", item: timed("bad", "yesterday", "2025-03-10T10:00:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := classify(tt.item)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantLocked, e.Locked)
			assert.Equal(t, tt.wantBlock, e.Block)
		})
	}
}

func TestEventsPaginates(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/v3/calendars/work/events", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		calls.Add(1)
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, gapi.Events{
				Items:         []*gapi.Event{timed("a", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")},
				NextPageToken: "next",
			})
			return
		}
		writeJSON(t, w, gapi.Events{Items: []*gapi.Event{timed("b", "2025-03-10T13:00:00Z", "2025-03-10T14:00:00Z")}})
	})
	c := newTestClient(t, handler, WithCalendarID("work"), WithRateLimit(100))

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := c.Events(context.Background(), from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEventsPropagatesErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	}))
	_, err := c.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestCreateEvent(t *testing.T) {
	var got gapi.Event
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, gapi.Event{Id: "evt-42"})
	})
	c := newTestClient(t, handler)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	b := models.ScheduledBlock{TaskID: "essay", Occurrence: 1, SessionIndex: 2, Start: start, End: start.Add(time.Hour)}
	id, err := c.CreateEvent(context.Background(), b, "Study: essay")
	require.NoError(t, err)
	assert.Equal(t, "evt-42", id)

	assert.Equal(t, "Study: essay", got.Summary)
	assert.Equal(t, "transparent", got.Transparency)
	require.NotNil(t, got.ExtendedProperties)
	assert.Equal(t, "essay/1/2", got.ExtendedProperties.Private[constants.CalendarPropBlock])
	assert.Equal(t, "2025-03-10T09:00:00Z", got.Start.DateTime)
}

func TestHolidaySourceCachesYears(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, gapi.Events{Items: []*gapi.Event{
			{Id: "xmas", Start: &gapi.EventDateTime{Date: "2025-12-25"}},
			{Id: "meeting", Start: &gapi.EventDateTime{DateTime: "2025-12-26T09:00:00Z"}},
		}})
	})
	h, err := NewHolidaySource(newTestClient(t, handler), "holidays", time.UTC)
	require.NoError(t, err)

	yes, err := h.IsHoliday(time.Date(2025, 12, 25, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := h.IsHoliday(time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, no, "timed events are not holidays")
	assert.Equal(t, int32(1), calls.Load())

	_, err = h.IsHoliday(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	_, err = NewHolidaySource(nil, "", nil)
	assert.Error(t, err)
}

func TestNewClientFromCredentials(t *testing.T) {
	installed := []byte(`{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"s","redirect_uris":["http://localhost"]}}`)
	dir := t.TempDir()

	_, err := NewClientFromCredentialsJSON(context.Background(), []byte(`{"broken":true}`), "")
	assert.Error(t, err)

	_, err = NewClientFromCredentialsJSON(context.Background(), installed, filepath.Join(dir, "missing.json"))
	assert.Error(t, err, "installed credentials need a token")

	token := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(token, []byte(`{"access_token":"x","token_type":"Bearer","expiry":"2030-01-01T00:00:00Z"}`), 0600))
	_, err = NewClientFromCredentialsJSON(context.Background(), installed, token)
	assert.NoError(t, err)

	_, err = NewClientFromCredentialsFile(context.Background(), filepath.Join(dir, "nope.json"), token)
	assert.Error(t, err)

	_, err = NewClientWithToken(context.Background(), installed, []byte(`{"access_token":"x","token_type":"Bearer"}`))
	assert.NoError(t, err)
	_, err = NewClientWithToken(context.Background(), installed, []byte(`not json`))
	assert.Error(t, err)
}

func TestDeleteEvent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/calendar/v3/calendars/primary/events/live":
			w.WriteHeader(http.StatusNoContent)
		case "/calendar/v3/calendars/primary/events/gone":
			http.Error(w, `{"error":{"code":410,"message":"deleted"}}`, http.StatusGone)
		default:
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
		}
	})
	c := newTestClient(t, handler)

	assert.NoError(t, c.DeleteEvent(context.Background(), "live"))
	assert.NoError(t, c.DeleteEvent(context.Background(), "gone"))
	assert.Error(t, c.DeleteEvent(context.Background(), "other"))
}
