package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/api/dto"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/events"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/provider"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository/memory"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type emailStub struct{}

func (emailStub) Channel() domain.Channel { return domain.ChannelEmail }

func (emailStub) IsConfigured() bool { return true }

func (emailStub) Send(context.Context, provider.SendOptions) provider.SendResult {
	return provider.SendResult{Success: true, MessageID: "m-1"}
}

func newTestRouter(t *testing.T, cronSecret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	loader := cache.NewLoader(cache.NewMemoryCache(time.Minute), time.Minute)

	dispatch := services.NewDispatchService(store, store, services.NewRecipientResolver(store),
		provider.NewRegistry(emailStub{}), loader, events.NoopPublisher{}, services.DispatchOptions{})
	scheduler := services.NewSchedulerService(store, store, dispatch, services.SchedulerOptions{})

	h := NewHandler(Services{
		Dispatch:   dispatch,
		Scheduler:  scheduler,
		Progress:   services.NewProgressService(store),
		Stats:      services.NewStatsService(store, store, loader),
		Content:    services.NewContentService(store, store, store, dispatch, scheduler, loader),
		Membership: services.NewMembershipService(store, loader),
	}, worker.NewJobManager(scheduler, 0, &sync.WaitGroup{}), cronSecret, context.Background())

	return NewRouter(h)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"no secret configured", "", "Bearer ", http.StatusUnauthorized},
		{"missing header", testSecret, "", http.StatusUnauthorized},
		{"wrong token", testSecret, "Bearer nope", http.StatusUnauthorized},
		{"no bearer prefix", testSecret, testSecret, http.StatusUnauthorized},
		{"valid", testSecret, "Bearer " + testSecret, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.secret)
			w := do(t, r, http.MethodGet, "/api/cron/dispatch-due", nil, "Authorization", tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, 0, decode[dto.CronResponse](t, w).Processed)
			}
		})
	}
}

func TestDispatchAnnouncementFlow(t *testing.T) {
	r := newTestRouter(t, testSecret)

	w := do(t, r, http.MethodPost, "/api/groups", dto.CreateGroupRequest{Name: "The Cohens"})
	require.Equal(t, http.StatusCreated, w.Code)
	group := decode[domain.Group](t, w)
	assert.Equal(t, "the-cohens", group.Slug)

	w = do(t, r, http.MethodPost, "/api/users", dto.CreateUserRequest{Name: "Dana", Email: "dana@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[domain.User](t, w)

	dest := "dana@example.com"
	w = do(t, r, http.MethodPut, "/api/users/"+user.ID+"/preferences/email", dto.SetPreferenceRequest{Enabled: true, Destination: &dest})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/groups/"+group.ID+"/members", dto.AddMemberRequest{UserID: "ghost"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/groups/"+group.ID+"/members", dto.AddMemberRequest{UserID: user.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	later := time.Now().Add(time.Hour)
	w = do(t, r, http.MethodPost, "/api/groups/"+group.ID+"/announcements", dto.CreateAnnouncementRequest{Title: "Dinner", ScheduledAt: &later})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[services.Created[domain.Announcement]](t, w)
	assert.Nil(t, created.Dispatch, "a future announcement waits for the scheduler")

	w = do(t, r, http.MethodPost, "/api/dispatch/announcement", dto.DispatchAnnouncementRequest{
		AnnouncementID: created.Item.ID,
		FamilyGroupID:  group.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.DispatchResponse{
		Success:  true,
		ItemType: string(domain.ItemAnnouncement),
		ItemID:   created.Item.ID,
		Attempts: 1,
		Sent:     1,
	}, decode[dto.DispatchResponse](t, w))

	w = do(t, r, http.MethodGet, "/api/progress/announcement/"+created.Item.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[domain.ProgressReport](t, w)
	assert.True(t, report.IsComplete)
	assert.Equal(t, 100, report.Percentage)

	w = do(t, r, http.MethodGet, "/api/groups/"+group.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, "/api/groups/"+group.ID+"/announcements/"+created.Item.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/progress/ANNOUNCEMENT/"+created.Item.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[domain.ProgressReport](t, w).Global.Total)
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t, testSecret)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed dispatch body", http.MethodPost, "/api/dispatch/announcement", map[string]string{}, http.StatusBadRequest},
		{"missing announcement", http.MethodPost, "/api/dispatch/announcement", dto.DispatchAnnouncementRequest{AnnouncementID: "a", FamilyGroupID: "g"}, http.StatusNotFound},
		{"event without target", http.MethodPost, "/api/dispatch/event", dto.DispatchEventRequest{FamilyGroupID: "g"}, http.StatusBadRequest},
		{"missing reminder", http.MethodPost, "/api/dispatch/event", dto.DispatchEventRequest{EventReminderID: "r", FamilyGroupID: "g"}, http.StatusNotFound},
		{"unknown item type", http.MethodGet, "/api/progress/POSTCARD/x", nil, http.StatusBadRequest},
		{"unknown group stats", http.MethodGet, "/api/groups/nope/stats", nil, http.StatusNotFound},
		{"unknown channel", http.MethodPut, "/api/users/u/preferences/fax", dto.SetPreferenceRequest{}, http.StatusBadRequest},
		{"announcement in unknown group", http.MethodPost, "/api/groups/nope/announcements", dto.CreateAnnouncementRequest{Title: "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[dto.ErrorResponse](t, w).Error)
		})
	}
}

func TestToggleWithoutInterval(t *testing.T) {
	r := newTestRouter(t, testSecret)

	w := do(t, r, http.MethodPut, "/api/scheduler/toggle", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, worker.ErrNoInterval.Error(), decode[dto.ErrorResponse](t, w).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, testSecret)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/metrics", nil).Code)
}
