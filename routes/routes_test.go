package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estateleads/config"
	"estateleads/leads"
	"estateleads/utils"
)

const secret = "routes-secret"

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type envelope struct {
	Success   bool                  `json:"success"`
	Error     string                `json:"error"`
	Details   string                `json:"details"`
	Data      json.RawMessage       `json:"data"`
	Total     int64                 `json:"total"`
	Page      int                   `json:"page"`
	PageSize  int                   `json:"page_size"`
	Reminders leads.ReminderChanges `json:"reminders"`
}

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))

	policy, err := leads.ParseWeights(leads.DefaultWeights)
	require.NoError(t, err)

	app := fiber.New()
	SetupRoutes(app, db, Options{
		JWTSecret:       secret,
		Policy:          policy,
		Location:        time.UTC,
		ActionRateLimit: 100,
		Now:             func() time.Time { return fixedNow },
	})
	return &testServer{t: t, app: app}
}

func bearer(t *testing.T, id uint, typ string) string {
	tok, err := utils.GenerateToken(secret, id, typ, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(method, path, auth string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

type leadJSON struct {
	ID             uint             `json:"id"`
	GroupedLeadKey string           `json:"grouped_lead_key"`
	Status         leads.Status     `json:"status"`
	StatusTracker  []leads.Status   `json:"status_tracker"`
	Notes          []string         `json:"notes"`
	LeadScore      int              `json:"lead_score"`
	LeadCategory   leads.Category   `json:"lead_category"`
	Reminders      []leads.Reminder `json:"reminders"`
	LeadActions    []struct {
		ActionID   string `json:"action_id"`
		ActionType string `json:"action_type"`
		ActionDate string `json:"action_date"`
	} `json:"lead_actions"`
}

func (s *testServer) recordAction(seeker uint, body map[string]interface{}) leadJSON {
	s.t.Helper()
	status, env := s.do("POST", "/api/v1/leads/actions", bearer(s.t, seeker, "seeker"), body)
	require.Equal(s.t, http.StatusCreated, status, env.Details)
	var data struct {
		Lead leadJSON `json:"lead"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Lead
}

func TestAPI_ActionToPatchFlow(t *testing.T) {
	s := newTestServer(t)
	agent := bearer(t, 7, "agent")

	lead := s.recordAction(3, map[string]interface{}{
		"lister_id": 7, "lister_type": "agent", "listing_id": 42,
		"action_type": "lead_appointment", "action_date": "2026-03-09",
		"seeker_name": "Dana", "seeker_email": "dana@example.com", "listing_title": "Harbour Loft",
		"action_metadata": map[string]interface{}{"slot": "morning"},
	})
	lead = s.recordAction(3, map[string]interface{}{
		"lister_id": 7, "lister_type": "agent", "listing_id": 42, "action_type": "lead_phone",
	})
	assert.Equal(t, "agent:7:3:42", lead.GroupedLeadKey)
	assert.Equal(t, 50, lead.LeadScore)
	assert.Equal(t, leads.CategoryMedium, lead.LeadCategory)
	require.Len(t, lead.LeadActions, 2)

	status, env := s.do("GET", "/api/v1/leads?search=harbour&action_type=lead_phone", agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.EqualValues(t, 1, env.Total)
	assert.Equal(t, 20, env.PageSize)

	patch := map[string]interface{}{
		"status": "contacted",
		"notes":  []string{"wants parking"},
		"reminders": []map[string]interface{}{
			{"id": nil, "client_ref": "local-a", "note_text": "call back", "reminder_date": "2026-03-11", "reminder_time": "10:00"},
		},
	}
	path := fmt.Sprintf("/api/v1/leads/%d", lead.ID)
	status, env = s.do("PATCH", path, agent, patch)
	require.Equal(t, http.StatusOK, status, env.Details)

	var state leads.LeadState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, leads.StatusContacted, state.Status)
	assert.Equal(t, []leads.Status{leads.StatusNew, leads.StatusContacted}, state.StatusTracker)
	assert.Equal(t, []string{"wants parking"}, state.Notes)
	require.Len(t, env.Reminders.Created, 1)
	assert.Equal(t, "local-a", env.Reminders.Created[0].ClientRef)
	require.NotNil(t, env.Reminders.Created[0].ID)

	status, env = s.do("GET", path, agent, nil)
	require.Equal(t, http.StatusOK, status)
	var detail leadJSON
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, leads.StatusContacted, detail.Status)
	require.Len(t, detail.Reminders, 1)
	assert.Equal(t, "call back", detail.Reminders[0].NoteText)

	status, env = s.do("GET", "/api/v1/reminders?grouped_lead_key=agent:7:3:42", agent, nil)
	require.Equal(t, http.StatusOK, status)
	var reminders []leads.Reminder
	require.NoError(t, json.Unmarshal(env.Data, &reminders))
	assert.Len(t, reminders, 1)

	status, env = s.do("GET", "/api/v1/leads/stats", agent, nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		ByStatus map[string]int64 `json:"by_status"`
		Total    int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.ByStatus["contacted"])
	assert.EqualValues(t, 1, stats.Total)
}

func TestAPI_PatchErrors(t *testing.T) {
	s := newTestServer(t)
	agent := bearer(t, 7, "agent")
	lead := s.recordAction(3, map[string]interface{}{"lister_id": 7, "lister_type": "agent", "action_type": "lead_email"})
	path := fmt.Sprintf("/api/v1/leads/%d", lead.ID)

	status, env := s.do("PATCH", path, agent, map[string]interface{}{"notes": []string{" "}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", env.Error)

	status, _ = s.do("PATCH", path, agent, map[string]interface{}{
		"reminders": []map[string]interface{}{{"note_text": "late", "reminder_date": "2026-03-01"}},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do("PATCH", path, agent, map[string]interface{}{"user_id": 99, "status": "closed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do("PATCH", path, bearer(t, 8, "agent"), map[string]interface{}{"status": "closed"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do("PATCH", "/api/v1/leads/abc", agent, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	// Nothing above was applied
	status, env = s.do("GET", path, agent, nil)
	require.Equal(t, http.StatusOK, status)
	var detail leadJSON
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, leads.StatusNew, detail.Status)
	assert.Empty(t, detail.Notes)
}

func TestAPI_AccessRules(t *testing.T) {
	s := newTestServer(t)
	agent := bearer(t, 7, "agent")
	seeker := bearer(t, 3, "seeker")

	status, _ := s.do("GET", "/api/v1/leads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do("GET", "/api/v1/leads", seeker, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do("GET", "/api/v1/leads?lister_id=8&lister_type=agent", agent, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do("GET", "/api/v1/reminders?user_id=8&user_type=agent", agent, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do("POST", "/api/v1/leads/actions", agent, map[string]interface{}{"lister_id": 7, "lister_type": "agent", "action_type": "lead_phone"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env := s.do("POST", "/api/v1/leads/actions", seeker, map[string]interface{}{"lister_id": 7, "lister_type": "agent", "action_type": "lead_fax"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Details, "action_type")

	status, _ = s.do("POST", "/api/v1/leads/actions", seeker, map[string]interface{}{"lister_id": 7, "lister_type": "agent", "action_type": "lead_phone", "seeker_email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do("GET", "/api/v1/leads?status=won", agent, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do("GET", "/api/v1/reminders/stream", agent, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)

	status, _ = s.do("GET", "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.recordAction(3, map[string]interface{}{"lister_id": 7, "lister_type": "agent", "action_type": "lead_message"})

	status, _ := s.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `leads_actions_recorded_total{action_type="lead_message"} 1`)
}
