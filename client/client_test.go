package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estateleads/config"
	"estateleads/leads"
	"estateleads/routes"
	"estateleads/utils"
)

func TestClient_ErrorsAndAuth(t *testing.T) {
	var gotAuth string
	var gotPatch leads.PatchRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/leads/404", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"Lead not found"}`))
	})
	mux.HandleFunc("/api/v1/leads/500", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	mux.HandleFunc("/api/v1/leads/1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPatch))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":"closed","notes":[],"status_tracker":["new","closed"]},"reminders":{"created":[],"updated":[]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL+"/api/v1", StaticUser{ID: 7, Type: "agent", Token: "tok"}, WithTimeout(5*time.Second))
	require.NoError(t, err)

	_, err = c.GetLead(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Lead not found", apiErr.Message)

	_, err = c.GetLead(context.Background(), 500)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.False(t, IsNotFound(err))

	closed := leads.StatusClosed
	res, err := c.PatchLead(context.Background(), 1, leads.PatchRequest{Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.NotNil(t, gotPatch.UserID)
	assert.EqualValues(t, 7, *gotPatch.UserID)
	assert.Equal(t, "agent", gotPatch.UserType)
	assert.Equal(t, []leads.Status{leads.StatusNew, leads.StatusClosed}, res.Data.StatusTracker)

	anon, err := New(srv.URL, StaticUser{})
	require.NoError(t, err)
	_, err = anon.GetLead(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = New("", StaticUser{})
	assert.Error(t, err)
	_, err = New(srv.URL, StaticUser{}, WithTimeout(0))
	assert.Error(t, err)
}

const secret = "client-secret"

func newAPI(t *testing.T) string {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "client.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	policy, err := leads.ParseWeights(leads.DefaultWeights)
	require.NoError(t, err)

	app := fiber.New()
	routes.SetupRoutes(app, db, routes.Options{
		JWTSecret: secret,
		Policy:    policy,
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func userFor(t *testing.T, id uint, typ string) StaticUser {
	tok, err := utils.GenerateToken(secret, id, typ, time.Hour)
	require.NoError(t, err)
	return StaticUser{ID: id, Type: typ, Token: tok}
}

func TestClient_EndToEndSession(t *testing.T) {
	base := newAPI(t)
	ctx := context.Background()

	seeker, err := New(base, userFor(t, 3, "seeker"))
	require.NoError(t, err)
	listing := uint(42)
	recorded, err := seeker.RecordAction(ctx, ActionRequest{
		ListerID: 7, ListerType: "agent", ListingID: &listing,
		ActionType: leads.ActionAppointment, ActionDate: "2026-03-09", ListingTitle: "Harbour Loft",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent:7:3:42", recorded.Lead.GroupedLeadKey)

	agent, err := New(base, userFor(t, 7, "agent"))
	require.NoError(t, err)
	list := NewLeadList(agent, LeadQuery{Search: "harbour"})
	require.NoError(t, list.Reload(ctx))
	require.Len(t, list.Leads(), 1)

	lead, err := agent.GetLead(ctx, list.Leads()[0].ID)
	require.NoError(t, err)
	s := NewEditSession(lead, agent, WithClock(func() time.Time { return fixedNow }), WithAfterCommit(list.AfterCommit))

	require.NoError(t, s.SetStatus(leads.StatusScheduled))
	require.NoError(t, s.AddNote("prefers mornings"))
	key, err := s.AddReminder(leads.ReminderInput{NoteText: "confirm viewing", ReminderDate: "2026-03-11", ReminderTime: "09:00"})
	require.NoError(t, err)

	res, err := s.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, res.Reminders.Created, 1)
	assert.Equal(t, key, res.Reminders.Created[0].ClientRef)
	assert.Equal(t, StateClean, s.State())

	refreshed, ok := list.Find(lead.ID)
	require.True(t, ok)
	assert.Equal(t, leads.StatusScheduled, refreshed.Status)

	reminders, err := agent.ListReminders(ctx, lead.GroupedLeadKey)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "confirm viewing", reminders[0].NoteText)

	// deleting the persisted reminder goes out in the next commit
	require.NoError(t, s.DeleteReminder(key))
	res, err = s.Commit(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Reminders.Deleted, 1)

	stats, err := agent.LeadStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ByStatus[leads.StatusScheduled])

	other, err := New(base, userFor(t, 8, "agent"))
	require.NoError(t, err)
	_, err = other.GetLead(ctx, lead.ID)
	assert.True(t, IsNotFound(err))
}
