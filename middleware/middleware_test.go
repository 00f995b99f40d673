package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateleads/utils"
)

const secret = "test-secret"

func token(t *testing.T, id uint, typ string) string {
	t.Helper()
	tok, err := utils.GenerateToken(secret, id, typ, time.Hour)
	require.NoError(t, err)
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", Protected(secret), func(c *fiber.Ctx) error {
		u := GetUser(c)
		return c.JSON(fiber.Map{"id": u.ID, "type": u.Type})
	})
	app.Get("/lister", Protected(secret), ListersOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/seeker", Protected(secret), SeekersOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestProtected(t *testing.T) {
	app := newApp()

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"bearer header", "/me", "Bearer " + token(t, 7, "agent"), fiber.StatusOK},
		{"query token", "/me?token=" + token(t, 7, "agent"), "", fiber.StatusOK},
		{"missing", "/me", "", fiber.StatusUnauthorized},
		{"bad format", "/me", "Token abc", fiber.StatusUnauthorized},
		{"bad signature", "/me", "Bearer " + token(t, 7, "agent") + "x", fiber.StatusUnauthorized},
		{"lister allowed", "/lister", "Bearer " + token(t, 7, "agency"), fiber.StatusOK},
		{"seeker is not a lister", "/lister", "Bearer " + token(t, 3, "seeker"), fiber.StatusForbidden},
		{"seeker allowed", "/seeker", "Bearer " + token(t, 3, "seeker"), fiber.StatusOK},
		{"lister is not a seeker", "/seeker", "Bearer " + token(t, 7, "developer"), fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedOrigins: []string{"http://app.test"}, AllowedMethods: []string{"GET", "PATCH"}, MaxAge: 600}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://app.test")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,PATCH", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", resp.Header.Get("Access-Control-Max-Age"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestActionRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/actions", Protected(secret), ActionRateLimiter(2, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(tok string) int {
		req := httptest.NewRequest("POST", "/actions", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	seeker := token(t, 3, "seeker")
	assert.Equal(t, fiber.StatusCreated, send(seeker))
	assert.Equal(t, fiber.StatusCreated, send(seeker))
	assert.Equal(t, fiber.StatusTooManyRequests, send(seeker))
	assert.Equal(t, fiber.StatusCreated, send(token(t, 4, "seeker")), "limits are per caller")
}
