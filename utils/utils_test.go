package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ErrorResponse(c, fiber.StatusConflict, "Lead busy", errors.New("locked"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "Lead busy", got["error"])
	assert.Equal(t, "locked", got["details"])
}

func TestParseOptionalUint(t *testing.T) {
	v, err := ParseOptionalUint("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalUint("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), *v)

	_, err = ParseOptionalUint("x")
	assert.Error(t, err)
	assert.Equal(t, uint(0), ParseUint("x"))
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		ListerType string `json:"lister_type" validate:"required,oneof=developer agent agency"`
		Email      string `json:"seeker_email" validate:"omitempty,email"`
	}
	assert.NoError(t, ValidateStruct(input{ListerType: "agent"}))
	assert.EqualError(t, ValidateStruct(input{}), "lister_type is required")
	assert.EqualError(t, ValidateStruct(input{ListerType: "agent", Email: "nope"}), "seeker_email must be a valid email")

	assert.NoError(t, ValidateEmailFormat(""))
	assert.NoError(t, ValidateEmailFormat("buyer@example.com"))
	assert.Error(t, ValidateEmailFormat("buyer@"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("s3cret", 7, "agent", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "agent", claims.UserType)

	_, err = ParseToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("s3cret", 7, "agent", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s3cret", expired)
	assert.Error(t, err)

	_, err = GenerateToken("", 7, "agent", time.Hour)
	assert.Error(t, err)
}

func TestMailer_BuildMessage(t *testing.T) {
	m := NewMailer("smtp.example.com", 587, "", "", "noreply@example.com")
	msg, err := m.BuildMessage(EmailData{
		Subject:  "Overdue reminders",
		To:       []string{"ops@example.com"},
		Template: "reminder_digest",
		Data: map[string]interface{}{
			"Date": "2026-03-10",
			"Reminders": []map[string]interface{}{
				{"UserType": "agent", "UserID": 7, "GroupedLeadKey": "agent:7:1:-", "ReminderDate": "2026-03-09", "ReminderTime": "", "Priority": "urgent", "NoteText": "call back"},
			},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Subject: Overdue reminders")
	assert.Contains(t, out, "call back")
	assert.Contains(t, out, "noreply@example.com")

	_, err = m.BuildMessage(EmailData{To: []string{"a@example.com"}, Template: "missing"})
	assert.Error(t, err)
	_, err = m.BuildMessage(EmailData{Template: "reminder_digest"})
	assert.Error(t, err)
}
