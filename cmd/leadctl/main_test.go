package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateleads/utils"
)

func TestTokenCommand(t *testing.T) {
	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"7", "agent", "--secret", "s3cret", "--ttl", time.Hour.String()})
	require.NoError(t, cmd.Execute())

	claims, err := utils.ParseToken("s3cret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "agent", claims.UserType)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	cmd := tokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"7", "agent", "--secret", ""})
	assert.Error(t, cmd.Execute())
}

func TestParseID(t *testing.T) {
	id, err := parseID("lead", "12")
	require.NoError(t, err)
	assert.EqualValues(t, 12, id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID("lead", bad)
		assert.Error(t, err, bad)
	}
}
