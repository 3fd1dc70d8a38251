package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := NewRegistrationConsumer("amqp://unused", dir)

	body, err := json.Marshal(UserRegisteredEvent{
		UserID:       "u-1",
		Email:        "a@x.com",
		DisplayName:  "Anna",
		Role:         "Runner",
		RegisteredAt: "2026-05-01T10:00:00Z",
	})
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage(body))
	require.NoError(t, c.HandleMessage(body))

	data, err := os.ReadFile(filepath.Join(dir, "registration.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "user_id=u-1 | email=a@x.com")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	c := NewRegistrationConsumer("amqp://unused", t.TempDir())
	assert.Error(t, c.HandleMessage([]byte("{not json")))
	assert.Error(t, c.HandleMessage([]byte(`{"email":"a@x.com"}`)))
}
