package actions

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
)

func testRegistry() *Registry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dialer := email.NewDialer(&config.AccountConfig{Host: "imap.example.com", Port: 993}, logger)
	return NewRegistry(dialer, nil, logger)
}

func TestRegistryRegistersAllActions(t *testing.T) {
	reg := testRegistry()

	expected := []string{
		"list_mailboxes",
		"mailbox_status",
		"search_messages",
		"get_message",
		"get_thread",
		"update_flags",
		"move_messages",
		"copy_messages",
		"expunge_mailbox",
		"get_attachment",
	}

	for _, name := range expected {
		action, ok := reg.GetAction(name)
		require.True(t, ok, "action %q not registered", name)
		assert.Equal(t, name, action.Name())
		assert.NotEmpty(t, action.Description())

		schema := action.InputSchema()
		assert.Equal(t, "object", schema["type"])
	}

	assert.Len(t, reg.GetDefinitions(), len(expected))
}

func TestRegistryUnknownAction(t *testing.T) {
	_, ok := testRegistry().GetAction("send_message")
	assert.False(t, ok)
}

func TestDefinitionsCarrySchema(t *testing.T) {
	for _, def := range testRegistry().GetDefinitions() {
		assert.NotEmpty(t, def["name"])
		assert.NotEmpty(t, def["description"])
		assert.NotNil(t, def["inputSchema"])
	}
}
