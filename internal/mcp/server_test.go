package mcp

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailflow/internal/actions"
	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
)

func testServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dialer := email.NewDialer(&config.AccountConfig{Host: "imap.example.com", Port: 993}, logger)
	return NewServer(actions.NewRegistry(dialer, nil, logger), logger)
}

func TestHandleInitialize(t *testing.T) {
	resp := testServer().handleRequest(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      float64(1),
		"method":  "initialize",
	})

	assert.Equal(t, float64(1), resp["id"])
	result := resp["result"].(map[string]interface{})
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "mailflow", info["name"])
}

func TestHandleToolsList(t *testing.T) {
	resp := testServer().handleRequest(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      float64(2),
		"method":  "tools/list",
	})

	result := resp["result"].(map[string]interface{})
	tools := result["tools"].([]map[string]interface{})
	assert.Len(t, tools, 10)
}

func TestHandleUnknownMethod(t *testing.T) {
	resp := testServer().handleRequest(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      float64(3),
		"method":  "resources/list",
	})

	rpcErr := resp["error"].(map[string]interface{})
	assert.Equal(t, -32601, rpcErr["code"])
}

func TestHandleUnknownTool(t *testing.T) {
	resp := testServer().handleRequest(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      float64(4),
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "send_message",
			"arguments": map[string]interface{}{},
		},
	})

	require.Contains(t, resp, "error")
	rpcErr := resp["error"].(map[string]interface{})
	assert.Equal(t, -32601, rpcErr["code"])
}
