package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/actions"
)

// Server hosts the mailbox actions over a stdio JSON-RPC transport and
// forwards trigger events as notifications.
type Server struct {
	logger  *logrus.Logger
	actions *actions.Registry

	encodeMu sync.Mutex
	encoder  *json.Encoder
}

// NewServer creates a new server instance
func NewServer(registry *actions.Registry, logger *logrus.Logger) *Server {
	return &Server{
		logger:  logger,
		actions: registry,
		encoder: json.NewEncoder(os.Stdout),
	}
}

// Run starts the server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting server with stdio transport")

	decoder := json.NewDecoder(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			var req map[string]interface{}
			if err := decoder.Decode(&req); err != nil {
				if err == io.EOF {
					return nil
				}
				s.logger.WithError(err).Error("Failed to decode request")
				continue
			}

			resp := s.handleRequest(req)
			if err := s.send(resp); err != nil {
				s.logger.WithError(err).Error("Failed to encode response")
				continue
			}
		}
	}
}

// EmitEvent publishes one trigger record as a JSON-RPC notification.
// Safe for concurrent use with Run's response writes.
func (s *Server) EmitEvent(record map[string]interface{}) {
	notification := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/message",
		"params": map[string]interface{}{
			"type": "mailbox_event",
			"data": record,
		},
	}
	if err := s.send(notification); err != nil {
		s.logger.WithError(err).Error("Failed to emit trigger event")
	}
}

func (s *Server) send(v interface{}) error {
	s.encodeMu.Lock()
	defer s.encodeMu.Unlock()
	return s.encoder.Encode(v)
}

// handleRequest processes one JSON-RPC request
func (s *Server) handleRequest(req map[string]interface{}) map[string]interface{} {
	method, _ := req["method"].(string)
	id := req["id"]

	if method == "initialize" {
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"capabilities": map[string]interface{}{
					"tools": map[string]interface{}{},
				},
				"serverInfo": map[string]interface{}{
					"name":    "mailflow",
					"version": "1.0.0",
				},
			},
		}
	}

	if method == "tools/list" {
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"tools": s.actions.GetDefinitions(),
			},
		}
	}

	if method == "tools/call" {
		params, _ := req["params"].(map[string]interface{})
		actionName, _ := params["name"].(string)
		arguments, _ := params["arguments"].(map[string]interface{})

		action, exists := s.actions.GetAction(actionName)
		if !exists {
			return map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      id,
				"error": map[string]interface{}{
					"code":    -32601,
					"message": fmt.Sprintf("Action not found: %s", actionName),
				},
			}
		}

		result, err := action.Execute(arguments)
		if err != nil {
			return map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      id,
				"error": map[string]interface{}{
					"code":    -32603,
					"message": err.Error(),
				},
			}
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			resultJSON = []byte(fmt.Sprintf("%v", result))
		}

		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": string(resultJSON),
					},
				},
			},
		}
	}

	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    -32601,
			"message": fmt.Sprintf("Method not found: %s", method),
		},
	}
}
