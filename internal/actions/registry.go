package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/state"
)

// Action is one mailbox operation exposed to the hosting runtime
type Action interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(params map[string]interface{}) (interface{}, error)
}

// Registry manages the available actions
type Registry struct {
	dialer  *email.Dialer
	store   *state.Store
	logger  *logrus.Logger
	actions map[string]Action
}

// NewRegistry creates a registry with all actions registered
func NewRegistry(dialer *email.Dialer, store *state.Store, logger *logrus.Logger) *Registry {
	reg := &Registry{
		dialer:  dialer,
		store:   store,
		logger:  logger,
		actions: make(map[string]Action),
	}

	reg.registerActions()
	return reg
}

// registerActions registers all available actions
func (r *Registry) registerActions() {
	actionList := []Action{
		NewListMailboxesAction(r.dialer, r.logger),
		NewMailboxStatusAction(r.dialer, r.logger),
		NewSearchMessagesAction(r.dialer, r.logger),
		NewGetMessageAction(r.dialer, r.store, r.logger),
		NewGetThreadAction(r.dialer, r.logger),
		NewUpdateFlagsAction(r.dialer, r.logger),
		NewMoveMessagesAction(r.dialer, r.logger),
		NewCopyMessagesAction(r.dialer, r.logger),
		NewExpungeMailboxAction(r.dialer, r.logger),
		NewGetAttachmentAction(r.store, r.logger),
	}

	for _, action := range actionList {
		r.actions[action.Name()] = action
		r.logger.WithField("action", action.Name()).Debug("Registered action")
	}

	r.logger.WithField("count", len(r.actions)).Info("Registered actions")
}

// GetAction returns an action by name
func (r *Registry) GetAction(name string) (Action, bool) {
	action, exists := r.actions[name]
	return action, exists
}

// GetDefinitions returns action definitions for the hosting runtime
func (r *Registry) GetDefinitions() []map[string]interface{} {
	definitions := make([]map[string]interface{}, 0, len(r.actions))
	for _, action := range r.actions {
		definitions = append(definitions, map[string]interface{}{
			"name":        action.Name(),
			"description": action.Description(),
			"inputSchema": action.InputSchema(),
		})
	}
	return definitions
}
