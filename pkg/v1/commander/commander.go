// Package commander is the public command vocabulary of the sync service:
// other systems publish these messages to start or cancel a catalog sync.
package commander

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command actions.
const (
	ActionSync   = "sync"
	ActionCancel = "cancel"
)

// SyncCommand tells the service to start or cancel a sync run.
type SyncCommand struct {
	Action string `json:"action"`
	Manual bool   `json:"manual,omitempty"`
}

// Sender sends messages.
type Sender interface {
	Send(context.Context, []byte) error
}

// SyncCommander sends sync commands.
type SyncCommander struct {
	sender Sender
}

// NewSyncCommander returns new SyncCommander using provided sender for
// sending messages.
func NewSyncCommander(sender Sender) SyncCommander {
	return SyncCommander{
		sender: sender,
	}
}

// SendSyncCommand sends a command to start a sync run.
func (c SyncCommander) SendSyncCommand(ctx context.Context, manual bool) error {
	return c.send(ctx, SyncCommand{Action: ActionSync, Manual: manual})
}

// SendCancelCommand sends a command to cancel the run in progress.
func (c SyncCommander) SendCancelCommand(ctx context.Context) error {
	return c.send(ctx, SyncCommand{Action: ActionCancel})
}

func (c SyncCommander) send(ctx context.Context, cmd SyncCommand) error {
	cmdMsg, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("can't marshal sync command: %w", err)
	}

	return c.sender.Send(ctx, cmdMsg)
}
