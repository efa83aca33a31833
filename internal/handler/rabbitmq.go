// Package handler dispatches external sync commands to the engine.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sbozic/woosync/internal/platform"
	"github.com/sbozic/woosync/internal/platform/rabbitmq"
	"github.com/sbozic/woosync/pkg/v1/commander"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

// Syncer runs and cancels catalog sync runs.
type Syncer interface {
	Run(ctx context.Context, manual bool) error
	Cancel() error
}

// RMQHandler handles RMQ messages.
type RMQHandler struct {
	rmq    *rabbitmq.RabbitMQ
	syncer Syncer
	logger *zerolog.Logger
}

// NewHandler returns new RMQHandler.
func NewHandler(rmq *rabbitmq.RabbitMQ, syncer Syncer, logger *zerolog.Logger) *RMQHandler {
	return &RMQHandler{
		rmq:    rmq,
		syncer: syncer,
		logger: logger,
	}
}

// Start starts consuming and handling sync commands from RMQ.
func (h *RMQHandler) Start(ctx context.Context, queue string) error {
	errorsChan, err := h.rmq.Consume(ctx, queue, func(ctx context.Context, message []byte) error {
		cmd, err := decodeMessage(message)
		if err != nil {
			return err
		}

		return h.dispatch(ctx, cmd)
	})
	if err != nil {
		return err
	}

	go func() {
		for err := range errorsChan {
			h.logger.Error().
				Err(err).
				Msg("can't handle message")
		}
	}()

	return nil
}

func (h *RMQHandler) dispatch(ctx context.Context, cmd *commander.SyncCommand) error {
	switch cmd.Action {
	case commander.ActionSync:
		h.logger.Debug().
			Bool("manual", cmd.Manual).
			Msg("sync command received")

		err := h.syncer.Run(ctx, cmd.Manual)
		if errors.Is(err, platform.ErrAlreadyRunning) {
			// A busy engine is not a delivery failure; requeueing the
			// command would only pile runs up.
			h.logger.Warn().Msg("sync command dropped, a run is already in progress")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync failed to start: %w", err)
		}
		return nil

	case commander.ActionCancel:
		h.logger.Debug().Msg("cancel command received")

		if err := h.syncer.Cancel(); err != nil {
			if errors.Is(err, enginesync.ErrNotRunning) {
				h.logger.Warn().Msg("cancel command dropped, no run in progress")
				return nil
			}
			return fmt.Errorf("cancel failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown command action %q", cmd.Action)
	}
}

func decodeMessage(msg []byte) (*commander.SyncCommand, error) {
	var cmd commander.SyncCommand
	err := json.Unmarshal(msg, &cmd)
	if err != nil {
		return nil, fmt.Errorf("can't decode sync command: %w", err)
	}

	return &cmd, nil
}
