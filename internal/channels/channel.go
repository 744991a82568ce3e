// Package channels provides the channel abstraction layer for chat platforms.
// Channels connect external platforms (Discord, ...) to the reply pipeline
// via the message bus.
package channels

import (
	"context"
	"slices"

	"github.com/npcforge/npcforge/internal/bus"
)

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g. "discord").
	Name() string

	// Start begins listening for messages. Should be non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// BaseChannel provides shared functionality for all channel implementations.
// Channel implementations should embed this struct.
type BaseChannel struct {
	name         string
	bus          bus.MessageRouter
	running      bool
	allowServers []string
}

// NewBaseChannel creates a new BaseChannel. An empty allowServers accepts
// every server.
func NewBaseChannel(name string, msgBus bus.MessageRouter, allowServers []string) *BaseChannel {
	return &BaseChannel{
		name:         name,
		bus:          msgBus,
		allowServers: allowServers,
	}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// IsAllowed checks if a server is permitted by the allowlist.
func (c *BaseChannel) IsAllowed(serverID string) bool {
	return len(c.allowServers) == 0 || slices.Contains(c.allowServers, serverID)
}

// HandleMessage stamps msg with the channel name and publishes it to the bus.
// Messages from servers outside the allowlist are dropped.
func (c *BaseChannel) HandleMessage(msg bus.InboundMessage) bool {
	if !c.IsAllowed(msg.ServerID) {
		return false
	}
	msg.Channel = c.name
	return c.bus.PublishInbound(msg)
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
