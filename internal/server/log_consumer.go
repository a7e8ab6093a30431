package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"
)

// Lines the server logs about its own clients are not echoed back to
// those clients.
var skipPatterns = []string{
	"WebSocket client",
	"HTTP request",
	"HTTP response",
	"Publishing event",
}

// LogConsumer drains batches from arbor's context channel and relays
// each line to websocket clients. Attach a logger with AttachLogger on
// the server; every logger sharing the channel feeds the same stream.
type LogConsumer struct {
	handler  *WebSocketHandler
	channel  chan []arbormodels.LogEvent
	minLevel arbor.LogLevel
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewLogConsumer(handler *WebSocketHandler, minLevel string) *LogConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &LogConsumer{
		handler:  handler,
		channel:  make(chan []arbormodels.LogEvent, 10),
		minLevel: parseLogLevel(minLevel),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Channel returns the channel to hand to arbor's SetChannel.
func (c *LogConsumer) Channel() chan []arbormodels.LogEvent {
	return c.channel
}

// Start launches the consumer goroutine.
func (c *LogConsumer) Start() {
	c.wg.Add(1)
	go c.consume()
}

// Stop shuts the consumer down and waits for the goroutine to exit.
func (c *LogConsumer) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *LogConsumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case batch, ok := <-c.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				if entry, ok := c.transform(event); ok {
					c.handler.BroadcastLog(entry)
				}
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// transform filters one arbor event and converts it to the wire shape.
// The second return is false when the event should not be streamed.
// Structured fields are appended to the message in key order so the
// streamed line reads like the attempt log.
func (c *LogConsumer) transform(event arbormodels.LogEvent) (LogEntry, bool) {
	if !c.shouldStream(event.Level) {
		return LogEntry{}, false
	}
	for _, pattern := range skipPatterns {
		if strings.Contains(event.Message, pattern) {
			return LogEntry{}, false
		}
	}

	message := event.Message
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for key := range event.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			message += fmt.Sprintf(" %s=%v", key, event.Fields[key])
		}
	}

	return LogEntry{
		Timestamp: event.Timestamp.Format("15:04:05"),
		Level:     convertTo3Letter(event.Level.String()),
		Message:   message,
	}, true
}

// shouldStream applies the minimum level threshold.
func (c *LogConsumer) shouldStream(level plog.Level) bool {
	return levels.FromLogLevel(level) >= c.minLevel
}

// parseLogLevel converts a config string to an arbor level.
func parseLogLevel(levelStr string) arbor.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return arbor.DebugLevel
	case "info":
		return arbor.InfoLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

// convertTo3Letter maps level names to the 3-letter display codes the
// attempt logs use.
func convertTo3Letter(level string) string {
	switch strings.ToUpper(level) {
	case "INFO":
		return "INF"
	case "WARN", "WARNING":
		return "WRN"
	case "ERROR":
		return "ERR"
	case "DEBUG":
		return "DBG"
	default:
		if len(level) == 3 {
			return strings.ToUpper(level)
		}
		return "INF"
	}
}
