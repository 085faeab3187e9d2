package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	// CommandsChannel carries requests for whichever instance hosts a room.
	CommandsChannel = "maze_commands"
	// EventsChannel carries win announcements from every instance.
	EventsChannel = "maze_events"
)

type remoteCommand struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Origin string `json:"origin"`
}

// Bridge relays room commands and win events between server instances over Redis pub/sub.
type Bridge struct {
	rdb      *redis.Client
	hub      *Hub
	instance string
}

// NewBridge wires a bridge to hub. A nil client yields a bridge that does nothing.
func NewBridge(rdb *redis.Client, hub *Hub) *Bridge {
	return &Bridge{rdb: rdb, hub: hub, instance: uuid.NewString()}
}

// PublishWin announces a win on the events channel.
func (b *Bridge) PublishWin(ctx context.Context, ev WinEvent) error {
	if b == nil || b.rdb == nil {
		return nil
	}
	ev.Origin = b.instance
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// PublishReset asks the instance hosting code to reset it.
func (b *Bridge) PublishReset(ctx context.Context, code string) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("%w: no redis relay", ErrRoomNotFound)
	}
	payload, err := json.Marshal(remoteCommand{Type: "reset", Room: code, Origin: b.instance})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, CommandsChannel, payload).Err()
}

// Start subscribes to both channels and handles messages until ctx is done.
func (b *Bridge) Start(ctx context.Context) {
	if b == nil || b.rdb == nil {
		log.Println("[WS] Redis client not set; maze_commands/maze_events subscriber not started")
		return
	}

	pubsub := b.rdb.Subscribe(ctx, CommandsChannel, EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("[WS] maze_commands/maze_events subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.handle(msg)
			}
		}
	}()
}

func (b *Bridge) handle(msg *redis.Message) {
	switch msg.Channel {
	case CommandsChannel:
		var cmd remoteCommand
		if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
			log.Printf("[WS] invalid command payload: %v", err)
			return
		}
		b.handleCommand(cmd)

	case EventsChannel:
		var ev WinEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("[WS] invalid event payload: %v", err)
			return
		}
		if ev.Origin == b.instance {
			return
		}
		log.WithFields(log.Fields{
			"room":   ev.Room,
			"ball":   ev.BallID,
			"color":  ev.Color,
			"origin": ev.Origin,
		}).Info("[WS] Win on another instance")
	}
}

func (b *Bridge) handleCommand(cmd remoteCommand) {
	switch cmd.Type {
	case "reset":
		r, ok := b.hub.Room(cmd.Room)
		if !ok {
			// another instance owns it, or nobody does
			return
		}
		log.Printf("[WS] Remote reset for room %s from %s", cmd.Room, cmd.Origin)
		r.RequestReset()
	default:
		log.Printf("[WS] unknown command type: %s", cmd.Type)
	}
}
