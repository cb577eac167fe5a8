package events

import (
	"context"
	"fmt"
	"log"

	"github.com/go-zeromq/zmq4"
)

// ZMQPublisher pushes envelopes over a PUB socket, one topic frame per
// event type, so monitors can subscribe selectively.
type ZMQPublisher struct {
	runID string
	pub   zmq4.Socket
}

// NewZMQPublisher binds the PUB socket to addr, e.g. "tcp://*:5601".
func NewZMQPublisher(ctx context.Context, addr, runID string) (*ZMQPublisher, error) {
	pub := zmq4.NewPub(ctx)
	if err := pub.Listen(addr); err != nil {
		return nil, fmt.Errorf("bind event publisher %s: %w", addr, err)
	}
	log.Printf("[events] publishing on %s", addr)
	return &ZMQPublisher{runID: runID, pub: pub}, nil
}

func (p *ZMQPublisher) Publish(typ string, v any) error {
	payload, err := envelope(p.runID, typ, v)
	if err != nil {
		return err
	}
	msg := zmq4.NewMsgFrom([]byte(typ), payload)
	return p.pub.Send(msg)
}

func (p *ZMQPublisher) Close() error {
	return p.pub.Close()
}
