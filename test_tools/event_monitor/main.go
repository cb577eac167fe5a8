// event_monitor follows a racer's live event stream: dial the address
// given to racer's --events-pub and watch prepare, release, dispatch
// and finish as they happen.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/usopp-send/rpc-race/internal/config"
	"github.com/usopp-send/rpc-race/internal/events"
)

func main() {
	var (
		addr   = flag.String("addr", "tcp://127.0.0.1:5601", "racer event PUB address")
		topics = flag.String("topics", "", "comma separated event types, empty for all")
	)
	flag.Parse()

	reconnectOpt := zmq4.WithAutomaticReconnect(true)
	retryOpt := zmq4.WithDialerRetry(time.Second * 5)
	sub := zmq4.NewSub(context.Background(), reconnectOpt, retryOpt)
	defer sub.Close()

	if *topics == "" {
		if err := sub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
			log.Fatal(err)
		}
	} else {
		for _, topic := range config.SplitCSV(*topics) {
			if err := sub.SetOption(zmq4.OptionSubscribe, topic); err != nil {
				log.Fatal(err)
			}
		}
	}

	if err := sub.Dial(*addr); err != nil {
		log.Fatal(err)
	}
	log.Printf("listening for events on %s", *addr)

	for {
		msg, err := sub.Recv()
		if err != nil {
			if errors.Is(err, zmq4.ErrClosedConn) {
				return
			}
			log.Printf("recv: %v", err)
			continue
		}
		if len(msg.Frames) < 2 {
			continue
		}
		var env events.Envelope
		if err := json.Unmarshal(msg.Frames[1], &env); err != nil {
			log.Printf("unparseable event on topic %s: %v", string(msg.Frames[0]), err)
			continue
		}
		log.Printf("run=%s type=%s data=%s", env.RunID, env.Type, string(env.Data))
	}
}
