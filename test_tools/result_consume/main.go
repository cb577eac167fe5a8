// result_consume tails the race-results topic and pretty-prints each
// finished race. Handy when several racer runs feed one Kafka cluster.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"github.com/IBM/sarama"

	"github.com/usopp-send/rpc-race/internal/config"
	"github.com/usopp-send/rpc-race/internal/report"
)

type Handler struct{}

func (Handler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (Handler) Cleanup(sarama.ConsumerGroupSession) error { return nil }
func (Handler) ConsumeClaim(
	s sarama.ConsumerGroupSession,
	c sarama.ConsumerGroupClaim,
) error {
	for msg := range c.Messages() {
		var v report.ResultView
		if err := json.Unmarshal(msg.Value, &v); err != nil {
			log.Printf("run=%s unparseable result: %v", string(msg.Key), err)
			s.MarkMessage(msg, "")
			continue
		}
		log.Printf("run=%s winner=%s partition=%d offset=%d", v.RunID, v.Winner, msg.Partition, msg.Offset)
		for _, e := range v.Entries {
			log.Printf("  endpoint=%s status=%s amount=%d sent=%dms confirm=%dms winner=%t",
				e.Endpoint, e.Status, e.Amount, e.SentMS, e.ConfirmMS, e.Winner)
		}
		s.MarkMessage(msg, "")
	}
	return nil
}

func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "comma separated brokers")
		topic   = flag.String("topic", "race-results", "results topic")
		groupID = flag.String("group", "race-test_tools", "consumer group id")
	)
	flag.Parse()

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(config.SplitCSV(*brokers), *groupID, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer group.Close()

	for {
		err = group.Consume(context.Background(), []string{*topic}, Handler{})
		if err != nil {
			log.Fatal(err)
		}
	}
}
