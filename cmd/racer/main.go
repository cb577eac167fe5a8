// racer runs one synchronized dispatch race: it builds a set of
// mutually conflicting transfers, releases them to every configured
// endpoint at the same instant, and reports which endpoint's
// transaction confirmed first.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/usopp-send/rpc-race/internal/chain"
	"github.com/usopp-send/rpc-race/internal/config"
	"github.com/usopp-send/rpc-race/internal/events"
	"github.com/usopp-send/rpc-race/internal/keys"
	"github.com/usopp-send/rpc-race/internal/race"
	"github.com/usopp-send/rpc-race/internal/report"
	"github.com/usopp-send/rpc-race/internal/rpc"
	"github.com/usopp-send/rpc-race/internal/wallet"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:  "racer",
		Usage: "race conflicting transfers across rpc endpoints",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute one race against the configured endpoints",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Value:   "config.json",
						Sources: cli.EnvVars("RPC_RACE_CONFIG"),
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "simulate every transfer instead of submitting",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "also print the result as one JSON line",
					},
					&cli.StringFlag{
						Name:    "kafka-brokers",
						Usage:   "comma separated brokers; enables the kafka reporter",
						Sources: cli.EnvVars("RPC_RACE_KAFKA_BROKERS"),
					},
					&cli.StringFlag{
						Name:    "kafka-topic",
						Value:   "race-results",
						Sources: cli.EnvVars("RPC_RACE_KAFKA_TOPIC"),
					},
					&cli.StringFlag{
						Name:    "events-pub",
						Usage:   "zmq PUB bind address for live events, e.g. tcp://*:5601",
						Sources: cli.EnvVars("RPC_RACE_EVENTS_PUB"),
					},
				},
				Action: runRace,
			},
			{
				Name:  "keygen",
				Usage: "generate a keypair file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Value: "id.json",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: runKeygen,
			},
		},
		DefaultCommand: "run",
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func runRace(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	runID := uuid.NewString()

	// The first endpoint doubles as the control connection for account
	// state and the blockhash; the race itself dials every endpoint
	// fresh during the prepare phase.
	control, err := rpc.DialNode(ctx, cfg.RPCURLs[0])
	if err != nil {
		return fmt.Errorf("control endpoint: %w", err)
	}
	defer control.Close()

	sender, recipient, err := wallet.DetermineRoles(ctx, control, cfg.KeypairPath1, cfg.KeypairPath2)
	if err != nil {
		return err
	}

	blockhash, err := control.LatestBlockhash(ctx)
	if err != nil {
		return err
	}

	signer := race.SignerFunc(func(body chain.TxBody) (chain.SignedTx, error) {
		return chain.Sign(sender.Keypair.Priv, body)
	})
	txs, err := race.BuildConflictSet(sender.Pubkey(), recipient.Pubkey(), blockhash, sender.Balance, cfg.RPCURLs, signer)
	if err != nil {
		return err
	}
	log.Printf("[racer] run=%s built %d conflicting transfers, blockhash=%s", runID, len(txs), blockhash)

	if cmd.Bool("dry-run") {
		return dryRun(ctx, txs)
	}

	var pub events.Publisher = events.Nop{}
	if addr := cmd.String("events-pub"); addr != "" {
		zp, err := events.NewZMQPublisher(ctx, addr, runID)
		if err != nil {
			return err
		}
		defer zp.Close()
		pub = zp
	}

	eng := race.New(race.Config{
		Dial: func(ctx context.Context, endpoint string) (race.Conn, error) {
			return rpc.DialNode(ctx, endpoint)
		},
		RunID:          runID,
		PrepareTimeout: cfg.PrepareTimeout(),
		RaceTimeout:    cfg.RaceTimeout(),
		PollInterval:   cfg.PollInterval(),
		OnEvent: func(typ string, v any) {
			if err := pub.Publish(typ, v); err != nil {
				log.Printf("[racer] event publish failed: %v", err)
			}
		},
	})

	res, err := eng.Run(ctx, txs)
	if err != nil {
		return err
	}

	reporters := []report.Reporter{report.LogReporter{}}
	if cmd.Bool("json") {
		reporters = append(reporters, report.JSONReporter{})
	}
	if brokers := cmd.String("kafka-brokers"); brokers != "" {
		kr, err := report.NewKafkaReporter(brokers, cmd.String("kafka-topic"))
		if err != nil {
			return fmt.Errorf("kafka reporter: %w", err)
		}
		defer kr.Close()
		reporters = append(reporters, kr)
	}
	for _, r := range reporters {
		if err := r.Report(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func dryRun(ctx context.Context, txs []race.ConflictingTx) error {
	attempts := rpc.SimulateAll(ctx, txs)
	for _, a := range attempts {
		switch {
		case a.Err != nil:
			log.Printf("[racer] simulate endpoint=%s amount=%d took=%s error=%v", a.Endpoint, a.Amount, a.Took, a.Err)
		case a.Result.OK:
			log.Printf("[racer] simulate endpoint=%s amount=%d took=%s ok", a.Endpoint, a.Amount, a.Took)
		default:
			log.Printf("[racer] simulate endpoint=%s amount=%d took=%s rejected code=%s message=%s",
				a.Endpoint, a.Amount, a.Took, a.Result.Code, a.Result.Message)
		}
	}
	return nil
}

func runKeygen(_ context.Context, cmd *cli.Command) error {
	out := config.ExpandTilde(cmd.String("out"))
	if _, err := os.Stat(out); err == nil && !cmd.Bool("force") {
		return errors.New(out + " already exists, use --force to overwrite")
	}
	kp, err := keys.Generate()
	if err != nil {
		return err
	}
	if err := keys.Save(out, kp); err != nil {
		return err
	}
	log.Printf("[racer] wrote %s pubkey=%s", out, kp.Pubkey())
	return nil
}
