// mocknode runs a single-process validator node with configurable
// confirmation latency, for racing dispatches locally. Start several
// on different ports to stand in for distinct rpc endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usopp-send/rpc-race/internal/mocknode"
)

// fundList accepts repeated -fund pubkey=amount flags.
type fundList []struct {
	pubkey string
	amount uint64
}

func (f *fundList) String() string { return fmt.Sprintf("%d grants", len(*f)) }

func (f *fundList) Set(s string) error {
	pubkey, amountStr, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want pubkey=amount, got %q", s)
	}
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return fmt.Errorf("bad amount in %q: %w", s, err)
	}
	*f = append(*f, struct {
		pubkey string
		amount uint64
	}{pubkey, amount})
	return nil
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)

	var funds fundList
	var (
		dbPath  = flag.String("db", "mem", `rocksdb path, or "mem" for in-memory`)
		listen  = flag.String("listen", ":8899", "http listen addr")
		delay   = flag.Duration("confirm-delay", 400*time.Millisecond, "base submit-to-confirm latency")
		jitter  = flag.Duration("confirm-jitter", 0, "extra uniform latency")
		tick    = flag.Duration("tick", 100*time.Millisecond, "settlement tick")
		window  = flag.Int64("blockhash-window", 150, "slots a blockhash stays valid")
		det     = flag.Bool("det", false, "deterministic latency jitter")
		seed    = flag.Int64("seed", 1, "seed for deterministic mode")
	)
	flag.Var(&funds, "fund", "credit an account at start, pubkey=amount (repeatable)")
	flag.Parse()

	var st mocknode.Store
	if *dbPath == "mem" {
		st = mocknode.NewMemStore()
	} else {
		rs, err := mocknode.OpenRocks(*dbPath)
		if err != nil {
			log.Fatal(err)
		}
		st = rs
	}
	defer st.Close()

	mode := mocknode.Real
	if *det {
		mode = mocknode.Deterministic
	}
	rf := mocknode.NewRandFactory(mode, *seed)

	ledger := mocknode.NewLedger(st, rf, mocknode.LedgerConfig{
		ConfirmDelay:    *delay,
		ConfirmJitter:   *jitter,
		BlockhashWindow: *window,
	})
	for _, grant := range funds {
		if err := ledger.Fund(grant.pubkey, grant.amount); err != nil {
			log.Fatal(err)
		}
		log.Printf("[mocknode] funded %s with %d", grant.pubkey, grant.amount)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:    *listen,
		Handler: mocknode.NewServer(ledger).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Settlement clock (single writer).
	g.Go(func() error {
		if err := ledger.Run(gctx, *tick); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		log.Printf("[mocknode] listening on %s, db=%s, confirm-delay=%s", *listen, *dbPath, *delay)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
