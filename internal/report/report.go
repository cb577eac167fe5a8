// Package report renders a finished race for its consumers. Entries
// always stay in endpoint input order with the winner flagged; nothing
// here re-sorts by speed.
package report

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/usopp-send/rpc-race/internal/race"
)

type Reporter interface {
	Report(ctx context.Context, res race.Result) error
}

// EntryView is the serialized form of one endpoint's result.
type EntryView struct {
	Endpoint  string `json:"endpoint"`
	Signature string `json:"signature"`
	Amount    uint64 `json:"amount"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Cause     string `json:"cause,omitempty"`
	SentMS    int64  `json:"sent_ms"`
	ConfirmMS int64  `json:"confirm_ms,omitempty"`
	Slot      int64  `json:"slot,omitempty"`
	Winner    bool   `json:"winner"`
}

type ResultView struct {
	RunID   string      `json:"run_id"`
	TS      int64       `json:"ts"` // unix milli
	Winner  string      `json:"winner,omitempty"`
	Entries []EntryView `json:"entries"`
}

func View(res race.Result) ResultView {
	v := ResultView{
		RunID:   res.RunID,
		TS:      time.Now().UnixMilli(),
		Entries: make([]EntryView, 0, len(res.Entries)),
	}
	if w, ok := res.Winner(); ok {
		v.Winner = w.Endpoint
	}
	for i, e := range res.Entries {
		v.Entries = append(v.Entries, EntryView{
			Endpoint:  e.Endpoint,
			Signature: e.Outcome.Signature.String(),
			Amount:    e.Amount,
			Status:    string(e.Outcome.Status),
			Code:      e.Outcome.Code,
			Cause:     e.Outcome.Cause,
			SentMS:    e.Dispatch.SentDuration().Milliseconds(),
			ConfirmMS: e.Outcome.ConfirmDuration.Milliseconds(),
			Slot:      e.Outcome.Slot,
			Winner:    i == res.WinnerIdx,
		})
	}
	return v
}

// LogReporter writes the human-readable summary to the process log.
type LogReporter struct{}

func (LogReporter) Report(_ context.Context, res race.Result) error {
	if w, ok := res.Winner(); ok {
		log.Printf("[report] run=%s winner endpoint=%s sig=%s amount=%d confirm=%s",
			res.RunID, w.Endpoint, w.Outcome.Signature, w.Amount, w.Outcome.ConfirmDuration)
	} else {
		log.Printf("[report] run=%s no transaction confirmed before the deadline", res.RunID)
	}
	for _, e := range res.Entries {
		detail := ""
		switch {
		case e.Outcome.Code != "":
			detail = " code=" + e.Outcome.Code
		case e.Outcome.Cause != "":
			detail = " cause=" + e.Outcome.Cause
		}
		log.Printf("[report]   endpoint=%s status=%s sig=%s amount=%d sent=%s confirm=%s%s",
			e.Endpoint, e.Outcome.Status, e.Outcome.Signature, e.Amount,
			e.Dispatch.SentDuration(), e.Outcome.ConfirmDuration, detail)
	}
	return nil
}

// JSONReporter prints the machine-readable view on one line, for
// piping into other tooling.
type JSONReporter struct{}

func (JSONReporter) Report(_ context.Context, res race.Result) error {
	raw, err := json.Marshal(View(res))
	if err != nil {
		return err
	}
	log.Printf("[report] %s", raw)
	return nil
}
