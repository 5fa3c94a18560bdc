package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "eventpage/internal/log"
	"eventpage/internal/search"
)

// refresher re-reads the unfiltered page data on a schedule, which keeps
// the response cache warm, and then refreshes the preview image.
type refresher struct {
	fetcher search.Fetcher
	// capture is nil when preview capture is disabled.
	capture func(context.Context) error
	timeout time.Duration
}

func (r *refresher) run(parent context.Context) error {
	ctx := parent
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.timeout)
		defer cancel()
	}
	start := time.Now()

	var (
		g                      errgroup.Group
		eventOK                bool
		speakers, schedule     int
		speakersOK, scheduleOK bool
	)
	g.Go(func() error {
		eventOK = r.fetcher.FetchEvent(ctx).OK()
		return nil
	})
	g.Go(func() error {
		o := r.fetcher.FetchSpeakers(ctx, "")
		speakers, speakersOK = len(o.Value), o.OK()
		return nil
	})
	g.Go(func() error {
		o := r.fetcher.FetchSchedule(ctx, "")
		schedule, scheduleOK = len(o.Value), o.OK()
		return nil
	})
	_ = g.Wait()

	appLog.Info("refresh: page data read",
		"event_ok", eventOK,
		"speakers", speakers,
		"speakers_ok", speakersOK,
		"schedule", schedule,
		"schedule_ok", scheduleOK,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if r.capture == nil {
		return nil
	}
	if err := r.capture(ctx); err != nil {
		return fmt.Errorf("refresh: capture preview: %w", err)
	}
	appLog.Info("refresh: preview captured", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// localAddr turns a listen address into one a local browser can dial.
func localAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
