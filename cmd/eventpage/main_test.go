package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpage/internal/backend"
	"eventpage/internal/cache"
	"eventpage/internal/config"
	"eventpage/internal/model"
)

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) FetchEvent(context.Context) backend.Outcome[model.Event] {
	f.calls.Add(1)
	return backend.Outcome[model.Event]{Value: model.Event{Title: "x"}}
}

func (f *countingFetcher) FetchSpeakers(_ context.Context, q string) backend.Outcome[[]model.Speaker] {
	f.calls.Add(1)
	return backend.Outcome[[]model.Speaker]{Value: []model.Speaker{{Name: "a"}}}
}

func (f *countingFetcher) FetchSchedule(_ context.Context, q string) backend.Outcome[[]model.ScheduleItem] {
	f.calls.Add(1)
	return backend.Outcome[[]model.ScheduleItem]{}
}

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-c", "/tmp/c.yaml", "--listen", ":9000", "--once", "--debug"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/c.yaml", f.configPath)
	assert.Equal(t, ":9000", f.listen)
	assert.True(t, f.once)
	assert.True(t, f.debug)
	assert.Equal(t, ".env", f.envPath)

	_, err = parseFlags([]string{"--bogus"})
	assert.Error(t, err)
}

func TestRefresherReadsAllAndCaptures(t *testing.T) {
	f := &countingFetcher{}
	captured := false
	r := &refresher{fetcher: f, capture: func(context.Context) error {
		captured = true
		return nil
	}}
	require.NoError(t, r.run(context.Background()))
	assert.Equal(t, int32(3), f.calls.Load())
	assert.True(t, captured)
}

func TestRefresherReportsCaptureFailure(t *testing.T) {
	r := &refresher{fetcher: &countingFetcher{}, capture: func(context.Context) error {
		return errors.New("no browser")
	}}
	assert.ErrorContains(t, r.run(context.Background()), "no browser")
}

func TestLocalAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", localAddr("0.0.0.0:8080"))
	assert.Equal(t, "127.0.0.1:8080", localAddr(":8080"))
	assert.Equal(t, "10.0.0.2:80", localAddr("10.0.0.2:80"))
	assert.Equal(t, "[::1]:80", localAddr("[::1]:80"))
}

func TestOpenCache(t *testing.T) {
	conf := config.DefaultConfig()
	store, closeFn, err := openCache(context.Background(), conf)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &cache.Memory{}, store)

	conf.Cache.Backend = config.CacheNone
	store, closeFn, err = openCache(context.Background(), conf)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, cache.Nop{}, store)
}
