package scheduler

import (
	"context"
	"testing"
	"time"

	"TickerSage/internal/conversation"
	"TickerSage/internal/model"
)

func exchangeAt(ts time.Time) model.Exchange {
	return model.Exchange{Author: "alice", Content: "hi", Timestamp: ts}
}

func TestRegisterAll_BadCronSpec(t *testing.T) {
	s := NewScheduler(context.Background(), conversation.NewStore(10, time.Minute), nil, time.Minute, func() {})
	if err := s.RegisterAll("not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if err := s.RegisterAll("0 0 8 * * *"); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestWatchdog_FiresOnlyWhenIdle(t *testing.T) {
	fired := 0
	s := NewScheduler(context.Background(), conversation.NewStore(10, time.Minute), nil, 50*time.Millisecond, func() { fired++ })

	s.TouchActivity()
	s.watchdogTask()
	if fired != 0 {
		t.Fatal("watchdog fired while active")
	}

	time.Sleep(60 * time.Millisecond)
	s.watchdogTask()
	if fired != 1 {
		t.Fatalf("watchdog should fire after idle timeout, fired=%d", fired)
	}

	s.TouchActivity()
	s.watchdogTask()
	if fired != 1 {
		t.Fatal("activity ping must reset the idle clock")
	}
}

func TestSweepTask_EvictsIdleConversations(t *testing.T) {
	convs := conversation.NewStore(10, time.Millisecond)
	convs.Record("u1", exchangeAt(time.Now().Add(-time.Second)))

	s := NewScheduler(context.Background(), convs, nil, time.Minute, func() {})
	s.sweepTask()

	if n := convs.ActiveUsers(); n != 0 {
		t.Fatalf("expected all records swept, %d remain", n)
	}
}
