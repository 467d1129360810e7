package bot

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Keepalive keeps the typing indicator alive during long-running operations
// (model inference, multi-symbol refresh). Start returns a stop function that
// every exit path must call.
type Keepalive struct {
	gw       Gateway
	interval time.Duration
}

// NewKeepalive creates a keepalive. Discord's typing indicator lasts about
// ten seconds, so it is re-sent every eight.
func NewKeepalive(gw Gateway) *Keepalive {
	return &Keepalive{gw: gw, interval: 8 * time.Second}
}

// Start begins sending typing indicators for the channel and returns a stop
// function. Stop is safe to call more than once.
func (k *Keepalive) Start(channelID string) (stop func()) {
	if err := k.gw.Typing(channelID); err != nil {
		log.Debugf("typing indicator: %v", err)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(k.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := k.gw.Typing(channelID); err != nil {
					log.Debugf("typing indicator: %v", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
