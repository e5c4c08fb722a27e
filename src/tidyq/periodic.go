package tidyq

import (
	"fmt"
	"sync"
	"time"
)

// Periodic runs Task every Interval until stopped. The first run happens a
// full interval after Start.
type Periodic struct {
	Interval time.Duration
	Task     func()
	Logger   Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// Start spawns the loop. Calling Start on a running Periodic is a no-op.
func (p *Periodic) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return
	}

	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	p.stopCh = stopCh
	p.doneCh = doneCh

	go func() {
		defer close(doneCh)

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-t.C:
				p.runTask()
			}
		}
	}()
}

func (p *Periodic) runTask() {
	defer func() {
		if r := recover(); r != nil {
			safeLog(p.Logger, fmt.Sprintf("[periodic] task panic: %v", r))
		}
	}()
	p.Task()
}

// Stop halts the loop and waits for an in-flight run to finish. Stopping a
// stopped Periodic is a no-op. The Periodic can be started again afterwards.
func (p *Periodic) Stop() {
	p.mu.Lock()
	stopCh := p.stopCh
	doneCh := p.doneCh
	p.stopCh = nil
	p.doneCh = nil
	p.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh
}
