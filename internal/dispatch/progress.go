package dispatch

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// progress polls a byte counter on a ticker, the way a frame loop polls a transfer.
// Calls to onProgress never overlap: 0 is sent before the ticker starts and 1
// only after it has stopped.
type progress struct {
	onProgress ProgressFunc
	interval   time.Duration
	total      atomic.Int64
	read       atomic.Int64
	done       chan struct{}
	wg         sync.WaitGroup
}

func newProgress(onProgress ProgressFunc, interval time.Duration) *progress {
	p := &progress{onProgress: onProgress, interval: interval, done: make(chan struct{})}
	p.total.Store(-1)
	return p
}

func (p *progress) start() {
	if p.onProgress == nil {
		return
	}
	p.onProgress(0)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				p.onProgress(p.fraction())
			}
		}
	}()
}

func (p *progress) stop(complete bool) {
	if p.onProgress == nil {
		return
	}
	close(p.done)
	p.wg.Wait()
	if complete {
		p.onProgress(1)
	}
}

func (p *progress) expect(contentLength int64) {
	p.total.Store(contentLength)
}

func (p *progress) fraction() float64 {
	total := p.total.Load()
	if total <= 0 {
		return 0
	}
	f := float64(p.read.Load()) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

type countingReader struct {
	r io.Reader
	p *progress
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.p.read.Add(int64(n))
	return n, err
}
