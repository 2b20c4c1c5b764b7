package store

import (
	"context"
	"sync"
)

// remoteJob is one queued backend call.
type remoteJob struct {
	seq  uint64
	op   string
	call func(ctx context.Context) error
}

// dispatcher runs remote calls one at a time, in submission order, on its
// own goroutine so callers never wait for the network.
type dispatcher struct {
	run func(remoteJob)

	mu     sync.Mutex
	jobs   []remoteJob
	closed bool
	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newDispatcher(run func(remoteJob)) *dispatcher {
	d := &dispatcher{
		run:  run,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

// enqueue drops the job once close has started.
func (d *dispatcher) enqueue(j remoteJob) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.jobs = append(d.jobs, j)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if len(d.jobs) == 0 {
				d.mu.Unlock()
				break
			}
			j := d.jobs[0]
			d.jobs = d.jobs[1:]
			d.mu.Unlock()

			d.run(j)
			d.wg.Done()
		}
	}
}

// wait blocks until every queued job has finished.
func (d *dispatcher) wait() {
	d.wg.Wait()
}

// close drains the queue and stops the goroutine.
func (d *dispatcher) close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		d.wg.Wait()
		close(d.done)
	})
}
