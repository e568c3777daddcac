/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sched implements the daemon's single-threaded cooperative
// event loop: the scheduler collaborator used by the command and
// monitoring core. The core registers one readable-descriptor callback
// per socket; the loop delivers callbacks strictly one at a time, so a
// handler always runs to completion before the next packet is read.
//
// A goroutine-per-listener design would hand ordering control to the
// Go runtime scheduler instead of this package, so every socket shares
// a single unix.Poll loop and callbacks fire serially, in registration
// order.
package sched

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ReadHandler is invoked when its descriptor becomes readable.
type ReadHandler func(fd int)

type registration struct {
	fd      int
	handler ReadHandler
}

// Scheduler is a minimal cooperative event loop over a fixed set of
// readable file descriptors.
type Scheduler struct {
	regs          []registration
	lastEventTime time.Time
	stop          chan struct{}
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// Register adds fd to the poll set with the given readable callback.
// Re-registering an fd that is already registered is a programming
// error, caught here rather than silently overwriting it.
func (s *Scheduler) Register(fd int, handler ReadHandler) error {
	for _, r := range s.regs {
		if r.fd == fd {
			return fmt.Errorf("sched: fd %d already registered", fd)
		}
	}
	s.regs = append(s.regs, registration{fd: fd, handler: handler})
	return nil
}

// Unregister removes fd from the poll set. It is a no-op if fd was
// never registered.
func (s *Scheduler) Unregister(fd int) {
	for i, r := range s.regs {
		if r.fd == fd {
			s.regs = append(s.regs[:i], s.regs[i+1:]...)
			return
		}
	}
}

// LastEventTime returns the time at which the most recent callback
// ran, for idle-timeout and staleness bookkeeping.
func (s *Scheduler) LastEventTime() time.Time {
	return s.lastEventTime
}

// Stop asks Run to return after its current poll iteration.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// pollTimeoutMillis bounds how long a single poll waits so Run can
// notice Stop() even with nothing to read.
const pollTimeoutMillis = 250

// Run blocks, dispatching readable callbacks one at a time, until
// Stop is called. Handlers are expected to complete quickly and never
// block on I/O.
func (s *Scheduler) Run() error {
	for {
		select {
		case <-s.stop:
			return nil
		default:
		}

		if len(s.regs) == 0 {
			time.Sleep(pollTimeoutMillis * time.Millisecond)
			continue
		}

		fds := make([]unix.PollFd, len(s.regs))
		for i, r := range s.regs {
			fds[i] = unix.PollFd{Fd: int32(r.fd), Events: unix.POLLIN}
		}

		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("sched: poll: %w", err)
		}
		if n == 0 {
			continue
		}

		// Deliver strictly in registration order so that, within a
		// single Run, two sockets never race for dispatch order
		// across poll iterations in a way a test could not predict.
		for i, pfd := range fds {
			if pfd.Revents&(unix.POLLIN|unix.POLLERR) == 0 {
				continue
			}
			s.lastEventTime = time.Now()
			s.regs[i].handler(int(pfd.Fd))
		}
	}
}
