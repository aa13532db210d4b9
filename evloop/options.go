// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evloop

import "time"

// loopOptions holds configuration resolved at EventLoop construction.
type loopOptions struct {
	logger          Logger
	pollTimeout     time.Duration
	executorWorkers int
}

// Option configures an EventLoop instance.
type Option interface {
	applyLoop(*loopOptions)
}

type optionFunc func(*loopOptions)

func (f optionFunc) applyLoop(opts *loopOptions) { f(opts) }

// WithLogger sets the sink callback exceptions and protocol diagnostics
// are logged through. The default is a no-op logger.
func WithLogger(logger Logger) Option {
	return optionFunc(func(opts *loopOptions) { opts.logger = logger })
}

// WithPollTimeout bounds how long a single tick will block in the
// multiplexer when there is no ready work and no pending timer. The
// default is 500ms, matching the source's poll_timeout.
func WithPollTimeout(d time.Duration) Option {
	return optionFunc(func(opts *loopOptions) { opts.pollTimeout = d })
}

// WithExecutorWorkers sets the worker pool size backing RunInExecutor.
// The default (and the value used for n <= 0) is 4 workers.
func WithExecutorWorkers(n int) Option {
	return optionFunc(func(opts *loopOptions) { opts.executorWorkers = n })
}

func resolveOptions(opts []Option) *loopOptions {
	cfg := &loopOptions{
		pollTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyLoop(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = NewLogger(nil)
	}
	return cfg
}
