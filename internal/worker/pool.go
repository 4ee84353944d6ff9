package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joergh/scubywasm/internal/match"
)

// Result is the outcome of one submitted match.
type Result struct {
	Params MatchParams
	Log    *match.MatchLog
	Err    error
}

// Pool runs up to n matches concurrently, each in its own re-exec'd
// process, and hands results back as a futures set with first-completed
// wait — no state is shared between workers. Submit blocks while all n
// workers are busy; results arrive on Results() in completion order, not
// submission order.
type Pool struct {
	exePath string
	jobs    chan MatchParams
	results chan Result
	wg      sync.WaitGroup
}

// NewPool starts n worker goroutines, each one re-exec'ing exePath as a
// subprocess per submitted match.
func NewPool(ctx context.Context, exePath string, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		exePath: exePath,
		jobs:    make(chan MatchParams),
		results: make(chan Result),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.runWorker(ctx)
	}
	return p
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for params := range p.jobs {
		matchLog, err := RunInSubprocess(ctx, p.exePath, params)
		if err != nil {
			log.Error().Err(err).Strs("agents", params.AgentPaths).Msg("worker: match subprocess failed")
		}
		p.results <- Result{Params: params, Log: matchLog, Err: err}
	}
}

// Submit enqueues one match. It blocks if every worker is busy — the
// caller (supervisor or scenario service) is expected to have its own
// seed/submission loop running concurrently with result draining.
func (p *Pool) Submit(params MatchParams) {
	p.jobs <- params
}

// Results returns the channel results arrive on, in completion order.
func (p *Pool) Results() <-chan Result { return p.results }

// Close stops accepting new work and waits for in-flight matches to drain,
// then closes Results(). Matches already running when Close is called are
// never killed — only new submissions stop.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}
