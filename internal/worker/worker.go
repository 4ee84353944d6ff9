// Package worker runs each match in its own OS process, so that a guest
// that wedges the host (native crash, runaway memory) takes down only one
// worker. It is shared by the supervisor and the scenario service — both
// just submit MatchParams and wait on a future.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/joergh/scubywasm/internal/match"
)

// ReexecSubcommand is the hidden CLI subcommand that scubywasm-server and
// scubywasm-service-runner recognize: run one match described by MatchParams (read as JSON from
// stdin) and write its MatchLog (as JSON) to stdout. Workers are spawned by
// re-executing the current binary with this single argument, substituting
// an OS process for the in-process goroutine pool a single-host fan-out
// would otherwise use.
const ReexecSubcommand = "__run-match__"

// MatchParams is the JSON-serializable description of one match, passed to
// a worker subprocess over stdin.
type MatchParams struct {
	EnginePath       string       `json:"engine_path"`
	AgentPaths       []string     `json:"agent_paths"`
	Multiplicity     int          `json:"multiplicity"`
	Seed             uint64       `json:"seed"`
	FuelEnabled      bool         `json:"fuel_enabled"`
	FuelLimit        uint64       `json:"fuel_limit"`
	MaxTicks         int          `json:"max_ticks"`
	MemoryLimitBytes int64        `json:"memory_limit_bytes"`
	TeamNames        []string     `json:"team_names"`
}

// RunMatchMain is the subprocess entrypoint. It is invoked by a cmd/ binary
// when os.Args[1] == ReexecSubcommand, reading MatchParams as JSON from r
// and writing the resulting MatchLog as JSON to w. Guest debug.debug_log
// lines are forwarded to the process's own stderr, which RunInSubprocess
// captures separately from the stdout MatchLog payload.
func RunMatchMain(r []byte, w *bytes.Buffer) error {
	var p MatchParams
	if err := json.Unmarshal(r, &p); err != nil {
		return fmt.Errorf("worker: decode match params: %w", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	m, err := match.Build(match.BuildParams{
		EnginePath:       p.EnginePath,
		AgentPaths:       p.AgentPaths,
		Multiplicity:     p.Multiplicity,
		Seed:             p.Seed,
		FuelEnabled:      p.FuelEnabled,
		FuelLimit:        p.FuelLimit,
		MemoryLimitBytes: p.MemoryLimitBytes,
		LogSink: func(line string) {
			logger.Debug().Str("source", "guest").Msg(line)
		},
	})
	if err != nil {
		return fmt.Errorf("worker: build match: %w", err)
	}
	if err := match.RunUntil(m, p.MaxTicks); err != nil {
		return fmt.Errorf("worker: run match: %w", err)
	}

	log := m.Log()
	out := match.MatchLog{
		Log:         *log,
		Teams:       p.TeamNames,
		FinalScores: m.FinalScores(),
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// RunInSubprocess re-executes exePath with ReexecSubcommand, feeding params
// as JSON on stdin, and parses the child's stdout as a MatchLog. The child
// runs in its own process group (Setpgid) so a signal delivered to the
// coordinator's process group — notably the graceful-shutdown INT/TERM —
// never reaches an in-flight worker, which must finish writing its log
// undisturbed.
func RunInSubprocess(ctx context.Context, exePath string, params MatchParams) (*match.MatchLog, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("worker: encode match params: %w", err)
	}

	cmd := exec.CommandContext(ctx, exePath, ReexecSubcommand)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("worker: match subprocess failed: %w (stderr: %s)", err, stderr.String())
	}

	var log match.MatchLog
	if err := json.Unmarshal(stdout.Bytes(), &log); err != nil {
		return nil, fmt.Errorf("worker: decode match log: %w", err)
	}
	return &log, nil
}
