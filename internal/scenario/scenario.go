// Package scenario implements the long-running scenario service: it
// watches a user-home tree for agent WASM modules, restarts a scenario's
// match pool whenever the agent lineup changes, and otherwise runs rounds
// back to back up to a configured cap.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Scenario is one named, fixed-parameter match pool definition.
type Scenario struct {
	Name         string `json:"name"`
	Multiplicity int    `json:"multiplicity"`
	MaxTicks     int    `json:"max_ticks"`
	FuelLimit    int    `json:"fuel_limit"`
	MaxRounds    int    `json:"max_rounds"`
}

// DiscoveredAgent is one agent module found under the user-home tree.
type DiscoveredAgent struct {
	Name  string // agent subdirectory name, the lineup key
	User  string
	Path  string
	MTime time.Time
	Size  int64
}

// GatherAgents scans homeRoot/*/agents/*/*.wasm. For each agent subdirectory
// name it keeps the file with the largest modification time. homeRoot is
// normally "/home"; it is a parameter so tests can point it at a temp tree.
func GatherAgents(homeRoot string) ([]DiscoveredAgent, error) {
	userDirs, err := os.ReadDir(homeRoot)
	if err != nil {
		return nil, fmt.Errorf("scenario: read home root: %w", err)
	}

	best := make(map[string]DiscoveredAgent)
	for _, u := range userDirs {
		if !u.IsDir() {
			continue
		}
		agentsDir := filepath.Join(homeRoot, u.Name(), "agents")
		nameDirs, err := os.ReadDir(agentsDir)
		if err != nil {
			continue // no agents/ directory for this user: not an error
		}
		for _, nd := range nameDirs {
			if !nd.IsDir() {
				continue
			}
			nameDir := filepath.Join(agentsDir, nd.Name())
			files, err := os.ReadDir(nameDir)
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() || filepath.Ext(f.Name()) != ".wasm" {
					continue
				}
				info, err := f.Info()
				if err != nil {
					continue
				}
				cand := DiscoveredAgent{
					Name:  nd.Name(),
					User:  u.Name(),
					Path:  filepath.Join(nameDir, f.Name()),
					MTime: info.ModTime(),
					Size:  info.Size(),
				}
				existing, ok := best[nd.Name()]
				if !ok || cand.MTime.After(existing.MTime) {
					best[nd.Name()] = cand
				}
			}
		}
	}

	out := make([]DiscoveredAgent, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NeedsRestart reports whether the agent lineup changed between two
// GatherAgents snapshots: the set of names differs, or any name's
// (mtime,size) pair changed.
func NeedsRestart(prev, next []DiscoveredAgent) bool {
	if len(prev) != len(next) {
		return true
	}
	prevByName := make(map[string]DiscoveredAgent, len(prev))
	for _, a := range prev {
		prevByName[a.Name] = a
	}
	for _, a := range next {
		old, ok := prevByName[a.Name]
		if !ok {
			return true
		}
		if !old.MTime.Equal(a.MTime) || old.Size != a.Size {
			return true
		}
	}
	return false
}
