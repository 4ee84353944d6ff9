package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var agentFileRe = regexp.MustCompile(`^agent-v(\d+)\.wasm$`)

// SelectAgents picks one agent module per team subdirectory of agentsDir:
// the file matching agent-v<int>.wasm with the largest <int>. Teams are
// returned sorted by directory name. Non-matching files are ignored; a
// team directory with no matching file is skipped.
func SelectAgents(agentsDir string) (teamNames []string, agentPaths []string, err error) {
	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("supervisor: read agents dir: %w", err)
	}

	var teams []string
	for _, e := range entries {
		if e.IsDir() {
			teams = append(teams, e.Name())
		}
	}
	sort.Strings(teams)

	for _, team := range teams {
		teamDir := filepath.Join(agentsDir, team)
		files, err := os.ReadDir(teamDir)
		if err != nil {
			return nil, nil, fmt.Errorf("supervisor: read team dir %q: %w", teamDir, err)
		}

		best := -1
		var bestName string
		for _, f := range files {
			m := agentFileRe.FindStringSubmatch(f.Name())
			if m == nil {
				continue
			}
			v, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if v > best {
				best = v
				bestName = f.Name()
			}
		}
		if bestName == "" {
			continue
		}
		teamNames = append(teamNames, team)
		agentPaths = append(agentPaths, filepath.Join(teamDir, bestName))
	}
	return teamNames, agentPaths, nil
}
