package match

import "math"

// shipSeries is one agent's ship time series: parallel arrays, one entry
// appended per observed tick.
type shipSeries struct {
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
	Heading []float64 `json:"heading"`
	Alive   []bool    `json:"alive"`
}

// shotSeries is one agent's shot time series.
type shotSeries struct {
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Lifetime []int32   `json:"lifetime"`
}

// teamLog is one team's full per-tick history.
type teamLog struct {
	Ships   map[string]*shipSeries `json:"ships"`
	Shots   map[string]*shotSeries `json:"shots"`
	Actions map[string][]int32     `json:"actions"`
	Scores  []int32                `json:"scores"`
	Fuel    []*uint64               `json:"fuel"`
}

func newTeamLog(ids []uint32) *teamLog {
	tl := &teamLog{
		Ships:   make(map[string]*shipSeries, len(ids)),
		Shots:   make(map[string]*shotSeries, len(ids)),
		Actions: make(map[string][]int32, len(ids)),
	}
	for _, id := range ids {
		key := idKey(id)
		tl.Ships[key] = &shipSeries{}
		tl.Shots[key] = &shotSeries{}
		tl.Actions[key] = nil
	}
	return tl
}

// Log is the JSON-serializable history of a completed or in-progress match.
type Log struct {
	Ticks          int        `json:"ticks"`
	ShipHitRadius  float64    `json:"ship_hit_radius"`
	History        []*teamLog `json:"history"`
}

// MatchLog adds the supervisor-level wrapper fields to a bare Log.
type MatchLog struct {
	Log
	Teams        []string `json:"teams"`
	FinalScores  []int32  `json:"final_scores"`
}

func idKey(id uint32) string {
	return itoa(int64(id))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// round4 rounds a position to 4 decimal places, round1 a heading to 1.
func round4(v float32) float64 { return roundTo(float64(v), 4) }
func round1(v float32) float64 { return roundTo(float64(v), 1) }
func round3(v float32) float64 { return roundTo(float64(v), 3) }

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}
