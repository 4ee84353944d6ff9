package scenario

import (
	"encoding/json"
	"fmt"
)

// requiredKeys lists the JSON keys a scenario object must carry. max_rounds
// is included even though it is easy to overlook: the field is documented
// and consumed downstream, so a scenario file missing it should fail fast
// rather than silently defaulting.
var requiredKeys = []string{"name", "multiplicity", "max_ticks", "fuel_limit", "max_rounds"}

// ValidationError reports a scenario-file validation failure. It is always
// reported before a scenario starts running, never raised mid-match.
type ValidationError struct {
	Index int    // position in the scenario array, -1 if not element-specific
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("scenario: %s", e.Msg)
	}
	return fmt.Sprintf("scenario: element %d: %s", e.Index, e.Msg)
}

// ParseFile validates and decodes a scenario-file JSON array. Required keys
// are checked per element before type decoding; unknown keys are ignored.
func ParseFile(data []byte) ([]Scenario, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Index: -1, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	scenarios := make([]Scenario, 0, len(raw))
	for i, obj := range raw {
		for _, key := range requiredKeys {
			if _, ok := obj[key]; !ok {
				return nil, &ValidationError{Index: i, Msg: fmt.Sprintf("missing required key %q", key)}
			}
		}

		name, ok := obj["name"].(string)
		if !ok {
			return nil, &ValidationError{Index: i, Msg: "\"name\" must be a string"}
		}

		multiplicity, err := requireInt(obj, "multiplicity")
		if err != nil {
			return nil, &ValidationError{Index: i, Msg: err.Error()}
		}
		maxTicks, err := requireInt(obj, "max_ticks")
		if err != nil {
			return nil, &ValidationError{Index: i, Msg: err.Error()}
		}
		fuelLimit, err := requireInt(obj, "fuel_limit")
		if err != nil {
			return nil, &ValidationError{Index: i, Msg: err.Error()}
		}
		maxRounds, err := requireInt(obj, "max_rounds")
		if err != nil {
			return nil, &ValidationError{Index: i, Msg: err.Error()}
		}

		if multiplicity < 1 {
			return nil, &ValidationError{Index: i, Msg: "\"multiplicity\" must be >= 1"}
		}
		if maxTicks < 1 {
			return nil, &ValidationError{Index: i, Msg: "\"max_ticks\" must be >= 1"}
		}
		if maxRounds < 0 {
			return nil, &ValidationError{Index: i, Msg: "\"max_rounds\" must be >= 0"}
		}

		scenarios = append(scenarios, Scenario{
			Name:         name,
			Multiplicity: multiplicity,
			MaxTicks:     maxTicks,
			FuelLimit:    fuelLimit,
			MaxRounds:    maxRounds,
		})
	}
	return scenarios, nil
}

func requireInt(obj map[string]any, key string) (int, error) {
	v, ok := obj[key].(float64) // encoding/json decodes all JSON numbers as float64
	if !ok {
		return 0, fmt.Errorf("%q must be an integer", key)
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("%q must be an integer", key)
	}
	return int(v), nil
}
