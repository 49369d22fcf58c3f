package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/consumable/internal/app"
	"github.com/roach88/consumable/internal/events"
)

// Scenario describes a small host program over a single queue of integer
// payloads, the rounds to run it for and what the observers must see.
//
// Scenarios are written in YAML or CUE. Both decode into this struct, so
// the yaml and json tags must stay in sync.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Policy is "auto_clear" (default) or "persistent".
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// Compaction drops consumed records at every round boundary.
	// Only meaningful for persistent queues.
	Compaction bool `yaml:"compaction,omitempty" json:"compaction,omitempty"`

	// Rounds is how many times the host calls Update.
	Rounds int `yaml:"rounds" json:"rounds"`

	// SubRounds is the FixedUpdate repeat count. Zero means 1.
	SubRounds int `yaml:"sub_rounds,omitempty" json:"sub_rounds,omitempty"`

	// Systems run in stage order, then in the order listed.
	Systems []SystemStep `yaml:"systems" json:"systems"`

	// Expect lists the values specific observers must see.
	Expect []Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Final checks the queue after the last round.
	Final *FinalState `yaml:"final,omitempty" json:"final,omitempty"`
}

// SystemStep is one system. Within a single execution it sends first, then
// traverses the queue once (consuming, mutating and observing), then clears.
type SystemStep struct {
	Name  string `yaml:"name" json:"name"`
	Stage string `yaml:"stage,omitempty" json:"stage,omitempty"`

	// OnlyRounds restricts the system to the listed 1-based rounds.
	OnlyRounds []int64 `yaml:"only_rounds,omitempty" json:"only_rounds,omitempty"`

	Send      []int  `yaml:"send,omitempty" json:"send,omitempty"`
	SendRange *Range `yaml:"send_range,omitempty" json:"send_range,omitempty"`

	// Consume is "odd", "even", "all" or "none". Consumed events are
	// neither mutated nor observed.
	Consume string `yaml:"consume,omitempty" json:"consume,omitempty"`

	// Add, Multiply and Divide are applied in that order to every event
	// that was not consumed. Zero means "skip".
	Add      int `yaml:"add,omitempty" json:"add,omitempty"`
	Multiply int `yaml:"multiply,omitempty" json:"multiply,omitempty"`
	Divide   int `yaml:"divide,omitempty" json:"divide,omitempty"`

	// Observe records the (possibly mutated) values this system saw.
	Observe bool `yaml:"observe,omitempty" json:"observe,omitempty"`

	// Clear is "all" or "consumed".
	Clear string `yaml:"clear,omitempty" json:"clear,omitempty"`
}

// Range is a half-open integer range [From, To).
type Range struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Expectation pins what one observer saw in one round.
type Expectation struct {
	Round    int64  `yaml:"round" json:"round"`
	SubRound int    `yaml:"sub_round,omitempty" json:"sub_round,omitempty"`
	System   string `yaml:"system" json:"system"`
	Values   []int  `yaml:"values" json:"values"`
}

// FinalState checks queue counters after the last round. Nil fields are
// not checked.
type FinalState struct {
	Len        *int `yaml:"len,omitempty" json:"len,omitempty"`
	Unconsumed *int `yaml:"unconsumed,omitempty" json:"unconsumed,omitempty"`
}

// Consume filters.
const (
	ConsumeOdd  = "odd"
	ConsumeEven = "even"
	ConsumeAll  = "all"
	ConsumeNone = "none"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// validated against the embedded CUE schema; everything else is parsed as
// YAML with unknown fields rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		scenario, err = parseCUE(path, data)
	} else {
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "observer:" vs "observe:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// FindScenarios walks dir and returns every scenario file, sorted by path.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsScenarioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// policy returns the parsed clearing policy, defaulting to auto-clear.
func (s *Scenario) policy() (events.Policy, error) {
	if s.Policy == "" {
		return events.AutoClear, nil
	}
	return events.ParsePolicy(s.Policy)
}

func (s *Scenario) subRounds() int {
	if s.SubRounds == 0 {
		return 1
	}
	return s.SubRounds
}

func (st *SystemStep) stage() (app.Stage, error) {
	if st.Stage == "" {
		return app.Update, nil
	}
	return app.ParseStage(st.Stage)
}

func (st *SystemStep) writes() bool {
	return len(st.Send) > 0 || st.SendRange != nil || st.Clear != ""
}

func (st *SystemStep) reads() bool {
	return (st.Consume != "" && st.Consume != ConsumeNone) ||
		st.Add != 0 || st.Multiply != 0 || st.Divide != 0 || st.Observe
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := s.policy(); err != nil {
		return err
	}

	if s.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", s.Rounds)
	}

	if s.SubRounds < 0 {
		return fmt.Errorf("sub_rounds must not be negative, got %d", s.SubRounds)
	}

	if len(s.Systems) == 0 {
		return fmt.Errorf("systems list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Systems))
	for i := range s.Systems {
		if err := validateSystem(i, &s.Systems[i]); err != nil {
			return err
		}
		if names[s.Systems[i].Name] {
			return fmt.Errorf("systems[%d]: duplicate name %q", i, s.Systems[i].Name)
		}
		names[s.Systems[i].Name] = true
	}

	for i, e := range s.Expect {
		if e.Round < 1 || e.Round > int64(s.Rounds) {
			return fmt.Errorf("expect[%d]: round %d outside 1..%d", i, e.Round, s.Rounds)
		}
		if !names[e.System] {
			return fmt.Errorf("expect[%d]: unknown system %q", i, e.System)
		}
	}

	if s.Final != nil {
		if s.Final.Len != nil && *s.Final.Len < 0 {
			return fmt.Errorf("final.len must not be negative")
		}
		if s.Final.Unconsumed != nil && *s.Final.Unconsumed < 0 {
			return fmt.Errorf("final.unconsumed must not be negative")
		}
	}

	return nil
}

func validateSystem(index int, st *SystemStep) error {
	if st.Name == "" {
		return fmt.Errorf("systems[%d]: name is required", index)
	}
	if _, err := st.stage(); err != nil {
		return fmt.Errorf("systems[%d]: %w", index, err)
	}

	switch st.Consume {
	case "", ConsumeOdd, ConsumeEven, ConsumeAll, ConsumeNone:
	default:
		return fmt.Errorf("systems[%d]: unknown consume filter %q", index, st.Consume)
	}

	if st.Clear != "" {
		if _, err := app.ParseClearMode(st.Clear); err != nil {
			return fmt.Errorf("systems[%d]: %w", index, err)
		}
	}

	if st.SendRange != nil && st.SendRange.To < st.SendRange.From {
		return fmt.Errorf("systems[%d]: send_range.to must be >= send_range.from", index)
	}

	for _, r := range st.OnlyRounds {
		if r < 1 {
			return fmt.Errorf("systems[%d]: only_rounds entries must be >= 1", index)
		}
	}

	if !st.writes() && !st.reads() {
		return fmt.Errorf("systems[%d]: system %q does nothing", index, st.Name)
	}

	return nil
}
