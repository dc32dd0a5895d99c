package normalize

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// XPRules holds the XP awarded when the generator omits one.
type XPRules struct {
	QuizMCQ      int `yaml:"quiz_mcq"`
	TrueFalse    int `yaml:"quiz_truefalse"`
	MatchMeaning int `yaml:"match_meaning"`
	ScenarioQuiz int `yaml:"scenario_quiz"`
	MainContent  int `yaml:"main_content"`
	ActionTask   int `yaml:"action_task"`
	ActionMin    int `yaml:"action_task_min"`
	ActionMax    int `yaml:"action_task_max"`
}

// Rules tunes normalization defaults and minimums.
type Rules struct {
	XP                     XPRules `yaml:"xp"`
	MinOptions             int     `yaml:"min_options"`
	MinPairs               int     `yaml:"min_pairs"`
	DefaultEstimatedTime   string  `yaml:"default_estimated_time"`
	DefaultDeliverableType string  `yaml:"default_deliverable_type"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	return Rules{
		XP: XPRules{
			QuizMCQ:      20,
			TrueFalse:    15,
			MatchMeaning: 25,
			ScenarioQuiz: 30,
			MainContent:  30,
			ActionTask:   75,
			ActionMin:    30,
			ActionMax:    150,
		},
		MinOptions:             2,
		MinPairs:               2,
		DefaultEstimatedTime:   "TBD",
		DefaultDeliverableType: "document",
	}
}

// LoadRules reads rules from a YAML file layered over DefaultRules.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}

	slog.Info("content rules loaded", "path", path)
	return rules, nil
}

// Validate checks that the rules are usable.
func (r Rules) Validate() error {
	if r.MinOptions < 2 {
		return fmt.Errorf("min_options must be at least 2, got %d", r.MinOptions)
	}
	if r.MinPairs < 1 {
		return fmt.Errorf("min_pairs must be at least 1, got %d", r.MinPairs)
	}
	if r.XP.ActionMin > r.XP.ActionMax {
		return fmt.Errorf("action_task_min %d exceeds action_task_max %d", r.XP.ActionMin, r.XP.ActionMax)
	}
	if r.XP.ActionTask < r.XP.ActionMin || r.XP.ActionTask > r.XP.ActionMax {
		return fmt.Errorf("action_task xp %d outside [%d, %d]", r.XP.ActionTask, r.XP.ActionMin, r.XP.ActionMax)
	}
	return nil
}
