package normalize

import (
	"fmt"

	"github.com/p-n-ai/pai-content/internal/content"
)

// Stage selects how strictly a day is validated.
type Stage int

const (
	// StageBase validates the first generation pass. An action day's task
	// is produced by a later pass, so a missing task is accepted here.
	StageBase Stage = iota
	// StageFinal validates a fully assembled day.
	StageFinal
)

type issueCollector struct {
	issues []content.Issue
}

func (c *issueCollector) add(path, message string) {
	c.issues = append(c.issues, content.Issue{Path: path, Message: message})
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &content.StructuralViolationError{Issues: c.issues}
}

// ValidateDay returns the structural issues of day at the given stage.
func ValidateDay(day *content.DayContent, stage Stage) []content.Issue {
	c := &issueCollector{}
	collectDayIssues(c, day, stage)
	return c.issues
}

// CheckDay is ValidateDay returning a StructuralViolationError on any issue.
func CheckDay(day *content.DayContent, stage Stage) error {
	c := &issueCollector{}
	collectDayIssues(c, day, stage)
	return c.result()
}

func collectDayIssues(c *issueCollector, day *content.DayContent, stage Stage) {
	if day == nil {
		c.add("", "day content is null")
		return
	}

	if day.IsActionDay {
		if day.MainContent != nil {
			c.add("main_content", "must be null on an action day")
		}
		if len(day.Exercises) > 0 {
			c.add("exercises", "must be empty on an action day")
		}
		if stage == StageFinal && day.ActionTask == nil {
			c.add("action_task", "is required on an action day")
		}
	} else {
		if day.MainContent == nil {
			c.add("main_content", "is required on a lesson day")
		}
		if day.ActionTask != nil {
			c.add("action_task", "must be null on a lesson day")
		}
	}

	if len(day.Objectives) == 0 {
		c.add("objectives", "at least one objective is required")
	}
	if day.MainContent != nil && len(day.MainContent.KeyConcepts) == 0 {
		c.add("main_content.key_concepts", "at least one key concept is required")
	}
	if day.ActionTask != nil {
		if len(day.ActionTask.Steps) == 0 {
			c.add("action_task.steps", "at least one step is required")
		}
		if len(day.ActionTask.SuccessCriteria) == 0 {
			c.add("action_task.success_criteria", "at least one success criterion is required")
		}
	}

	for i, b := range day.Exercises {
		collectAnswerIssues(c, fmt.Sprintf("exercises[%d]", i), b.Exercise)
	}
}

func collectAnswerIssues(c *issueCollector, path string, ex content.Exercise) {
	var options []string
	var answer int
	switch e := ex.(type) {
	case *content.QuizMCQ:
		options, answer = e.Options, e.Answer
	case *content.ScenarioQuiz:
		options, answer = e.Options, e.Answer
	case nil:
		c.add(path, "exercise is null")
		return
	default:
		return
	}
	if answer < 0 || answer >= len(options) {
		c.add(path+".answer", fmt.Sprintf("index %d outside %d options", answer, len(options)))
	}
}

// MergeActionTask attaches the second-pass action task to an action day and
// validates the assembled day.
func MergeActionTask(day *content.DayContent, task *content.ActionTask) error {
	if day == nil {
		return &content.StructuralViolationError{Issues: []content.Issue{{Message: "day content is null"}}}
	}
	if !day.IsActionDay {
		return &content.StructuralViolationError{Issues: []content.Issue{{
			Path:    "action_task",
			Message: "cannot attach an action task to a lesson day",
		}}}
	}
	day.ActionTask = task
	day.RecomputeXP()
	return CheckDay(day, StageFinal)
}
