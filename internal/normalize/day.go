package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
)

var (
	dayShape = Shape{
		Required("title"),
		Required("is_action_day", "action_day"),
		Optional("day_number", "day"),
		Optional("focus_area"),
		Optional("objectives"),
		Optional("completion_status", "status"),
		Optional("main_content"),
		Optional("exercises"),
		Optional("action_task"),
		Optional("total_xp"),
		Optional("estimated_time"),
	}

	mainContentShape = Shape{
		Required("title"),
		Required("text_content", "content", "body", "text"),
		Required("fun_fact"),
		Optional("key_concepts"),
		Optional("xp"),
	}

	keyConceptShape = Shape{
		Required("term", "concept"),
		Required("definition", "explanation", "meaning"),
	}

	actionTaskShape = Shape{
		Required("title"),
		Required("challenge_description", "description", "challenge"),
		Optional("steps"),
		Optional("time_estimate", "estimated_time"),
		Optional("tips"),
		Optional("real_world_context"),
		Optional("success_criteria"),
		Optional("ski_motivation", "motivation", "tovi_motivation", "toviMotivation"),
		Optional("difficulty_adaptation"),
		Optional("xp"),
		Optional("deliverables"),
	}
)

// Decoder turns raw generator payloads into validated content.
type Decoder struct {
	rules     Rules
	exercises *Normalizer
}

// NewDecoder creates a decoder with the given rules.
func NewDecoder(rules Rules) *Decoder {
	return &Decoder{rules: rules, exercises: NewNormalizer(rules)}
}

// DayReport lists what decoding removed from a day without rejecting it.
type DayReport struct {
	Drops              []Drop
	DiscardedExercises int
}

// Day decodes and validates a first-pass day payload.
func (d *Decoder) Day(data []byte) (*content.DayContent, DayReport, error) {
	raw, err := dayEnvelope.decode(data)
	if err != nil {
		return nil, DayReport{}, err
	}
	return d.DayObject(raw)
}

// DayObject is Day for an already parsed object. Missing fields and
// structural violations reject the day; individual bad exercises do not.
func (d *Decoder) DayObject(raw map[string]any) (*content.DayContent, DayReport, error) {
	var report DayReport

	rec, err := dayShape.Reconcile(raw)
	if err != nil {
		return nil, report, err
	}

	isAction, ok := rec.Bool("is_action_day")
	if !ok {
		return nil, report, fmt.Errorf("%w: is_action_day must be a boolean, got %#v", content.ErrInvalidPayload, rec.Raw("is_action_day"))
	}

	day := &content.DayContent{
		DayNumber:        rec.Int("day_number", 0),
		Title:            rec.String("title"),
		FocusArea:        rec.String("focus_area"),
		IsActionDay:      isAction,
		Objectives:       rec.Strings("objectives"),
		CompletionStatus: ParseStatus(rec.String("completion_status")),
		EstimatedTime:    rec.StringOr("estimated_time", d.rules.DefaultEstimatedTime),
	}

	if obj, ok := rec.Object("main_content"); ok {
		mc, err := d.mainContent(obj)
		if err != nil {
			return nil, report, err
		}
		day.MainContent = mc
	}

	if obj, ok := rec.Object("action_task"); ok {
		task, err := d.ActionTaskObject("action_task", obj)
		if err != nil {
			return nil, report, err
		}
		day.ActionTask = task
	}

	if items := rec.Items("exercises"); len(items) > 0 {
		if isAction {
			report.DiscardedExercises = len(items)
			slog.Warn("discarding exercises on action day", "title", day.Title, "count", len(items))
		} else {
			day.Exercises, report.Drops = d.exercises.Exercises(items)
		}
	}

	if err := CheckDay(day, StageBase); err != nil {
		return nil, report, err
	}

	day.RecomputeXP()
	return day, report, nil
}

func (d *Decoder) mainContent(raw map[string]any) (*content.MainContent, error) {
	rec, err := mainContentShape.ReconcileAt("main_content", raw)
	if err != nil {
		return nil, err
	}

	mc := &content.MainContent{
		Title:       rec.String("title"),
		TextContent: rec.String("text_content"),
		FunFact:     rec.String("fun_fact"),
		XP:          positiveOr(rec.Int("xp", 0), d.rules.XP.MainContent),
	}
	for i, obj := range rec.Objects("key_concepts") {
		kc, err := keyConceptShape.ReconcileAt(fmt.Sprintf("main_content.key_concepts[%d]", i), obj)
		if err != nil {
			return nil, err
		}
		mc.KeyConcepts = append(mc.KeyConcepts, content.KeyConcept{
			Term:       kc.String("term"),
			Definition: kc.String("definition"),
			Order:      len(mc.KeyConcepts) + 1,
		})
	}
	return mc, nil
}

// ActionTask decodes a second-pass action task payload.
func (d *Decoder) ActionTask(data []byte) (*content.ActionTask, error) {
	raw, err := dayEnvelope.decode(data)
	if err != nil {
		return nil, err
	}
	// Some generators wrap the task in {"action_task": {...}}.
	if inner, ok := objectFromAny(firstPresent(raw, "action_task", "actionTask")); ok {
		raw = inner
	}
	return d.ActionTaskObject("", raw)
}

// ActionTaskObject decodes an already parsed action task rooted at path.
func (d *Decoder) ActionTaskObject(path string, raw map[string]any) (*content.ActionTask, error) {
	rec, err := actionTaskShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}

	task := &content.ActionTask{
		Title:                rec.String("title"),
		ChallengeDescription: rec.String("challenge_description"),
		TimeEstimate:         rec.String("time_estimate"),
		Tips:                 rec.Strings("tips"),
		RealWorldContext:     rec.String("real_world_context"),
		SuccessCriteria:      rec.Strings("success_criteria"),
		Motivation:           rec.String("ski_motivation"),
		DifficultyAdaptation: parseAdaptation(rec.String("difficulty_adaptation")),
		XP:                   d.actionXP(rec.Int("xp", 0)),
	}

	for _, item := range rec.Items("steps") {
		text := stringFromAny(item)
		if obj, ok := objectFromAny(item); ok {
			text = stringFromAny(firstPresent(obj, "instruction", "text", "description"))
		}
		if text == "" {
			continue
		}
		task.Steps = append(task.Steps, content.ActionStep{Instruction: text, Order: len(task.Steps) + 1})
	}

	for _, item := range rec.Items("deliverables") {
		desc, kind := stringFromAny(item), ""
		if obj, ok := objectFromAny(item); ok {
			desc = stringFromAny(firstPresent(obj, "description", "text"))
			kind = stringFromAny(obj["type"])
		}
		if desc == "" {
			continue
		}
		if kind == "" {
			kind = d.rules.DefaultDeliverableType
		}
		task.Deliverables = append(task.Deliverables, content.Deliverable{
			Description: desc,
			Type:        kind,
			Order:       len(task.Deliverables) + 1,
		})
	}

	return task, nil
}

func (d *Decoder) actionXP(xp int) int {
	switch {
	case xp <= 0:
		return d.rules.XP.ActionTask
	case xp < d.rules.XP.ActionMin:
		return d.rules.XP.ActionMin
	case xp > d.rules.XP.ActionMax:
		return d.rules.XP.ActionMax
	}
	return xp
}

func parseAdaptation(s string) string {
	switch s = strings.ToLower(s); s {
	case "easier", "standard", "harder":
		return s
	}
	return ""
}

// ParseStatus maps a raw completion status onto a known one. Unknown values
// and the legacy PENDING map to NOT_STARTED.
func ParseStatus(s string) content.CompletionStatus {
	status := content.CompletionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if status.Valid() {
		return status
	}
	return content.StatusNotStarted
}
