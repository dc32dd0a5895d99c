package normalize

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
)

var (
	planShape = Shape{
		Required("skill_name", "skill"),
		Optional("generated_by"),
		Required("total_duration_weeks", "duration_weeks"),
		Required("daily_time_minutes", "daily_minutes"),
		Optional("skill_level_target", "target_level", "level"),
		Optional("milestones"),
		Optional("progress_metrics"),
		Optional("flexibility_options"),
		Required("sections"),
		Optional("skill_analysis"),
		Optional("pedagogical_analysis"),
	}

	sectionShape = Shape{
		Required("title"),
		Optional("description"),
		Required("days"),
	}

	dayOutlineShape = Shape{
		Required("title"),
		Required("is_action_day", "action_day"),
		Optional("day_number", "day"),
		Optional("focus_area"),
		Optional("objectives"),
		Optional("completion_status", "status"),
	}
)

// Plan decodes and validates a learning plan payload, including embedded
// skill and pedagogical analyses when present.
func (d *Decoder) Plan(data []byte) (*content.LearningPlan, error) {
	raw, err := planEnvelope.decode(data)
	if err != nil {
		return nil, err
	}
	return d.PlanObject(raw)
}

// PlanObject is Plan for an already parsed object.
func (d *Decoder) PlanObject(raw map[string]any) (*content.LearningPlan, error) {
	rec, err := planShape.Reconcile(raw)
	if err != nil {
		return nil, err
	}

	plan := &content.LearningPlan{
		SkillName:          rec.String("skill_name"),
		GeneratedBy:        rec.StringOr("generated_by", "LLM_SERVICE"),
		DurationWeeks:      rec.Int("total_duration_weeks", 0),
		DailyMinutes:       rec.Int("daily_time_minutes", 0),
		TargetLevel:        ParseLevel(rec.String("skill_level_target")),
		Milestones:         rec.Strings("milestones"),
		ProgressMetrics:    rec.Strings("progress_metrics"),
		FlexibilityOptions: rec.Strings("flexibility_options"),
	}

	nextDay := 1
	for i, obj := range rec.Objects("sections") {
		section, err := d.section(fmt.Sprintf("sections[%d]", i), obj, &nextDay)
		if err != nil {
			return nil, err
		}
		section.Order = i + 1
		plan.Sections = append(plan.Sections, section)
	}

	if obj, ok := rec.Object("skill_analysis"); ok {
		sa, err := d.SkillAnalysisObject("skill_analysis", obj)
		if err != nil {
			return nil, err
		}
		if sa.SkillName == "" {
			sa.SkillName = plan.SkillName
		}
		plan.SkillAnalysis = sa
	}
	if obj, ok := rec.Object("pedagogical_analysis"); ok {
		pa, err := d.PedagogyObject("pedagogical_analysis", obj)
		if err != nil {
			return nil, err
		}
		plan.PedagogicalAnalysis = pa
	}

	if err := CheckPlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (d *Decoder) section(path string, raw map[string]any, nextDay *int) (content.PlanSection, error) {
	rec, err := sectionShape.ReconcileAt(path, raw)
	if err != nil {
		return content.PlanSection{}, err
	}

	section := content.PlanSection{
		Title:       rec.String("title"),
		Description: rec.String("description"),
	}
	for j, obj := range rec.Objects("days") {
		dayPath := fmt.Sprintf("%s.days[%d]", path, j)
		day, err := dayOutlineShape.ReconcileAt(dayPath, obj)
		if err != nil {
			return content.PlanSection{}, err
		}
		isAction, ok := day.Bool("is_action_day")
		if !ok {
			return content.PlanSection{}, fmt.Errorf("%w: %s.is_action_day must be a boolean", content.ErrInvalidPayload, dayPath)
		}
		number := day.Int("day_number", *nextDay)
		*nextDay = number + 1

		section.Days = append(section.Days, content.DayOutline{
			DayNumber:        number,
			Title:            day.String("title"),
			FocusArea:        day.String("focus_area"),
			IsActionDay:      isAction,
			Objectives:       day.Strings("objectives"),
			CompletionStatus: ParseStatus(day.String("completion_status")),
			Order:            j + 1,
		})
	}
	return section, nil
}

// CheckPlan validates the cross-field rules of a plan.
func CheckPlan(plan *content.LearningPlan) error {
	c := &issueCollector{}
	if plan.DurationWeeks <= 0 {
		c.add("total_duration_weeks", "must be positive")
	}
	if plan.DailyMinutes <= 0 {
		c.add("daily_time_minutes", "must be positive")
	}
	if len(plan.Sections) == 0 {
		c.add("sections", "at least one section is required")
	}

	seen := make(map[int]string)
	for i, s := range plan.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		if len(s.Days) == 0 {
			c.add(path+".days", "at least one day is required")
		}
		for j, day := range s.Days {
			dayPath := fmt.Sprintf("%s.days[%d]", path, j)
			if day.DayNumber <= 0 {
				c.add(dayPath+".day_number", "must be positive")
			}
			if prev, dup := seen[day.DayNumber]; dup {
				c.add(dayPath+".day_number", fmt.Sprintf("day %d already used at %s", day.DayNumber, prev))
			}
			seen[day.DayNumber] = dayPath
		}
	}
	return c.result()
}

// ParseLevel maps a raw level onto a known one, defaulting to BEGINNER.
func ParseLevel(s string) content.Level {
	switch l := content.Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case content.LevelBeginner, content.LevelIntermediate, content.LevelAdvanced:
		return l
	}
	return content.LevelBeginner
}
