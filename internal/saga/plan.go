package saga

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/store"
)

// PersistPlan writes a plan in dependency order: the plan row, its skill
// analysis and components, its pedagogical analysis and objectives, then
// each section followed by that section's day outlines.
//
// An error is returned only when the plan row itself cannot be created, in
// which case nothing else is attempted.
func (o *Orchestrator) PersistPlan(ctx context.Context, userID string, plan *content.LearningPlan) (Result, error) {
	t := NewTracker(o.metrics)
	if plan == nil {
		return t.Result(""), fmt.Errorf("persist plan: %w", content.ErrInvalidPayload)
	}

	planID := o.create(ctx, t, store.LearningPlan, "", nil, store.Data{
		"user_id":              userID,
		"skill_name":           plan.SkillName,
		"generated_by":         plan.GeneratedBy,
		"total_duration_weeks": plan.DurationWeeks,
		"daily_time_minutes":   plan.DailyMinutes,
		"skill_level_target":   string(plan.TargetLevel),
		"milestones":           plan.Milestones,
		"progress_metrics":     plan.ProgressMetrics,
		"flexibility_options":  plan.FlexibilityOptions,
		"total_days":           plan.TotalDays(),
	})
	if planID == "" {
		res := o.finish("plan", t, "")
		return res, res.Outcomes[0].Err
	}
	root := &parent{entity: store.LearningPlan, key: "plan_id", id: planID}

	if sa := plan.SkillAnalysis; sa != nil {
		saID := o.create(ctx, t, store.SkillAnalysis, "skill_analysis", root, store.Data{
			"skill_name":                   sa.SkillName,
			"skill_category":               string(sa.Category),
			"market_demand":                string(sa.MarketDemand),
			"is_skill_valid":               sa.IsValid,
			"viability_reason":             sa.ViabilityReason,
			"learning_path_recommendation": sa.LearningPathRecommendation,
			"real_world_applications":      sa.RealWorldApplications,
			"complementary_skills":         sa.ComplementarySkills,
			"generated_by":                 sa.GeneratedBy,
		})
		ref := &parent{entity: store.SkillAnalysis, key: "skill_analysis_id", id: saID}
		for i, c := range sa.Components {
			o.create(ctx, t, store.SkillComponent, fmt.Sprintf("skill_analysis.components[%d]", i), ref, store.Data{
				"name":                     c.Name,
				"description":              c.Description,
				"difficulty_level":         string(c.Difficulty),
				"prerequisites":            c.Prerequisites,
				"estimated_learning_hours": c.EstimatedHours,
				"practical_applications":   c.PracticalApplications,
				"order":                    c.Order,
			})
		}
	}

	if pa := plan.PedagogicalAnalysis; pa != nil {
		paID := o.create(ctx, t, store.PedagogicalAnalysis, "pedagogical_analysis", root, store.Data{
			"effectiveness_score":       pa.EffectivenessScore,
			"engagement_potential":      pa.EngagementPotential,
			"cognitive_load_assessment": pa.CognitiveLoadAssessment,
			"scaffolding_quality":       pa.ScaffoldingQuality,
			"recommendations":           pa.Recommendations,
			"assessment_strategies":     pa.AssessmentStrategies,
			"improvement_areas":         pa.ImprovementAreas,
			"generated_by":              pa.GeneratedBy,
		})
		ref := &parent{entity: store.PedagogicalAnalysis, key: "pedagogical_analysis_id", id: paID}
		for i, obj := range pa.Objectives {
			o.create(ctx, t, store.LearningObjective, fmt.Sprintf("pedagogical_analysis.objectives[%d]", i), ref, store.Data{
				"objective":  obj.Text,
				"measurable": obj.Measurable,
				"timeframe":  obj.Timeframe,
				"order":      obj.Order,
			})
		}
	}

	for i, section := range plan.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		sectionID := o.create(ctx, t, store.PlanSection, path, root, store.Data{
			"title":       section.Title,
			"description": section.Description,
			"order":       section.Order,
		})
		ref := &parent{entity: store.PlanSection, key: "section_id", id: sectionID}
		for j, day := range section.Days {
			o.create(ctx, t, store.DayContent, fmt.Sprintf("%s.days[%d]", path, j), ref, store.Data{
				"plan_id":           planID,
				"day_number":        day.DayNumber,
				"title":             day.Title,
				"focus_area":        day.FocusArea,
				"is_action_day":     day.IsActionDay,
				"objectives":        day.Objectives,
				"completion_status": string(day.CompletionStatus),
				"order":             day.Order,
			})
		}
	}

	return o.finish("plan", t, planID), nil
}
