package normalize

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
)

var (
	skillAnalysisShape = Shape{
		Optional("skill_name", "skill"),
		Optional("skill_category", "category"),
		Optional("market_demand"),
		Required("is_skill_valid", "is_valid", "valid"),
		Optional("viability_reason"),
		Optional("learning_path_recommendation"),
		Optional("real_world_applications"),
		Optional("complementary_skills"),
		Optional("generated_by"),
		Optional("components"),
	}

	componentShape = Shape{
		Required("name"),
		Optional("description"),
		Optional("difficulty_level", "difficulty"),
		Optional("prerequisites_text", "prerequisites"),
		Optional("estimated_learning_hours", "estimated_hours"),
		Optional("practical_applications"),
	}

	pedagogyShape = Shape{
		Optional("effectiveness_score"),
		Optional("engagement_potential"),
		Optional("cognitive_load_assessment"),
		Optional("scaffolding_quality"),
		Optional("recommendations"),
		Optional("assessment_strategies"),
		Optional("improvement_areas"),
		Optional("generated_by"),
		Optional("objectives"),
	}

	objectiveShape = Shape{
		Required("objective", "text"),
		Optional("measurable"),
		Optional("timeframe"),
	}
)

// SkillAnalysis decodes a standalone skill analysis payload.
func (d *Decoder) SkillAnalysis(data []byte) (*content.SkillAnalysis, error) {
	raw, err := analysisEnvelope.decode(data)
	if err != nil {
		return nil, err
	}
	return d.SkillAnalysisObject("", raw)
}

// SkillAnalysisObject decodes an already parsed skill analysis rooted at path.
func (d *Decoder) SkillAnalysisObject(path string, raw map[string]any) (*content.SkillAnalysis, error) {
	rec, err := skillAnalysisShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}
	valid, ok := rec.Bool("is_skill_valid")
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a boolean", content.ErrInvalidPayload, joinPath(path, "is_skill_valid"))
	}

	sa := &content.SkillAnalysis{
		SkillName:                  rec.String("skill_name"),
		Category:                   ParseCategory(rec.String("skill_category")),
		MarketDemand:               ParseDemand(rec.String("market_demand")),
		IsValid:                    valid,
		ViabilityReason:            rec.String("viability_reason"),
		LearningPathRecommendation: rec.String("learning_path_recommendation"),
		RealWorldApplications:      rec.Strings("real_world_applications"),
		ComplementarySkills:        rec.Strings("complementary_skills"),
		GeneratedBy:                rec.StringOr("generated_by", "LLM_SERVICE"),
	}

	for i, obj := range rec.Objects("components") {
		c, err := componentShape.ReconcileAt(fmt.Sprintf("%s[%d]", joinPath(path, "components"), i), obj)
		if err != nil {
			return nil, err
		}
		sa.Components = append(sa.Components, content.SkillComponent{
			Name:                  c.String("name"),
			Description:           c.String("description"),
			Difficulty:            ParseLevel(c.String("difficulty_level")),
			Prerequisites:         c.Strings("prerequisites_text"),
			EstimatedHours:        max(c.Int("estimated_learning_hours", 1), 1),
			PracticalApplications: c.Strings("practical_applications"),
			Order:                 len(sa.Components) + 1,
		})
	}
	return sa, nil
}

// Pedagogy decodes a standalone pedagogical analysis payload.
func (d *Decoder) Pedagogy(data []byte) (*content.PedagogicalAnalysis, error) {
	raw, err := analysisEnvelope.decode(data)
	if err != nil {
		return nil, err
	}
	return d.PedagogyObject("", raw)
}

// PedagogyObject decodes an already parsed pedagogical analysis rooted at path.
func (d *Decoder) PedagogyObject(path string, raw map[string]any) (*content.PedagogicalAnalysis, error) {
	rec, err := pedagogyShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}

	pa := &content.PedagogicalAnalysis{
		EffectivenessScore:      clamp(rec.Float("effectiveness_score", 0), 0, 10),
		EngagementPotential:     clamp(rec.Float("engagement_potential", 0), 0, 1),
		CognitiveLoadAssessment: rec.String("cognitive_load_assessment"),
		ScaffoldingQuality:      rec.String("scaffolding_quality"),
		Recommendations:         rec.Strings("recommendations"),
		AssessmentStrategies:    rec.Strings("assessment_strategies"),
		ImprovementAreas:        rec.Strings("improvement_areas"),
		GeneratedBy:             rec.StringOr("generated_by", "LLM_SERVICE"),
	}

	for i, obj := range rec.Objects("objectives") {
		o, err := objectiveShape.ReconcileAt(fmt.Sprintf("%s[%d]", joinPath(path, "objectives"), i), obj)
		if err != nil {
			return nil, err
		}
		measurable, _ := o.Bool("measurable")
		pa.Objectives = append(pa.Objectives, content.LearningObjective{
			Text:       o.String("objective"),
			Measurable: measurable,
			Timeframe:  o.String("timeframe"),
			Order:      len(pa.Objectives) + 1,
		})
	}
	return pa, nil
}

// ParseCategory maps a raw category, including lowercase and legacy names,
// onto a known one. Unknown values map to OTHER.
func ParseCategory(s string) content.SkillCategory {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	switch c := content.SkillCategory(key); c {
	case content.CategoryTechnical, content.CategorySoftSkill, content.CategoryCreative,
		content.CategoryBusiness, content.CategoryAcademic, content.CategoryLanguage,
		content.CategoryHealthWellness, content.CategoryHobby:
		return c
	}
	switch key {
	case "PERSONAL", "PERSONAL_DEVELOPMENT":
		return content.CategorySoftSkill
	case "HEALTH", "WELLNESS":
		return content.CategoryHealthWellness
	}
	return content.CategoryOther
}

// ParseDemand maps a raw market-demand tier onto a known one. Unknown values
// map to UNKNOWN.
func ParseDemand(s string) content.MarketDemand {
	key := strings.ToUpper(strings.TrimSpace(s))
	switch d := content.MarketDemand(key); d {
	case content.DemandHigh, content.DemandMedium, content.DemandLow,
		content.DemandNiche, content.DemandEmerging:
		return d
	}
	switch key {
	case "ALTA":
		return content.DemandHigh
	case "MEDIA":
		return content.DemandMedium
	case "BAJA":
		return content.DemandLow
	}
	return content.DemandUnknown
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
