// Package content defines the canonical, alias-free learning content graph produced by
// normalization and consumed by persistence.
package content

// Level is a target or difficulty tier.
type Level string

const (
	LevelBeginner     Level = "BEGINNER"
	LevelIntermediate Level = "INTERMEDIATE"
	LevelAdvanced     Level = "ADVANCED"
)

// CompletionStatus tracks a learner's progress through a day.
type CompletionStatus string

const (
	StatusNotStarted CompletionStatus = "NOT_STARTED"
	StatusInProgress CompletionStatus = "IN_PROGRESS"
	StatusCompleted  CompletionStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// SkillCategory classifies a skill.
type SkillCategory string

const (
	CategoryTechnical      SkillCategory = "TECHNICAL"
	CategorySoftSkill      SkillCategory = "SOFT_SKILL"
	CategoryCreative       SkillCategory = "CREATIVE"
	CategoryBusiness       SkillCategory = "BUSINESS"
	CategoryAcademic       SkillCategory = "ACADEMIC"
	CategoryLanguage       SkillCategory = "LANGUAGE"
	CategoryHealthWellness SkillCategory = "HEALTH_WELLNESS"
	CategoryHobby          SkillCategory = "HOBBY"
	CategoryOther          SkillCategory = "OTHER"
)

// MarketDemand is the market-demand tier of a skill.
type MarketDemand string

const (
	DemandHigh     MarketDemand = "HIGH"
	DemandMedium   MarketDemand = "MEDIUM"
	DemandLow      MarketDemand = "LOW"
	DemandNiche    MarketDemand = "NICHE"
	DemandEmerging MarketDemand = "EMERGING"
	DemandUnknown  MarketDemand = "UNKNOWN"
)

// LearningPlan is the root of a generated plan.
type LearningPlan struct {
	SkillName           string
	GeneratedBy         string
	DurationWeeks       int
	DailyMinutes        int
	TargetLevel         Level
	Milestones          []string
	ProgressMetrics     []string
	FlexibilityOptions  []string
	Sections            []PlanSection
	SkillAnalysis       *SkillAnalysis
	PedagogicalAnalysis *PedagogicalAnalysis
}

// TotalDays counts the days across all sections.
func (p *LearningPlan) TotalDays() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Days)
	}
	return n
}

// PlanSection groups consecutive days of a plan.
type PlanSection struct {
	Title       string
	Description string
	Order       int
	Days        []DayOutline
}

// DayOutline is the per-day skeleton emitted with a plan, before the day's
// detail is generated.
type DayOutline struct {
	DayNumber        int
	Title            string
	FocusArea        string
	IsActionDay      bool
	Objectives       []string
	CompletionStatus CompletionStatus
	Order            int
}

// DayContent is one day's generated material. Exactly one of MainContent and
// ActionTask is set once the day has been fully assembled.
type DayContent struct {
	DayNumber        int
	Title            string
	FocusArea        string
	IsActionDay      bool
	Objectives       []string
	CompletionStatus CompletionStatus
	MainContent      *MainContent
	Exercises        []ExerciseBlock
	ActionTask       *ActionTask
	TotalXP          int
	EstimatedTime    string
}

// RecomputeXP sets TotalXP from the day's parts, ignoring whatever the generator guessed.
func (d *DayContent) RecomputeXP() {
	total := 0
	if d.MainContent != nil {
		total += d.MainContent.XP
	}
	for _, b := range d.Exercises {
		total += b.Exercise.XPReward()
	}
	if d.ActionTask != nil {
		total += d.ActionTask.XP
	}
	d.TotalXP = total
}

// MainContent is the lesson body of a non-action day.
type MainContent struct {
	Title       string
	TextContent string
	FunFact     string
	KeyConcepts []KeyConcept
	XP          int
}

// KeyConcept is a term and its definition.
type KeyConcept struct {
	Term       string
	Definition string
	Order      int
}

// ActionTask is the practical challenge of an action day.
type ActionTask struct {
	Title                string
	ChallengeDescription string
	Steps                []ActionStep
	TimeEstimate         string
	Tips                 []string
	RealWorldContext     string
	SuccessCriteria      []string
	Motivation           string
	DifficultyAdaptation string
	XP                   int
	Deliverables         []Deliverable
}

// ActionStep is one instruction of an action task.
type ActionStep struct {
	Instruction string
	Order       int
}

// Deliverable is something the learner produces for an action task.
type Deliverable struct {
	Description string
	Type        string
	Order       int
}

// SkillAnalysis is the generator's breakdown of a skill.
type SkillAnalysis struct {
	SkillName                  string
	Category                   SkillCategory
	MarketDemand               MarketDemand
	IsValid                    bool
	ViabilityReason            string
	LearningPathRecommendation string
	RealWorldApplications      []string
	ComplementarySkills        []string
	GeneratedBy                string
	Components                 []SkillComponent
}

// SkillComponent is one sub-skill of a SkillAnalysis.
type SkillComponent struct {
	Name                  string
	Description           string
	Difficulty            Level
	Prerequisites         []string
	EstimatedHours        int
	PracticalApplications []string
	Order                 int
}

// PedagogicalAnalysis is the generator's assessment of a plan's teaching quality.
type PedagogicalAnalysis struct {
	EffectivenessScore      float64
	EngagementPotential     float64
	CognitiveLoadAssessment string
	ScaffoldingQuality      string
	Recommendations         []string
	AssessmentStrategies    []string
	ImprovementAreas        []string
	GeneratedBy             string
	Objectives              []LearningObjective
}

// LearningObjective is a measurable goal attached to a pedagogical analysis.
type LearningObjective struct {
	Text       string
	Measurable bool
	Timeframe  string
	Order      int
}
