// Package store persists content entities as generic JSON documents keyed
// by entity name and id.
package store

import (
	"context"
	"errors"
	"time"
)

// Entity names one kind of persisted row.
type Entity string

const (
	LearningPlan        Entity = "learning_plan"
	SkillAnalysis       Entity = "skill_analysis"
	SkillComponent      Entity = "skill_component"
	PedagogicalAnalysis Entity = "pedagogical_analysis"
	LearningObjective   Entity = "learning_objective"
	PlanSection         Entity = "plan_section"
	DayContent          Entity = "day_content"
	MainContent         Entity = "main_content"
	KeyConcept          Entity = "key_concept"
	ActionTask          Entity = "action_task"
	ActionStep          Entity = "action_step"
	Deliverable         Entity = "deliverable"
	QuizQuestion        Entity = "quiz_question"
	QuizOption          Entity = "quiz_option"
	ExerciseDetail      Entity = "exercise_detail"
	MatchPair           Entity = "match_pair"
	ContentBlock        Entity = "content_block"
	User                Entity = "user"
)

// ErrNotFound is returned by Get when no row matches.
var ErrNotFound = errors.New("entity not found")

// Data is the payload of one row.
type Data map[string]any

// Row is a stored entity.
type Row struct {
	ID        string
	Entity    Entity
	Data      Data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the object store the saga writes through. Calls are independent;
// no backend offers multi-call transactions.
type Store interface {
	// Create inserts a row and returns its generated id.
	Create(ctx context.Context, entity Entity, data Data) (string, error)
	// Update merges data into an existing row. It reports false when no row
	// has that id.
	Update(ctx context.Context, entity Entity, id string, data Data) (bool, error)
	Get(ctx context.Context, entity Entity, id string) (*Row, error)
	// Find returns rows whose field equals value, oldest first. It matches
	// string and integer fields.
	Find(ctx context.Context, entity Entity, field, value string) ([]Row, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

func cloneData(d Data) Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
