package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/store"
)

// PersistDay writes a generated day under an existing day_content row:
// the day summary, then main content and key concepts or the action task
// with its steps and deliverables, then each exercise as a detail row
// followed by the content block that points at it.
func (o *Orchestrator) PersistDay(ctx context.Context, dayID string, day *content.DayContent) (Result, error) {
	t := NewTracker(o.metrics)
	if day == nil {
		return t.Result(dayID), fmt.Errorf("persist day: %w", content.ErrInvalidPayload)
	}
	if dayID == "" {
		return t.Result(""), &content.MissingDependencyError{Entity: string(store.MainContent), Parent: string(store.DayContent)}
	}

	o.update(ctx, t, store.DayContent, dayID, store.Data{
		"title":          day.Title,
		"focus_area":     day.FocusArea,
		"objectives":     day.Objectives,
		"total_xp":       day.TotalXP,
		"estimated_time": day.EstimatedTime,
	})
	root := &parent{entity: store.DayContent, key: "day_id", id: dayID}

	if mc := day.MainContent; mc != nil {
		mcID := o.create(ctx, t, store.MainContent, "main_content", root, store.Data{
			"title":        mc.Title,
			"text_content": mc.TextContent,
			"fun_fact":     mc.FunFact,
			"xp":           mc.XP,
		})
		ref := &parent{entity: store.MainContent, key: "main_content_id", id: mcID}
		for i, kc := range mc.KeyConcepts {
			o.create(ctx, t, store.KeyConcept, fmt.Sprintf("main_content.key_concepts[%d]", i), ref, store.Data{
				"term":       kc.Term,
				"definition": kc.Definition,
				"order":      kc.Order,
			})
		}
	}

	if task := day.ActionTask; task != nil {
		o.persistActionTask(ctx, t, root, task)
	}

	for i, block := range day.Exercises {
		o.persistExercise(ctx, t, root, fmt.Sprintf("exercises[%d]", i), i, block)
	}

	return o.finish("day", t, dayID), nil
}

func (o *Orchestrator) persistActionTask(ctx context.Context, t *Tracker, root *parent, task *content.ActionTask) {
	taskID := o.create(ctx, t, store.ActionTask, "action_task", root, store.Data{
		"title":                 task.Title,
		"challenge_description": task.ChallengeDescription,
		"time_estimate":         task.TimeEstimate,
		"tips":                  task.Tips,
		"real_world_context":    task.RealWorldContext,
		"success_criteria":      task.SuccessCriteria,
		"motivation":            task.Motivation,
		"difficulty_adaptation": task.DifficultyAdaptation,
		"xp":                    task.XP,
	})
	ref := &parent{entity: store.ActionTask, key: "action_task_id", id: taskID}
	for i, step := range task.Steps {
		o.create(ctx, t, store.ActionStep, fmt.Sprintf("action_task.steps[%d]", i), ref, store.Data{
			"instruction": step.Instruction,
			"order":       step.Order,
		})
	}
	for i, d := range task.Deliverables {
		o.create(ctx, t, store.Deliverable, fmt.Sprintf("action_task.deliverables[%d]", i), ref, store.Data{
			"description": d.Description,
			"type":        d.Type,
			"order":       d.Order,
		})
	}
}

// persistExercise writes the detail row for one exercise and then the
// content block referencing it. A failed detail skips the block.
func (o *Orchestrator) persistExercise(ctx context.Context, t *Tracker, root *parent, path string, index int, block content.ExerciseBlock) {
	ex := block.Exercise
	if ex == nil {
		return
	}

	var detail *parent
	switch e := ex.(type) {
	case *content.QuizMCQ:
		detail = o.persistQuiz(ctx, t, root, path, ex, e.Question, e.Options, e.Answer, e.Explanation)
	case *content.TrueFalse:
		answer := 1
		if e.Answer {
			answer = 0
		}
		detail = o.persistQuiz(ctx, t, root, path, ex, e.Statement, []string{"True", "False"}, answer, e.Explanation)
	case *content.ScenarioQuiz:
		id := o.create(ctx, t, store.ExerciseDetail, path, root, store.Data{
			"exercise_type":  string(ex.Kind()),
			"scenario":       e.Scenario,
			"question":       e.Question,
			"options":        e.Options,
			"correct_answer": e.Answer,
			"explanation":    e.Explanation,
			"xp":             e.XP,
		})
		detail = &parent{entity: store.ExerciseDetail, key: "detail_id", id: id}
	case *content.MatchMeaning:
		id := o.create(ctx, t, store.ExerciseDetail, path, root, store.Data{
			"exercise_type": string(ex.Kind()),
			"prompt":        e.Prompt(),
			"xp":            e.XP,
		})
		ref := &parent{entity: store.ExerciseDetail, key: "exercise_detail_id", id: id}
		for j, pair := range e.Pairs {
			o.create(ctx, t, store.MatchPair, fmt.Sprintf("%s.pairs[%d]", path, j), ref, store.Data{
				"term":    pair.Term,
				"meaning": pair.Meaning,
				"order":   pair.Order,
			})
		}
		detail = &parent{entity: store.ExerciseDetail, key: "detail_id", id: id}
	default:
		return
	}

	data := store.Data{
		"block_type":    strings.ToUpper(string(ex.Kind())),
		"order":         index + 1,
		"xp":            ex.XPReward(),
		"detail_entity": string(detail.entity),
		"day_id":        root.id,
	}
	o.create(ctx, t, store.ContentBlock, path+".block", detail, data)
}

func (o *Orchestrator) persistQuiz(ctx context.Context, t *Tracker, root *parent, path string, ex content.Exercise, question string, options []string, answer int, explanation string) *parent {
	id := o.create(ctx, t, store.QuizQuestion, path, root, store.Data{
		"question_type":  string(ex.Kind()),
		"question":       question,
		"correct_answer": answer,
		"explanation":    explanation,
		"xp":             ex.XPReward(),
	})
	ref := &parent{entity: store.QuizQuestion, key: "quiz_question_id", id: id}
	for j, text := range options {
		o.create(ctx, t, store.QuizOption, fmt.Sprintf("%s.options[%d]", path, j), ref, store.Data{
			"option_text": text,
			"is_correct":  j == answer,
			"order":       j + 1,
		})
	}
	return &parent{entity: store.QuizQuestion, key: "detail_id", id: id}
}
