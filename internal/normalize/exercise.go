package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
)

var (
	typeShape = Shape{Required("type", "block_type", "kind")}

	mcqShape = Shape{
		Required("question", "prompt"),
		Required("options", "choices"),
		Required("answer", "correct_answer", "correctAnswer", "correct_index", "correctIndex"),
		Optional("explanation"),
		Optional("xp"),
	}

	trueFalseShape = Shape{
		Required("statement", "question", "prompt"),
		Required("answer", "correct_answer", "correctAnswer", "is_true", "isTrue"),
		Optional("explanation"),
		Optional("xp"),
	}

	matchShape = Shape{
		Optional("pairs"),
		Optional("left_items"),
		Optional("right_items"),
		Optional("answer"),
		Optional("xp"),
	}

	pairShape = Shape{
		Required("term", "prompt", "left"),
		Required("meaning", "definition", "right", "correct_answer", "correctAnswer"),
	}

	scenarioShape = Shape{
		Required("scenario", "context"),
		Required("question", "prompt"),
		Required("options", "choices"),
		Required("answer", "correct_answer", "correctAnswer", "correct_index", "correctIndex"),
		Optional("explanation"),
		Optional("xp"),
	}
)

// Drop records an exercise removed from a day during normalization.
type Drop struct {
	Index int
	Type  string
	Err   error
}

// Normalizer converts raw exercise objects into canonical exercises.
type Normalizer struct {
	rules Rules
}

// NewNormalizer creates an exercise normalizer using rules for defaults.
func NewNormalizer(rules Rules) *Normalizer {
	return &Normalizer{rules: rules}
}

// Exercises normalizes a raw exercise list. Exercises that fail are dropped
// and reported; they never fail the list as a whole.
func (n *Normalizer) Exercises(raw []any) ([]content.ExerciseBlock, []Drop) {
	blocks := make([]content.ExerciseBlock, 0, len(raw))
	var drops []Drop

	for i, item := range raw {
		path := fmt.Sprintf("exercises[%d]", i)

		obj, ok := objectFromAny(item)
		if !ok {
			err := fmt.Errorf("%s: %w", path, content.ErrInvalidPayload)
			drops = append(drops, Drop{Index: i, Err: err})
			slog.Warn("dropping exercise", "index", i, "error", err)
			continue
		}

		ex, err := n.ExerciseAt(path, obj)
		if err != nil {
			tag := stringFromAny(obj["type"])
			drops = append(drops, Drop{Index: i, Type: tag, Err: err})
			slog.Warn("dropping exercise", "index", i, "type", tag, "error", err)
			continue
		}

		blocks = append(blocks, content.ExerciseBlock{Order: len(blocks) + 1, Exercise: ex})
	}

	return blocks, drops
}

// Exercise normalizes a single raw exercise object.
func (n *Normalizer) Exercise(raw map[string]any) (content.Exercise, error) {
	return n.ExerciseAt("", raw)
}

// ExerciseAt is Exercise with error paths prefixed by path.
func (n *Normalizer) ExerciseAt(path string, raw map[string]any) (content.Exercise, error) {
	head, err := typeShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}

	tag := head.String("type")
	kind, ok := KindFromTag(tag)
	if !ok {
		return nil, fmt.Errorf("%s: unknown exercise type %q", joinPath(path, "type"), tag)
	}

	switch kind {
	case content.KindQuizMCQ:
		return n.quizMCQ(path, raw)
	case content.KindTrueFalse:
		return n.trueFalse(path, raw)
	case content.KindMatchMeaning:
		return n.matchMeaning(path, raw)
	case content.KindScenarioQuiz:
		return n.scenarioQuiz(path, raw)
	}
	return nil, fmt.Errorf("%s: unhandled exercise kind %q", path, kind)
}

// KindFromTag maps a type discriminator, including legacy spellings, onto a kind.
func KindFromTag(tag string) (content.ExerciseKind, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "quiz_mcq", "mcq", "multiple_choice":
		return content.KindQuizMCQ, true
	case "quiz_truefalse", "quiz_tf", "true_false", "truefalse":
		return content.KindTrueFalse, true
	case "match_meaning", "matching_pairs", "match_to_meaning":
		return content.KindMatchMeaning, true
	case "scenario_quiz", "scenario_mcq":
		return content.KindScenarioQuiz, true
	}
	return "", false
}

func (n *Normalizer) quizMCQ(path string, raw map[string]any) (content.Exercise, error) {
	rec, err := mcqShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}
	options, err := n.options(path, rec.Raw("options"))
	if err != nil {
		return nil, err
	}
	answer, err := ResolveIndex(rec.Raw("answer"), options)
	if err != nil {
		return nil, err
	}
	return &content.QuizMCQ{
		Question:    rec.String("question"),
		Options:     options,
		Answer:      answer,
		Explanation: rec.StringOr("explanation", indexExplanation(options, answer)),
		XP:          positiveOr(rec.Int("xp", 0), n.rules.XP.QuizMCQ),
	}, nil
}

func (n *Normalizer) trueFalse(path string, raw map[string]any) (content.Exercise, error) {
	rec, err := trueFalseShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}
	answer, err := ResolveBool(rec.Raw("answer"))
	if err != nil {
		return nil, err
	}
	return &content.TrueFalse{
		Statement:   rec.String("statement"),
		Answer:      answer,
		Explanation: rec.StringOr("explanation", fmt.Sprintf("The statement is %t.", answer)),
		XP:          positiveOr(rec.Int("xp", 0), n.rules.XP.TrueFalse),
	}, nil
}

func (n *Normalizer) matchMeaning(path string, raw map[string]any) (content.Exercise, error) {
	rec, err := matchShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}

	var pairs []content.MatchPair
	switch {
	case rec.Has("pairs"):
		pairs, err = n.pairs(path, rec)
	case rec.Has("left_items") && rec.Has("right_items"):
		pairs, err = n.pairsFromColumns(path, rec)
	default:
		err = &content.MissingFieldError{Field: joinPath(path, "pairs")}
	}
	if err != nil {
		return nil, err
	}

	if len(pairs) < n.rules.MinPairs {
		return nil, fmt.Errorf("%s: need at least %d pairs, got %d", joinPath(path, "pairs"), n.rules.MinPairs, len(pairs))
	}
	return &content.MatchMeaning{
		Pairs: pairs,
		XP:    positiveOr(rec.Int("xp", 0), n.rules.XP.MatchMeaning),
	}, nil
}

func (n *Normalizer) pairs(path string, rec Record) ([]content.MatchPair, error) {
	items := rec.Items("pairs")
	pairs := make([]content.MatchPair, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", joinPath(path, "pairs"), i)
		obj, ok := objectFromAny(item)
		if !ok {
			return nil, fmt.Errorf("%s: %w", itemPath, content.ErrInvalidPayload)
		}
		p, err := pairShape.ReconcileAt(itemPath, obj)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, content.MatchPair{
			Term:    p.String("term"),
			Meaning: p.String("meaning"),
			Order:   len(pairs) + 1,
		})
	}
	return pairs, nil
}

// pairsFromColumns reads the two-column layout where answer[i] indexes the
// right item matching left item i.
func (n *Normalizer) pairsFromColumns(path string, rec Record) ([]content.MatchPair, error) {
	left := rec.Strings("left_items")
	right := rec.Strings("right_items")
	if len(left) != len(right) {
		return nil, fmt.Errorf("%s: %d left items but %d right items", path, len(left), len(right))
	}

	links, _ := rec.Raw("answer").([]any)
	if links == nil {
		return nil, &content.MissingFieldError{Field: joinPath(path, "answer")}
	}
	if len(links) != len(left) {
		return nil, fmt.Errorf("%s: %d answers for %d items", joinPath(path, "answer"), len(links), len(left))
	}

	pairs := make([]content.MatchPair, 0, len(left))
	for i, term := range left {
		j, err := ResolveIndex(links[i], right)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, content.MatchPair{Term: term, Meaning: right[j], Order: i + 1})
	}
	return pairs, nil
}

func (n *Normalizer) scenarioQuiz(path string, raw map[string]any) (content.Exercise, error) {
	rec, err := scenarioShape.ReconcileAt(path, raw)
	if err != nil {
		return nil, err
	}
	options, err := n.options(path, rec.Raw("options"))
	if err != nil {
		return nil, err
	}
	answer, err := ResolveIndex(rec.Raw("answer"), options)
	if err != nil {
		return nil, err
	}
	return &content.ScenarioQuiz{
		Scenario:    rec.String("scenario"),
		Question:    rec.String("question"),
		Options:     options,
		Answer:      answer,
		Explanation: rec.StringOr("explanation", indexExplanation(options, answer)),
		XP:          positiveOr(rec.Int("xp", 0), n.rules.XP.ScenarioQuiz),
	}, nil
}

// options reads an option list. Options may be plain strings or objects with
// a text field; a blank option fails the exercise rather than shifting indexes.
func (n *Normalizer) options(path string, v any) ([]string, error) {
	field := joinPath(path, "options")
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list", field)
	}
	options := make([]string, 0, len(items))
	for i, item := range items {
		var text string
		if obj, isObj := objectFromAny(item); isObj {
			text = stringFromAny(firstPresent(obj, "text", "option_text", "optionText", "label"))
		} else {
			text = stringFromAny(item)
		}
		if text == "" {
			return nil, fmt.Errorf("%s[%d]: empty option", field, i)
		}
		options = append(options, text)
	}
	if len(options) < n.rules.MinOptions {
		return nil, fmt.Errorf("%s: need at least %d options, got %d", field, n.rules.MinOptions, len(options))
	}
	return options, nil
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func indexExplanation(options []string, answer int) string {
	return fmt.Sprintf("The correct answer is %q.", options[answer])
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
