package content

// ExerciseKind is the type discriminator of an exercise block.
type ExerciseKind string

const (
	KindQuizMCQ      ExerciseKind = "quiz_mcq"
	KindTrueFalse    ExerciseKind = "quiz_truefalse"
	KindMatchMeaning ExerciseKind = "match_meaning"
	KindScenarioQuiz ExerciseKind = "scenario_quiz"
)

// Exercise is the closed set of exercise shapes. Only the four types in this
// file implement it.
type Exercise interface {
	Kind() ExerciseKind
	XPReward() int
	// Prompt is the text shown as the block title.
	Prompt() string
	exercise()
}

// ExerciseBlock places an exercise within a day.
type ExerciseBlock struct {
	Order    int
	Exercise Exercise
}

// QuizMCQ is a multiple-choice question with a 0-based answer index.
type QuizMCQ struct {
	Question    string
	Options     []string
	Answer      int
	Explanation string
	XP          int
}

func (q *QuizMCQ) Kind() ExerciseKind { return KindQuizMCQ }
func (q *QuizMCQ) XPReward() int { return q.XP }
func (q *QuizMCQ) Prompt() string { return q.Question }
func (*QuizMCQ) exercise() {}

// TrueFalse is a statement the learner marks true or false.
type TrueFalse struct {
	Statement   string
	Answer      bool
	Explanation string
	XP          int
}

func (q *TrueFalse) Kind() ExerciseKind { return KindTrueFalse }
func (q *TrueFalse) XPReward() int { return q.XP }
func (q *TrueFalse) Prompt() string { return q.Statement }
func (*TrueFalse) exercise() {}

// MatchPair is one term/meaning pairing.
type MatchPair struct {
	Term    string
	Meaning string
	Order   int
}

// MatchMeaning asks the learner to match terms to meanings.
type MatchMeaning struct {
	Pairs []MatchPair
	XP    int
}

func (m *MatchMeaning) Kind() ExerciseKind { return KindMatchMeaning }
func (m *MatchMeaning) XPReward() int { return m.XP }
func (m *MatchMeaning) Prompt() string { return "Match each term to its meaning" }
func (*MatchMeaning) exercise() {}

// ScenarioQuiz is a multiple-choice question framed by a scenario.
type ScenarioQuiz struct {
	Scenario    string
	Question    string
	Options     []string
	Answer      int
	Explanation string
	XP          int
}

func (q *ScenarioQuiz) Kind() ExerciseKind { return KindScenarioQuiz }
func (q *ScenarioQuiz) XPReward() int { return q.XP }
func (q *ScenarioQuiz) Prompt() string { return q.Question }
func (*ScenarioQuiz) exercise() {}
