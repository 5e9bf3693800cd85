package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	essayCompetencies  = 5
	maxCompetencyScore = 200
	MaxEssayScore      = essayCompetencies * maxCompetencyScore

	essayFallbackFeedback = "Your essay could not be graded right now. Please try again later."
)

type EssayRequest struct {
	Topic      string `json:"topic" validate:"required,max=500"`
	Essay      string `json:"essay" validate:"required,min=100,max=20000"`
	GradeLevel string `json:"grade_level" validate:"max=50"`
}

func (er *EssayRequest) Validate(validate *validator.Validate) error {
	er.Topic = core.CleanString(er.Topic)
	er.Essay = strings.TrimSpace(er.Essay)
	er.GradeLevel = core.CleanString(er.GradeLevel)
	return validate.Struct(er)
}

type Competency struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type EssayResult struct {
	Competencies []Competency `json:"competencies"`
	Total        int          `json:"total"`
	Feedback     string       `json:"feedback"`
	Strengths    []string     `json:"strengths"`
	Improvements []string     `json:"improvements"`
}

// EssayGrade is a stored essay grading.
type EssayGrade struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Topic     string      `json:"topic" db:"topic"`
	Essay     string      `json:"essay" db:"essay"`
	Result    EssayResult `json:"result" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// EssayGrading is returned by the essay grading endpoint. Grade is nil when the fallback was used.
type EssayGrading struct {
	Grade    *EssayGrade `json:"grade"`
	Result   EssayResult `json:"result"`
	Fallback bool        `json:"fallback"`
}

var essayFlow = flowDef[EssayRequest, EssayResult]{
	name: "essay-grading",
	system: fmt.Sprintf(`You are an experienced essay examiner.
Grade argumentative essays on %d competencies, each scored from 0 to %d in steps of 40:
1. command of the formal written language;
2. understanding of the topic and of the argumentative text structure;
3. selection and organization of arguments;
4. use of cohesive devices;
5. a detailed intervention proposal respecting human rights.
Be rigorous and fair. Write the feedback in the language of the essay.
Reply with a JSON object: {"competencies": [{"name": string, "score": int, "comment": string}], "total": int, "feedback": string, "strengths": [string], "improvements": [string]}.`,
		essayCompetencies, maxCompetencyScore),
	prompt: `Topic: {{.Topic}}
{{with .GradeLevel}}Grade level: {{.}}
{{end}}Essay:
"""
{{.Essay}}
"""`,
	check: checkEssayResult,
	fallback: func(EssayRequest) EssayResult {
		return EssayResult{
			Competencies: []Competency{},
			Feedback:     essayFallbackFeedback,
			Strengths:    []string{},
			Improvements: []string{},
		}
	},
}

// checkEssayResult rejects malformed gradings and recomputes the total from the competencies.
func checkEssayResult(_ EssayRequest, out *EssayResult) error {
	if len(out.Competencies) != essayCompetencies {
		return errors.Errorf("expected %d competencies, got %d", essayCompetencies, len(out.Competencies))
	}
	total := 0
	for i, c := range out.Competencies {
		if c.Score < 0 || c.Score > maxCompetencyScore {
			return errors.Errorf("competency %d: score %d out of range", i+1, c.Score)
		}
		total += c.Score
	}
	out.Total = total
	out.Feedback = strings.TrimSpace(out.Feedback)
	if out.Feedback == "" {
		return errors.New("empty feedback")
	}
	if out.Strengths = core.CleanStrings(out.Strengths); out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Improvements = core.CleanStrings(out.Improvements); out.Improvements == nil {
		out.Improvements = []string{}
	}
	return nil
}
