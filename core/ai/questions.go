package ai

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/exam"
)

const questionsUnavailable = "question generation is unavailable right now"

type QuestionsRequest struct {
	Topic      string `json:"topic" validate:"required,max=500"`
	Count      int    `json:"count" validate:"min=1,max=20"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Language   string `json:"language" validate:"max=30"`
}

func (qr *QuestionsRequest) Validate(validate *validator.Validate) error {
	qr.Topic = core.CleanString(qr.Topic)
	qr.Difficulty = core.CleanString(qr.Difficulty, true /* lower */)
	qr.Language = core.CleanString(qr.Language)
	if qr.Count == 0 {
		qr.Count = 5
	}
	if qr.Difficulty == "" {
		qr.Difficulty = "medium"
	}
	return validate.Struct(qr)
}

// GeneratedQuestions holds the exam text written by the model along with its parsing.
// The text can be reviewed and sent to the exam import endpoint.
type GeneratedQuestions struct {
	Text      string                `json:"text"`
	Questions []exam.ParsedQuestion `json:"questions"`
	Errors    []string              `json:"errors"`
	Fallback  bool                  `json:"fallback"`
}

var questionsFlow = flowDef[QuestionsRequest, GeneratedQuestions]{
	name: "question-generation",
	system: `You write multiple choice exam questions for secondary school students.
Write only the questions, in this exact plain text format, with no markdown:

1. Statement of the question
A) first option
B) second option
C) third option
D) fourth option
Answer: B

Number the questions from 1, give 4 or 5 options lettered from A, and exactly one correct answer per question.`,
	prompt: `Write {{.Count}} {{.Difficulty}} questions about: {{.Topic}}{{with .Language}}
Language: {{.}}{{end}}`,
	text: true,
	decode: func(raw string) (GeneratedQuestions, error) {
		raw = stripCodeFence(raw)
		parsed := exam.ParseExamText(raw)
		return GeneratedQuestions{Text: raw, Questions: parsed.Questions, Errors: parsed.Errors}, nil
	},
	check: func(_ QuestionsRequest, out *GeneratedQuestions) error {
		if len(out.Questions) == 0 {
			return errors.New("no valid question generated")
		}
		if out.Errors == nil {
			out.Errors = []string{}
		}
		return nil
	},
	fallback: func(QuestionsRequest) GeneratedQuestions {
		return GeneratedQuestions{
			Questions: []exam.ParsedQuestion{},
			Errors:    []string{questionsUnavailable},
			Fallback:  true,
		}
	},
}
