package ai

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	maxTutorSuggestions = 5

	tutorFallbackAnswer = "Sorry, I cannot answer right now. Please try again in a moment."
)

// Turn is a previous exchange of a tutoring conversation.
type Turn struct {
	Role string `json:"role" validate:"required,oneof=user assistant"`
	Text string `json:"text" validate:"required,max=4000"`
}

type TutorRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
	Subject  string `json:"subject" validate:"max=100"`
	History  []Turn `json:"history" validate:"max=20,dive"`
}

func (tr *TutorRequest) Validate(validate *validator.Validate) error {
	tr.Question = core.CleanString(tr.Question)
	tr.Subject = core.CleanString(tr.Subject)
	return validate.Struct(tr)
}

type TutorAnswer struct {
	Answer      string   `json:"answer"`
	Suggestions []string `json:"suggestions"`
	Fallback    bool     `json:"fallback"`
}

var tutorFlow = flowDef[TutorRequest, TutorAnswer]{
	name: "tutor",
	system: `You are a patient tutor helping secondary school students.
Explain step by step, with simple words, and never just hand out the final answer of an exercise.
Answer in the language of the student's question.
Reply with a JSON object: {"answer": string, "suggestions": [string]} where suggestions are up to 3 follow-up questions the student could ask.`,
	prompt: `{{with .Subject}}Subject: {{.}}
{{end}}{{with .History}}Conversation so far:
{{range .}}{{.Role}}: {{.Text}}
{{end}}{{end}}Student question: {{.Question}}`,
	check: func(_ TutorRequest, out *TutorAnswer) error {
		out.Fallback = false
		out.Answer = strings.TrimSpace(out.Answer)
		if out.Answer == "" {
			return errors.New("empty answer")
		}
		out.Suggestions = core.CleanStrings(out.Suggestions)
		if out.Suggestions == nil {
			out.Suggestions = []string{}
		}
		if len(out.Suggestions) > maxTutorSuggestions {
			out.Suggestions = out.Suggestions[:maxTutorSuggestions]
		}
		return nil
	},
	fallback: func(TutorRequest) TutorAnswer {
		return TutorAnswer{Answer: tutorFallbackAnswer, Suggestions: []string{}, Fallback: true}
	},
}
