package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExamText(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantQuestions []ParsedQuestion
		wantErrors    []string
	}{
		{
			name:          "empty text",
			text:          "  \n\n",
			wantQuestions: []ParsedQuestion{},
			wantErrors:    []string{},
		},
		{
			name: "single question",
			text: "1. What is 2 + 2?\nA) 3\nB) 4\nAnswer: b\n",
			wantQuestions: []ParsedQuestion{{
				Number:    1,
				Statement: "What is 2 + 2?",
				Options:   []Option{{Letter: "A", Text: "3"}, {Letter: "B", Text: "4"}},
				Answer:    "B",
			}},
			wantErrors: []string{},
		},
		{
			name: "continuation lines and windows newlines",
			text: "3) Which one\r\nis blue?\r\n(a) the sky\r\non a clear day\r\n(b) grass\r\nGabarito = A\r\n",
			wantQuestions: []ParsedQuestion{{
				Number:    3,
				Statement: "Which one is blue?",
				Options:   []Option{{Letter: "A", Text: "the sky on a clear day"}, {Letter: "B", Text: "grass"}},
				Answer:    "A",
			}},
			wantErrors: []string{},
		},
		{
			name:          "orphan answer and option",
			text:          "Answer: A\nB) lonely\n",
			wantQuestions: []ParsedQuestion{},
			wantErrors: []string{
				"line 1: answer found before any question",
				"line 2: option B found before any question",
			},
		},
		{
			name:          "invalid questions are skipped",
			text:          "1. No answer\nA) x\nB) y\n\n2. One option\nA) x\nAnswer: A\n\n3. Wrong answer\nA) x\nB) y\nAnswer: D\n\n4. Duplicated\nA) x\nA) y\nB) z\nAnswer: B\n",
			wantQuestions: []ParsedQuestion{},
			wantErrors: []string{
				"question 1: missing answer",
				"question 2: fewer than 2 options",
				"question 3: answer D is not among the options",
				"question 4: duplicated option A",
			},
		},
		{
			name: "valid and invalid mixed",
			text: "1. Good\nA) x\nB) y\nResposta: A\n2.\nA) x\nB) y\nAnswer: B\n",
			wantQuestions: []ParsedQuestion{{
				Number:    1,
				Statement: "Good",
				Options:   []Option{{Letter: "A", Text: "x"}, {Letter: "B", Text: "y"}},
				Answer:    "A",
			}},
			wantErrors: []string{"question 2: empty statement"},
		},
		{
			name: "question number out of range",
			text: "99999999999999999999. Huge\nA) x\nB) y\nAnswer: A\n2. Fine\nA) x\nB) y\nAnswer: B\n",
			wantQuestions: []ParsedQuestion{{
				Number:    2,
				Statement: "Fine",
				Options:   []Option{{Letter: "A", Text: "x"}, {Letter: "B", Text: "y"}},
				Answer:    "B",
			}},
			wantErrors: []string{"line 1: invalid question number 99999999999999999999"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseExamText(tt.text)
			assert.Equal(t, tt.wantQuestions, res.Questions)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}
}
