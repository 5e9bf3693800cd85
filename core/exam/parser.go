package exam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	questionRegex = regexp.MustCompile(`^\s*(\d+)\s*[.)-]\s*(.*)$`)
	optionRegex   = regexp.MustCompile(`^\s*\(?([A-Ea-e])\s*[).-]\s*(.+)$`)
	answerRegex   = regexp.MustCompile(`(?i)^\s*(answer|resposta|gabarito)\s*[:=-]\s*\(?([A-E])\)?\s*$`)
)

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// ParsedQuestion is a multiple choice question read from exam text.
type ParsedQuestion struct {
	Number    int      `json:"number"`
	Statement string   `json:"statement"`
	Options   []Option `json:"options"`
	Answer    string   `json:"answer"`
}

type ParseResult struct {
	Questions []ParsedQuestion `json:"questions"`
	Errors    []string         `json:"errors"`
}

type questionBlock struct {
	ParsedQuestion
	invalid bool // already reported while parsing
	discard bool // unusable number: its lines are consumed without further reports
}

func (qb *questionBlock) hasOption(letter string) bool {
	for _, opt := range qb.Options {
		if opt.Letter == letter {
			return true
		}
	}
	return false
}

// ParseExamText reads numbered multiple choice questions from free text:
//
//	1. Statement, possibly continued on the next lines
//	A) first option
//	B) second option
//	Answer: B
//
// It never fails: problems are reported in ParseResult.Errors and the faulty questions left out.
func ParseExamText(text string) ParseResult {
	res := ParseResult{Questions: []ParsedQuestion{}, Errors: []string{}}
	var current *questionBlock

	finish := func() {
		if current == nil {
			return
		}
		if current.discard {
			current = nil
			return
		}
		errs := current.validate()
		res.Errors = append(res.Errors, errs...)
		if len(errs) == 0 && !current.invalid {
			res.Questions = append(res.Questions, current.ParsedQuestion)
		}
		current = nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := answerRegex.FindStringSubmatch(line); m != nil {
			if current == nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: answer found before any question", lineNo))
				continue
			}
			current.Answer = strings.ToUpper(m[2])
			continue
		}

		if m := questionRegex.FindStringSubmatch(line); m != nil {
			finish()
			num, err := strconv.Atoi(m[1])
			current = &questionBlock{
				ParsedQuestion: ParsedQuestion{Number: num, Statement: strings.TrimSpace(m[2]), Options: []Option{}},
			}
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: invalid question number %s", lineNo, m[1]))
				current.discard = true
			}
			continue
		}

		if m := optionRegex.FindStringSubmatch(line); m != nil {
			if current == nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: option %s found before any question", lineNo, strings.ToUpper(m[1])))
				continue
			}
			letter := strings.ToUpper(m[1])
			if current.hasOption(letter) {
				res.Errors = append(res.Errors, fmt.Sprintf("question %d: duplicated option %s", current.Number, letter))
				current.invalid = true
				continue
			}
			current.Options = append(current.Options, Option{Letter: letter, Text: strings.TrimSpace(m[2])})
			continue
		}

		// continuation line
		if current == nil {
			continue
		}
		cont := strings.TrimSpace(line)
		if n := len(current.Options); n > 0 {
			current.Options[n-1].Text += " " + cont
		} else if current.Statement == "" {
			current.Statement = cont
		} else {
			current.Statement += " " + cont
		}
	}
	finish()
	return res
}

func (qb *questionBlock) validate() []string {
	var errs []string
	report := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf("question %d: ", qb.Number)+fmt.Sprintf(format, args...))
	}

	if qb.Statement == "" {
		report("empty statement")
	}
	if len(qb.Options) < 2 {
		report("fewer than 2 options")
	}
	if qb.Answer == "" {
		report("missing answer")
	} else if !qb.hasOption(qb.Answer) {
		report("answer %s is not among the options", qb.Answer)
	}
	return errs
}
