package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var errInvalidOutput = errors.New("ai: invalid model output")

// Flow wraps a single model call: it renders the prompt from the input, decodes and checks
// the answer, retries transient failures and returns a fallback output when everything fails.
type Flow[In, Out any] struct {
	name     string
	system   string
	prompt   *template.Template
	json     bool
	decode   func(raw string) (Out, error)
	check    func(in In, out *Out) error
	fallback func(in In) Out

	model   Model
	policy  retryPolicy
	timeout time.Duration
	logger  core.Logger
}

type flowDef[In, Out any] struct {
	name     string
	system   string
	prompt   string
	text     bool // plain text answer decoded by `decode`
	decode   func(raw string) (Out, error)
	check    func(in In, out *Out) error
	fallback func(in In) Out
}

func newFlow[In, Out any](def flowDef[In, Out], model Model, conf core.AIConfig, logger core.Logger) *Flow[In, Out] {
	f := &Flow[In, Out]{
		name:     def.name,
		system:   def.system,
		prompt:   template.Must(template.New(def.name).Funcs(promptFuncs).Parse(def.prompt)),
		json:     !def.text,
		decode:   def.decode,
		check:    def.check,
		fallback: def.fallback,
		model:    model,
		policy: retryPolicy{
			maxAttempts: conf.MaxAttempts,
			baseDelay:   500 * time.Millisecond,
			maxDelay:    8 * time.Second,
		},
		timeout: conf.Timeout,
		logger:  logger,
	}
	if f.decode == nil {
		f.decode = decodeJSON[Out]
	}
	return f
}

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

func (f *Flow[In, Out]) Name() string { return f.name }

// Run returns the output of the flow, or its fallback with ok == false.
func (f *Flow[In, Out]) Run(ctx context.Context, in In) (out Out, ok bool) {
	out, err := f.run(ctx, in)
	if err != nil {
		f.logger.Warn("ai: flow "+f.name+" failed, returning fallback", err)
		return f.fallback(in), false
	}
	return out, true
}

func (f *Flow[In, Out]) run(ctx context.Context, in In) (Out, error) {
	var zero Out
	var buf bytes.Buffer
	if err := f.prompt.Execute(&buf, in); err != nil {
		return zero, errors.Wrap(err, "rendering prompt")
	}
	p := Prompt{System: f.system, User: buf.String(), JSON: f.json}

	var lastErr error
	for attempt := 1; attempt <= f.policy.attempts(); attempt++ {
		if attempt > 1 {
			if err := f.policy.backoff(ctx, attempt-1); err != nil {
				return zero, err
			}
		}
		out, err := f.attempt(ctx, in, p)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
		f.logger.Debug(fmt.Sprintf("ai: flow %s attempt %d failed", f.name, attempt), err)
	}
	return zero, lastErr
}

func (f *Flow[In, Out]) attempt(ctx context.Context, in In, p Prompt) (Out, error) {
	var zero Out
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	raw, err := f.model.Generate(ctx, p)
	if err != nil {
		return zero, err
	}
	out, err := f.decode(raw)
	if err != nil {
		return zero, errors.Wrap(errInvalidOutput, err.Error())
	}
	if f.check != nil {
		if err := f.check(in, &out); err != nil {
			return zero, errors.Wrap(errInvalidOutput, err.Error())
		}
	}
	return out, nil
}

// decodeJSON decodes the model answer, tolerating a markdown code fence around it.
func decodeJSON[Out any](raw string) (Out, error) {
	var out Out
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return out, errors.Wrap(err, "decoding model output")
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:] // drop the opening fence and its language tag
	} else {
		raw = strings.TrimPrefix(raw, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "```"))
}
