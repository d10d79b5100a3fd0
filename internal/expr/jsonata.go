package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blues/jsonata-go"

	"als-transform/internal/subjectid"
)

var errUndefined = errors.New("expression result is undefined")

// jsonataEvaluator hands each caller its own compiled expression; a
// compiled jsonata.Expr carries evaluation state and must not be shared.
type jsonataEvaluator struct {
	name string
	pool sync.Pool
}

func compileJSONata(m *Mapping, opts Options) (Evaluator, error) {
	text := string(m.Text)

	first, err := newJSONata(text, opts)
	if err != nil {
		return nil, err
	}

	ev := &jsonataEvaluator{name: m.Name()}
	ev.pool.New = func() any {
		e, err := newJSONata(text, opts)
		if err != nil {
			// unreachable: the same text compiled above
			panic(err)
		}

		return e
	}
	ev.pool.Put(first)

	return ev, nil
}

func newJSONata(text string, opts Options) (*jsonata.Expr, error) {
	e, err := jsonata.Compile(text)
	if err != nil {
		return nil, err
	}

	style := opts.SubjectIDStyle
	if style == "" {
		style = subjectid.DefaultStyle
	}

	err = e.RegisterExts(map[string]jsonata.Extension{
		"globalSubjectId": {
			Func: func(source, dataset, subject any) (string, error) {
				return subjectid.FormatValues(style, source, dataset, subject)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

func (j *jsonataEvaluator) Evaluate(input any) (any, error) {
	e := j.pool.Get().(*jsonata.Expr)
	defer j.pool.Put(e)

	out, err := e.Eval(input)

	switch {
	case errors.Is(err, jsonata.ErrUndefined):
		return nil, &TransformError{Op: "evaluate", Mapping: j.name, Err: errUndefined}
	case err != nil:
		return nil, &TransformError{Op: "evaluate", Mapping: j.name, Err: err}
	}

	if _, ok := out.(map[string]any); !ok {
		return nil, &TransformError{
			Op:      "evaluate",
			Mapping: j.name,
			Err:     fmt.Errorf("expression result must be an object, got %T", out),
		}
	}

	return out, nil
}
