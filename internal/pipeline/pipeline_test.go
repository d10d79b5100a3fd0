package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"als-transform/internal/diagnostic"
	"als-transform/internal/expr"
	_ "als-transform/internal/mapping"
	"als-transform/internal/record"
	"als-transform/internal/schema"
)

const datasetSchema = `{
  "type": "object",
  "properties": {
    "title":    {"type": "string"},
    "creator":  {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "source":   {"type": "string", "enum": ["CPATH", "PREVENT"]},
    "url":      {"type": "string"}
  },
  "required": ["title", "creator", "keywords", "source", "url"],
  "additionalProperties": false
}`

const datasetJSONata = `{
  "title": study_title,
  "creator": pi,
  "keywords": tags,
  "source": origin,
  "url": link
}`

func validator(t *testing.T) *schema.Validator {
	t.Helper()

	doc, err := schema.Parse([]byte(datasetSchema), schema.LoadOptions{})
	require.NoError(t, err)

	return schema.NewValidator(doc, schema.Options{})
}

func jsonataEval(t *testing.T) expr.Evaluator {
	t.Helper()

	ev, err := expr.Compile(&expr.Mapping{
		Source: "cpath",
		Target: "Dataset",
		Engine: expr.EngineJSONata,
		Text:   []byte(datasetJSONata),
	}, expr.Options{})
	require.NoError(t, err)

	return ev
}

func inputs(t *testing.T, docs ...string) []record.Input {
	t.Helper()

	out := make([]record.Input, len(docs))
	for i, d := range docs {
		var v any
		require.NoError(t, json.Unmarshal([]byte(d), &v))
		out[i] = record.Input{Index: i, Value: v}
	}

	return out
}

func conformant(id string) map[string]any {
	return map[string]any{
		"id":       id,
		"title":    "ALS cohort " + id,
		"creator":  "Jane Doe",
		"keywords": []any{"als", "cohort"},
		"source":   "CPATH",
		"url":      "https://example.org/" + id,
	}
}

// passthrough drops the id field so candidates conform to the closed schema.
var passthrough = expr.EvaluatorFunc(func(input any) (any, error) {
	out := map[string]any{}
	for k, v := range input.(map[string]any) {
		if k != "id" {
			out[k] = v
		}
	}

	return out, nil
})

func TestRun_OnlyTitleYieldsFourRequired(t *testing.T) {
	p := New(jsonataEval(t), validator(t), Options{})

	out, err := p.Run(context.Background(), inputs(t, `{"study_title": "X"}`))
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	res := out.Results[0].Result
	require.Len(t, res.Violations, 4)

	var paths []string
	for _, v := range res.Violations {
		assert.Equal(t, diagnostic.RuleRequired, v.Rule)
		paths = append(paths, v.Path)
	}

	assert.Equal(t, []string{"/creator", "/keywords", "/source", "/url"}, paths)
	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, 4, out.Summary.Violations[diagnostic.RuleRequired])
	// non-strict still emits the failing record
	assert.Equal(t, []any{map[string]any{"title": "X"}}, out.Records)
}

func TestRun_ConformantRecordEmittedUnchanged(t *testing.T) {
	p := New(jsonataEval(t), validator(t), Options{Strict: true})

	out, err := p.Run(context.Background(), inputs(t, `{
		"study_title": "ALS natural history",
		"pi": "Jane Doe",
		"tags": ["als", "cohort"],
		"origin": "PREVENT",
		"link": "https://example.org"
	}`))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	require.Len(t, out.Records, 1)
	assert.Equal(t, map[string]any{
		"title":    "ALS natural history",
		"creator":  "Jane Doe",
		"keywords": []any{"als", "cohort"},
		"source":   "PREVENT",
		"url":      "https://example.org",
	}, out.Records[0])
	assert.Equal(t, 0, out.ErrorLog.Len())
}

func TestRun_PreservesInputOrder(t *testing.T) {
	var in []record.Input
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		in = append(in, record.Input{Index: i, Value: conformant(id)})
	}

	// later records finish first when run in parallel
	slowFirst := expr.EvaluatorFunc(func(input any) (any, error) {
		switch input.(map[string]any)["id"] {
		case "a":
			time.Sleep(30 * time.Millisecond)
		case "b":
			time.Sleep(15 * time.Millisecond)
		}

		return passthrough(input)
	})

	for _, workers := range []int{1, 4} {
		p := New(slowFirst, validator(t), Options{Workers: workers})

		out, err := p.Run(context.Background(), in)
		require.NoError(t, err)

		require.Len(t, out.Records, 5)

		for i, id := range []string{"a", "b", "c", "d", "e"} {
			assert.Equal(t, "ALS cohort "+id, out.Records[i].(map[string]any)["title"], "workers=%d", workers)
			assert.Equal(t, id, out.Results[i].ID)
		}
	}
}

func TestRun_StrictVersusNonStrict(t *testing.T) {
	bad := conformant("b")
	bad["source"] = "CPAHT"

	in := []record.Input{
		{Index: 0, Value: conformant("a")},
		{Index: 1, Value: bad},
		{Index: 2, Value: conformant("c")},
	}

	lenient, err := New(passthrough, validator(t), Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	strict, err := New(passthrough, validator(t), Options{Strict: true}).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, lenient.Status)
	assert.Len(t, lenient.Records, 3)
	assert.True(t, lenient.Status.OK())

	assert.Equal(t, StatusFailure, strict.Status)
	assert.Len(t, strict.Records, 2)
	assert.False(t, strict.Summary.Aborted)
	assert.Equal(t, 3, strict.Summary.Processed)
	assert.False(t, strict.Results[1].Emitted)

	// same violations either way
	assert.Equal(t, lenient.ErrorLog.Entries, strict.ErrorLog.Entries)
	require.Len(t, strict.ErrorLog.Entries, 1)
	assert.Equal(t, "b", strict.ErrorLog.Entries[0].RecordID)
	assert.Equal(t, diagnostic.RuleEnum, strict.ErrorLog.Entries[0].Violations[0].Rule)
	assert.Contains(t, strict.ErrorLog.Entries[0].Violations[0].Detail, `did you mean "CPATH"`)
}

func TestRun_TransformErrors(t *testing.T) {
	failOnC := expr.EvaluatorFunc(func(input any) (any, error) {
		if input.(map[string]any)["id"] == "c" {
			return nil, &expr.TransformError{Op: "evaluate", Mapping: "test", Err: errors.New("boom")}
		}

		return passthrough(input)
	})

	var in []record.Input
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		in = append(in, record.Input{Index: i, Value: conformant(id)})
	}

	t.Run("non-strict continues", func(t *testing.T) {
		out, err := New(failOnC, validator(t), Options{}).Run(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, StatusFailure, out.Status)
		assert.Equal(t, 5, out.Summary.Processed)
		assert.Equal(t, 1, out.Summary.TransformErrors)
		assert.Equal(t, 4, out.Summary.Emitted)
		assert.False(t, out.Summary.Aborted)

		require.Len(t, out.ErrorLog.Entries, 1)
		entry := out.ErrorLog.Entries[0]
		assert.Equal(t, "c", entry.RecordID)
		assert.Equal(t, diagnostic.RuleTransform, entry.Violations[0].Rule)
		assert.Equal(t, "transform evaluate test: boom", entry.Violations[0].Detail)
	})

	for _, workers := range []int{1, 3} {
		t.Run("strict aborts", func(t *testing.T) {
			out, err := New(failOnC, validator(t), Options{Strict: true, Workers: workers}).Run(context.Background(), in)
			require.NoError(t, err)

			assert.Equal(t, StatusFailure, out.Status)
			assert.True(t, out.Summary.Aborted)
			assert.Equal(t, 3, out.Summary.Processed)
			assert.Equal(t, 2, out.Summary.Emitted)
			assert.Len(t, out.Results, 3)

			var te *expr.TransformError
			assert.ErrorAs(t, out.Results[2].TransformErr, &te)
		})
	}
}

func TestRun_WrapsForeignEvaluatorErrors(t *testing.T) {
	ev := expr.EvaluatorFunc(func(any) (any, error) {
		return nil, errors.New("plain")
	})

	out, err := New(ev, validator(t), Options{}).Run(context.Background(), inputs(t, `{}`))
	require.NoError(t, err)

	var te *expr.TransformError
	require.ErrorAs(t, out.Results[0].TransformErr, &te)
	assert.Equal(t, "evaluate", te.Op)
}

func TestRun_WritesErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")

	in := []record.Input{
		{Index: 0, Value: map[string]any{"subject_id": "S-1", "title": "only"}},
		{Index: 1, Value: conformant("ok")},
		{Index: 2, Value: map[string]any{"title": 3.0}},
	}

	out, err := New(passthrough, validator(t), Options{ErrorLogPath: path}).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, out.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []struct {
		RecordID   string `json:"recordId"`
		Violations []struct {
			Path   string `json:"path"`
			Rule   string `json:"rule"`
			Detail string `json:"detail"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	require.Len(t, got, 2)
	// subject_id wins; the second failing record falls back to its index
	assert.Equal(t, "S-1", got[0].RecordID)
	assert.Equal(t, "2", got[1].RecordID)

	assert.Equal(t, "/subject_id", got[0].Violations[len(got[0].Violations)-1].Path)
	assert.Equal(t, "additionalProperty", got[0].Violations[len(got[0].Violations)-1].Rule)
	assert.Equal(t, "/title", got[1].Violations[0].Path)
	assert.Equal(t, "expected string, got integer", got[1].Violations[0].Detail)
}

func TestRun_EmptyErrorLogIsEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")

	_, err := New(passthrough, validator(t), Options{ErrorLogPath: path}).
		Run(context.Background(), []record.Input{{Index: 0, Value: conformant("a")}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestRun_ErrorLogWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "errors.json")

	out, err := New(passthrough, validator(t), Options{ErrorLogPath: path}).
		Run(context.Background(), []record.Input{{Index: 0, Value: conformant("a")}})
	require.Error(t, err)
	assert.NotNil(t, out)
	assert.Contains(t, err.Error(), "write error log")
}

func TestRun_NilEvaluatorValidatesInPlace(t *testing.T) {
	out, err := New(nil, validator(t), Options{}).Run(context.Background(), inputs(t,
		`{"title": "t", "creator": "c", "keywords": [], "source": "CPATH", "url": "u"}`,
	))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
}

func violationPaths(res RecordResult) []string {
	var out []string
	for _, v := range res.Result.Violations {
		out = append(out, v.Path)
	}

	return out
}

func TestRun_NilEvaluatorReportsExtraKeysInInputOrder(t *testing.T) {
	in := inputs(t, `{"zeta": 1, "title": "t", "creator": "c", "keywords": [], "source": "CPATH", "url": "u", "alpha": 2}`)
	in[0].Keys = []string{"zeta", "title", "creator", "keywords", "source", "url", "alpha"}

	out, err := New(nil, validator(t), Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"/zeta", "/alpha"}, violationPaths(out.Results[0]))
}

func TestRun_FieldMapEngineReportsExtraKeysInRuleOrder(t *testing.T) {
	ev, err := expr.Compile(&expr.Mapping{Engine: expr.EngineFieldMap, Text: []byte(`
source: prevent
target: Dataset
121:
  zeta: name
  title: name
  creator: owner
  url: homepage
fields:
  - target: keywords
    default: []
  - target: source
    default: PREVENT
  - target: alpha
    source: owner
`)}, expr.Options{})
	require.NoError(t, err)

	out, err := New(ev, validator(t), Options{}).Run(context.Background(), inputs(t,
		`{"name": "n", "owner": "o", "homepage": "h"}`,
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"/zeta", "/alpha"}, violationPaths(out.Results[0]))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 2} {
		_, err := New(passthrough, validator(t), Options{Workers: workers}).
			Run(ctx, []record.Input{{Index: 0, Value: conformant("a")}})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRun_FieldMapEngine(t *testing.T) {
	ev, err := expr.Compile(&expr.Mapping{Engine: expr.EngineFieldMap, Text: []byte(`
source: prevent
target: Dataset
121:
  title: name
  creator: owner
  url: homepage
fields:
  - target: keywords
    source: tags
    transform: split
  - target: source
    default: PREVENT
`)}, expr.Options{})
	require.NoError(t, err)

	out, err := New(ev, validator(t), Options{}).Run(context.Background(), inputs(t,
		`{"name": "n", "owner": "o", "homepage": "h", "tags": "als,cohort"}`,
	))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []any{"als", "cohort"}, out.Records[0].(map[string]any)["keywords"])
}

func TestRun_ReportsMetrics(t *testing.T) {
	scope := tally.NewTestScope("test", nil)

	bad := conformant("b")
	delete(bad, "url")

	_, err := New(passthrough, validator(t), Options{Metrics: scope}).Run(context.Background(), []record.Input{
		{Index: 0, Value: conformant("a")},
		{Index: 1, Value: bad},
	})
	require.NoError(t, err)

	counters := map[string]int64{}
	for _, c := range scope.Snapshot().Counters() {
		name := c.Name()
		if rule, ok := c.Tags()["rule"]; ok {
			name += ":" + rule
		}

		counters[name] = c.Value()
	}

	assert.Equal(t, int64(2), counters["test.records_processed"])
	assert.Equal(t, int64(1), counters["test.records_passed"])
	assert.Equal(t, int64(1), counters["test.records_failed"])
	assert.Equal(t, int64(2), counters["test.records_emitted"])
	assert.Equal(t, int64(0), counters["test.transform_errors"])
	assert.Equal(t, int64(1), counters["test.violations:required"])
}

func TestRun_Deterministic(t *testing.T) {
	in := inputs(t, `{"study_title": "X", "tags": ["a", "b"]}`, `{"pi": 4}`)
	p := New(jsonataEval(t), validator(t), Options{})

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	a, _ := json.Marshal(first.Records)
	b, _ := json.Marshal(second.Records)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.ErrorLog.Entries, second.ErrorLog.Entries)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "partial", StatusPartial.String())
	assert.Equal(t, "failure", StatusFailure.String())
	assert.Equal(t, "Status(0)", Status(0).String())

	assert.Equal(t, 0, StatusPartial.ExitCode())
	assert.Equal(t, 1, StatusFailure.ExitCode())

	text, err := StatusFailure.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failure", string(text))
}
