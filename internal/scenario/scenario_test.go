package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/mediapicker"
)

const paragraph = `html: '<div contenteditable="true"><p>hi </p></div>'` + "\n"

func run(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	sc, err := Parse([]byte(src))
	require.NoError(t, err)
	res, err := Run(context.Background(), sc, opts...)
	require.NoError(t, err)
	return res
}

func requirePassed(t *testing.T, res *Result) {
	t.Helper()
	require.True(t, res.Passed(), res.Summary())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no html", "steps:\n  - type: a\n"},
		{"no steps", paragraph},
		{"empty step", paragraph + "steps:\n  - {}\n"},
		{"two actions", paragraph + "steps:\n  - {type: a, blur: true}\n"},
		{"repeat without key", paragraph + "steps:\n  - {type: a, repeat: 2}\n"},
		{"negative advance", paragraph + "steps:\n  - advance: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}

	_, err := Parse([]byte("steps: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_MentionCommit(t *testing.T) {
	sc, err := Load("testdata/mention.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mention commit from the directory", sc.Name)
	require.Len(t, sc.Contacts, 3)
	assert.Equal(t, []string{"turing"}, sc.Contacts[1].SlackUsernames)

	res, err := Run(context.Background(), sc)
	require.NoError(t, err)
	requirePassed(t, res)
	assert.Len(t, res.Steps, len(sc.Steps))
	assert.Contains(t, res.HTML, `data-user-id="u1"`)
}

func TestLoad_Picker(t *testing.T) {
	sc, err := Load("testdata/picker.yaml")
	require.NoError(t, err)

	res, err := Run(context.Background(), sc)
	require.NoError(t, err)
	requirePassed(t, res)
	assert.Equal(t, []string{"photo", "attachment"}, res.PickerClicks)
	assert.Contains(t, res.HTML, `src="https://img/1.png"`)
	assert.Contains(t, res.HTML, `data-size="2048"`)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestRun_BlurAbandons(t *testing.T) {
	res := run(t, paragraph+`
steps:
  - caret: {tag: p, end: true}
  - type: "@ab"
  - expect: {composing: true, markers: 1}
  - click_outside: true
  - advance: 299ms
  - expect: {composing: true}
  - advance: 1ms
  - expect: {composing: false, text: "hi @ab", markers: 0}
`)
	requirePassed(t, res)
}

func TestRun_ConfigDisablesBlurHide(t *testing.T) {
	res := run(t, paragraph+`
config:
  mention:
    hide_on_blur_delay_ms: null
steps:
  - caret: {tag: p, end: true}
  - type: "@ab"
  - blur: true
  - advance: 1m
  - expect: {composing: true}
  - focus: true
  - key: left
    repeat: 3
  - expect: {composing: false, markers: 0}
`)
	requirePassed(t, res)
}

func TestRun_Autolist(t *testing.T) {
	res := run(t, `
html: '<div contenteditable="true"><p>-</p></div>'
steps:
  - caret: {tag: p, end: true}
  - expect: {lists: 0}
  - type: " "
  - expect: {lists: 1, text: ""}
`)
	requirePassed(t, res)
}

func TestRun_Delegate(t *testing.T) {
	var kinds []mediapicker.Kind
	d := mediapicker.Delegate{
		OnPickerClick: func(s *mediapicker.Session, k mediapicker.Kind) {
			kinds = append(kinds, k)
			s.AddChart("https://c/1", "1", "")
		},
	}
	res := run(t, `
html: '<div contenteditable="true"><p>hello</p><p><br/></p></div>'
steps:
  - caret: {tag: p, index: 1}
  - picker: open
  - picker: chart
  - expect: {waiting: false}
`, WithDelegate(d))

	requirePassed(t, res)
	assert.Equal(t, []mediapicker.Kind{mediapicker.KindChart}, kinds)
	assert.Equal(t, []string{"chart"}, res.PickerClicks)
	assert.Contains(t, res.HTML, `data-chart-id="1"`)
}

func TestRun_HostDrivenPicker(t *testing.T) {
	res := run(t, `
html: '<div contenteditable="true"><p>hello</p><p><br/></p></div>'
config:
  media_picker:
    inline_plus_button: false
steps:
  - caret: {tag: p, index: 1}
  - picker: save
  - picker: video
  - expect: {waiting: true}
  - media: {kind: video, url: "https://v/1", video_type: youtube, id: abc}
  - expect: {waiting: false}
`)
	requirePassed(t, res)
	assert.Contains(t, res.HTML, `data-video-id="abc"`)
}

func TestRun_FailedExpectation(t *testing.T) {
	res := run(t, paragraph+`
name: wrong text
steps:
  - caret: {tag: p, end: true}
  - type: "x"
  - expect: {text: "nope", composing: false}
`)
	assert.False(t, res.Passed())
	assert.Equal(t, 1, res.FailureCount())
	assert.True(t, strings.HasPrefix(res.Summary(), "FAIL wrong text (1 failures)"))
	assert.Contains(t, res.Summary(), "step 3: text")

	js, err := res.JSON()
	require.NoError(t, err)
	assert.False(t, gjson.Get(js, "passed").Bool())
	assert.Equal(t, int64(1), gjson.Get(js, "failures").Int())
	assert.Equal(t, "type", gjson.Get(js, "steps.1.action").String())
	assert.False(t, gjson.Get(js, "steps.1.failures").Exists())
	assert.Contains(t, gjson.Get(js, "steps.2.failures.0").String(), `"hi x"`)
	assert.Equal(t, "<p>hi x</p>", gjson.Get(js, "html").String())
	assert.Empty(t, gjson.Get(js, "picker_clicks").Array())
}

func TestRun_PassingJSON(t *testing.T) {
	res := run(t, paragraph+"steps:\n  - expect: {composing: false}\n")
	js, err := res.JSON()
	require.NoError(t, err)
	assert.True(t, gjson.Get(js, "passed").Bool())
	assert.Equal(t, int64(1), gjson.Get(js, "steps.0.index").Int())
	assert.Equal(t, "PASS  (1 steps)", res.Summary())
}

func TestRun_RecordsEditorEvents(t *testing.T) {
	res := run(t, paragraph+`
steps:
  - caret: {tag: p, end: true}
  - type: "xy"
  - blur: true
`)
	assert.Equal(t, 2, res.Events["editableKeypress"])
	assert.Equal(t, 2, res.Events["editableKeyup"])
	assert.Equal(t, 2, res.Events["editableInput"])
	assert.Equal(t, 1, res.Events["blur"])
	assert.Positive(t, res.Events["focus"])
	assert.Zero(t, res.Events["windowClick"])

	js, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(js, "events.editableInput").Int())
	assert.False(t, gjson.Get(js, "events.windowClick").Exists())
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name string
		step string
		want error
	}{
		{"missing target", "click: {id: nowhere}", ErrTargetNotFound},
		{"index out of range", "caret: {tag: p, index: 4}", ErrTargetNotFound},
		{"unknown key", "key: f13", ErrInvalidScenario},
		{"choose without contacts", "choose: 0", ErrInvalidScenario},
		{"cancel without contacts", "cancel: true", ErrInvalidScenario},
		{"entry has no completion", "media: {kind: entry}", ErrInvalidScenario},
		{"media without a click", "media: {kind: photo, url: u}", ErrInvalidScenario},
		{"unknown media", "picker: poster", mediapicker.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(paragraph + "steps:\n  - " + tt.step + "\n"))
			require.NoError(t, err)
			_, err = Run(context.Background(), sc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	sc, err := Parse([]byte(paragraph + "config: {mention: {bogus: 1}}\nsteps:\n  - blur: true\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), sc)
	assert.ErrorIs(t, err, config.ErrUnknownSetting)

	sc, err = Parse([]byte(paragraph + "config: {directory: {limit: 0}}\nsteps:\n  - blur: true\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), sc)
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.True(t, verr.Has("directory.limit"))
}

func TestRun_WithConfigBase(t *testing.T) {
	base := config.Default()
	base.Mention.ActiveTriggers = []string{"#"}

	res := run(t, paragraph+`
steps:
  - caret: {tag: p, end: true}
  - type: "@ab"
  - expect: {composing: false}
  - type: " #go"
  - expect: {composing: true, word: "#go"}
`, WithConfig(base))
	requirePassed(t, res)
}

func TestRun_Cancelled(t *testing.T) {
	sc, err := Parse([]byte(paragraph + "steps:\n  - blur: true\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}
