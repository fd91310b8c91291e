package pipeline_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/deppfellow/predict-lambda/internal/action"
	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/deppfellow/predict-lambda/internal/features"
	"github.com/deppfellow/predict-lambda/internal/model"
	"github.com/deppfellow/predict-lambda/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cr3t"

type fixedPredictor struct {
	label     string
	notFitted error
	panics    bool
}

func (p *fixedPredictor) CheckFitted() error { return p.notFitted }

func (p *fixedPredictor) Predict(model.Row) (string, error) {
	if p.panics {
		panic("boom")
	}
	return p.label, nil
}

type fixedLoader struct {
	predictor model.Predictor
	err       error
}

func (l *fixedLoader) Load(context.Context) (model.Predictor, error) {
	return l.predictor, l.err
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ChallengeSecret = secret
	cfg.Workspace = "test"
	return cfg
}

func newProcessor(t *testing.T, cfg *config.Config, loader model.Loader) (*pipeline.Processor, *features.Schema) {
	t.Helper()

	schema, err := features.Default()
	require.NoError(t, err)

	router := action.NewRouter(action.NewPingHandler(), action.NewPredictHandler(schema, loader))
	return pipeline.NewProcessor(cfg, router, zerolog.Nop(), nil), schema
}

func validFeatures(schema *features.Schema) map[string]any {
	set := make(map[string]any, len(schema.Fields()))
	for i, field := range schema.Fields() {
		set[field] = float64(i) / 2
	}
	return set
}

func event(t *testing.T, v any) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func decodeBody(t *testing.T, env pipeline.Envelope) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.Body), &body))
	return body
}

func requireError(t *testing.T, env pipeline.Envelope, status int, message string) {
	t.Helper()

	assert.Equal(t, status, env.StatusCode)
	assert.Empty(t, env.StatusDescription)

	body := decodeBody(t, env)
	assert.Equal(t, message, body["error"])
	details, ok := body["error_details"]
	assert.True(t, ok, "error_details must be present")
	assert.Nil(t, details)
}

func TestProcess_Ping(t *testing.T) {
	p, _ := newProcessor(t, testConfig(), &fixedLoader{})

	env, err := p.Process(context.Background(), event(t, map[string]any{"action": "ping", "secret": secret}))
	require.NoError(t, err)

	assert.Equal(t, 200, env.StatusCode)
	assert.Equal(t, "200 OK", env.StatusDescription)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, env.Headers)
	assert.False(t, env.IsBase64Encoded)
	assert.Equal(t, `{"response":"pong"}`, env.Body)
	assert.NotContains(t, env.Body, "error_details")
}

func TestProcess_PingIsIdempotent(t *testing.T) {
	p, _ := newProcessor(t, testConfig(), &fixedLoader{})
	in := event(t, map[string]any{"action": "ping", "secret": secret})

	first, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcess_Predict(t *testing.T) {
	p, schema := newProcessor(t, testConfig(), &fixedLoader{predictor: &fixedPredictor{label: "human"}})

	env, err := p.Process(context.Background(), event(t, map[string]any{
		"action":   "predict",
		"secret":   secret,
		"features": validFeatures(schema),
	}))
	require.NoError(t, err)

	assert.Equal(t, 200, env.StatusCode)
	assert.Equal(t, map[string]any{"response": "human"}, decodeBody(t, env))
}

func TestProcess_HTTPTriggeredEvent(t *testing.T) {
	p, _ := newProcessor(t, testConfig(), &fixedLoader{})
	body := `{"action":"ping","secret":"` + secret + `"}`

	t.Run("plain body", func(t *testing.T) {
		env, err := p.Process(context.Background(), event(t, map[string]any{
			"requestContext": map[string]any{"http": map[string]any{"method": "POST"}},
			"body":           body,
		}))
		require.NoError(t, err)
		assert.Equal(t, 200, env.StatusCode)
		assert.Equal(t, `{"response":"pong"}`, env.Body)
	})

	t.Run("base64 body", func(t *testing.T) {
		env, err := p.Process(context.Background(), event(t, map[string]any{
			"requestContext":  map[string]any{},
			"body":            base64.StdEncoding.EncodeToString([]byte(body)),
			"isBase64Encoded": true,
		}))
		require.NoError(t, err)
		assert.Equal(t, 200, env.StatusCode)
	})
}

func TestProcess_Failures(t *testing.T) {
	schema, err := features.Default()
	require.NoError(t, err)

	withExtra := validFeatures(schema)
	withExtra["foo"] = 1

	withString := validFeatures(schema)
	withString[schema.Fields()[0]] = "x"

	missingFirst := validFeatures(schema)
	delete(missingFirst, schema.Fields()[0])

	notFitted := &model.NotFittedError{Estimator: "MLPClassifier"}

	tests := []struct {
		name    string
		loader  model.Loader
		event   any
		status  int
		message string
	}{
		{
			name:    "malformed JSON",
			event:   json.RawMessage(`{"action":`),
			status:  400,
			message: "",
		},
		{
			name:    "missing action",
			event:   map[string]any{"secret": secret},
			status:  400,
			message: "Invalid input payload: 'action' is a required property",
		},
		{
			name:    "unexpected field",
			event:   map[string]any{"action": "ping", "secret": secret, "foo": 1},
			status:  400,
			message: "Invalid input payload: unexpected field(s) 'foo'",
		},
		{
			name:    "missing secret",
			event:   map[string]any{"action": "ping"},
			status:  401,
			message: "Challenge secret missing or mismatch",
		},
		{
			name:    "wrong secret",
			event:   map[string]any{"action": "ping", "secret": "nope"},
			status:  401,
			message: "Challenge secret missing or mismatch",
		},
		{
			name:    "auth is checked before routing",
			event:   map[string]any{"action": "delete", "secret": "nope"},
			status:  401,
			message: "Challenge secret missing or mismatch",
		},
		{
			name:    "empty action with wrong secret",
			event:   map[string]any{"action": "", "secret": "nope"},
			status:  401,
			message: "Challenge secret missing or mismatch",
		},
		{
			name:    "null action with wrong secret",
			event:   map[string]any{"action": nil, "secret": "nope"},
			status:  401,
			message: "Challenge secret missing or mismatch",
		},
		{
			name:    "empty action",
			event:   map[string]any{"action": "", "secret": secret},
			status:  400,
			message: "Action not recognized: ``",
		},
		{
			name:    "null action",
			event:   map[string]any{"action": nil, "secret": secret},
			status:  400,
			message: "Action not recognized: ``",
		},
		{
			name:    "unknown action",
			event:   map[string]any{"action": "delete", "secret": secret},
			status:  400,
			message: "Action not recognized: `delete`",
		},
		{
			name:    "action is case sensitive",
			event:   map[string]any{"action": "PING", "secret": secret},
			status:  400,
			message: "Action not recognized: `PING`",
		},
		{
			name:    "predict without features",
			event:   map[string]any{"action": "predict", "secret": secret},
			status:  400,
			message: "'features' is a required property",
		},
		{
			name:    "predict with missing feature",
			event:   map[string]any{"action": "predict", "secret": secret, "features": missingFirst},
			status:  400,
			message: "'" + schema.Fields()[0] + "' is a required property",
		},
		{
			name:    "predict with extra feature",
			event:   map[string]any{"action": "predict", "secret": secret, "features": withExtra},
			status:  400,
			message: "Additional properties are not allowed ('foo' was unexpected)",
		},
		{
			name:    "predict with wrong type",
			event:   map[string]any{"action": "predict", "secret": secret, "features": withString},
			status:  400,
			message: "'x' is not of type 'number'",
		},
		{
			name:    "predict with unfitted model",
			loader:  &fixedLoader{predictor: &fixedPredictor{notFitted: notFitted}},
			event:   map[string]any{"action": "predict", "secret": secret, "features": validFeatures(schema)},
			status:  500,
			message: "Model not fitted: " + notFitted.Error(),
		},
		{
			name:    "predict with unreadable model",
			loader:  &fixedLoader{err: errors.New("no such file")},
			event:   map[string]any{"action": "predict", "secret": secret, "features": validFeatures(schema)},
			status:  500,
			message: "failed to load model: no such file",
		},
		{
			name:    "handler panic",
			loader:  &fixedLoader{predictor: &fixedPredictor{panics: true}},
			event:   map[string]any{"action": "predict", "secret": secret, "features": validFeatures(schema)},
			status:  500,
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := tt.loader
			if loader == nil {
				loader = &fixedLoader{predictor: &fixedPredictor{label: "human"}}
			}
			p, _ := newProcessor(t, testConfig(), loader)

			var in json.RawMessage
			if raw, ok := tt.event.(json.RawMessage); ok {
				in = raw
			} else {
				in = event(t, tt.event)
			}

			env, err := p.Process(context.Background(), in)
			require.NoError(t, err)

			if tt.message == "" {
				assert.Equal(t, tt.status, env.StatusCode)
				assert.Contains(t, decodeBody(t, env)["error"], "Invalid input payload: ")
				return
			}
			requireError(t, env, tt.status, tt.message)
		})
	}
}

func TestProcess_MissingConfigurationFailsInvocation(t *testing.T) {
	cfg := config.Default()
	p, _ := newProcessor(t, cfg, &fixedLoader{})

	env, err := p.Process(context.Background(), event(t, map[string]any{"action": "ping", "secret": secret}))
	require.Error(t, err)
	assert.Equal(t, pipeline.Envelope{}, env)

	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Missing required environment variables: CHALLENGE_SECRET, WORKSPACE", err.Error())
}

func TestProcess_EnvelopeRoundTrip(t *testing.T) {
	p, _ := newProcessor(t, testConfig(), &fixedLoader{})

	env, err := p.Process(context.Background(), event(t, map[string]any{"action": "ping", "secret": "nope"}))
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(401), decoded["statusCode"])
	assert.Equal(t, false, decoded["isBase64Encoded"])
	assert.NotContains(t, decoded, "statusDescription")
	assert.IsType(t, "", decoded["body"])
}
