package sources

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	text string
	err  error
	got  Completion
}

func (s *stubCompleter) Complete(ctx context.Context, c Completion) (string, error) {
	s.got = c
	return s.text, s.err
}

func testRequest() Request {
	temp := make([]float64, 100)
	power := make([]float64, 100)
	gappy := make([]float64, 100)
	for i := range temp {
		temp[i] = 60 + float64(i%5)
		power[i] = 2*temp[i] + 1
		gappy[i] = float64(i)
		if i%2 == 0 {
			gappy[i] = math.NaN()
		}
	}
	temp[99] = 140
	power[99] = 281
	ds := profile.NewNumeric([]string{"motor_temp", "power_kw", "aux"}, map[string][]float64{
		"motor_temp": temp,
		"power_kw":   power,
		"aux":        gappy,
	})
	return Request{
		SystemType: "industrial_robot",
		SystemName: "R-7",
		Profile:    profile.Build(ds),
		Context:    map[string]string{"shift": "night"},
	}
}

func TestCatalog(t *testing.T) {
	specs := Catalog()
	require.Len(t, specs, 25)

	seen := map[string]bool{}
	for _, s := range specs {
		assert.False(t, seen[s.Name], "duplicate %s", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Perspective)
		assert.NotNil(t, s.Fallback, s.Name)
	}
}

func TestCatalogRegistry(t *testing.T) {
	r := NewCatalogRegistry(nil, nil)
	assert.Equal(t, 25, r.Len())
	assert.Equal(t, "thermal", r.Names()[0])
	assert.Equal(t, "regulatory", r.Names()[24])

	got := r.Sources()
	got[0] = nil
	assert.NotNil(t, r.Sources()[0], "Sources returns a copy")
}

func TestExecutor_NoCompleterServesFallback(t *testing.T) {
	spec := Spec{Name: "thermal", Perspective: "heat", Focus: []string{"temp"}, Fallback: RangeExcursion}
	e := NewExecutor(spec, nil, nil)

	findings, err := e.Analyze(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "motor_temp", f.Field)
	assert.Equal(t, "thermal", f.SourceName)
	assert.Equal(t, "heat", f.Perspective)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, e.Fallback(testRequest()), findings)
}

func TestExecutor_ParsesCompletion(t *testing.T) {
	c := &stubCompleter{text: "Here you go:\n```json\n" + `{"findings":[
		{"kind":"threshold_breach","severity":"high","field":"motor_temp","title":"Motor overheating","confidence":1.7,"impact_score":80,"reasoning":"peak 140C","references":["https://example.com/motor"]},
		{"kind":"nonsense","severity":"weird","field":"power_kw","title":"Odd power"},
		{"kind":"trend_change","severity":"low","title":"  "}
	]}` + "\n```"}
	e := NewExecutor(Spec{Name: "thermal", Perspective: "heat"}, c, nil)

	findings, err := e.Analyze(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, model.KindThresholdBreach, findings[0].Kind)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Equal(t, 1.0, findings[0].Confidence)
	assert.Equal(t, "peak 140C", findings[0].RawReasoning)
	assert.Equal(t, []string{"https://example.com/motor"}, findings[0].WebReferences)

	assert.Equal(t, model.KindPatternAnomaly, findings[1].Kind)
	assert.Equal(t, model.SeverityMedium, findings[1].Severity)

	assert.Contains(t, c.got.Prompt, "Perspective: heat")
	assert.Contains(t, c.got.Prompt, "motor_temp: mean=")
	assert.Contains(t, c.got.Prompt, "shift: night")
}

func TestExecutor_CompleterError(t *testing.T) {
	boom := errors.New("boom")
	e := NewExecutor(Spec{Name: "x"}, &stubCompleter{err: boom}, nil)
	_, err := e.Analyze(context.Background(), testRequest())
	assert.ErrorIs(t, err, boom)
}

func TestParseFindings_Malformed(t *testing.T) {
	_, err := ParseFindings("no json here")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseFindings("{not json}")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	got, err := ParseFindings(`{"findings":[]}`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTTPCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := &HTTPCompleter{Endpoint: srv.URL, Model: "test-model", APIKey: "secret", Client: srv.Client()}
	out, err := c.Complete(context.Background(), Completion{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestHTTPCompleter_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &HTTPCompleter{Endpoint: srv.URL, Client: srv.Client()}
	_, err := c.Complete(context.Background(), Completion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	var none *HTTPCompleter
	_, err = none.Complete(context.Background(), Completion{})
	assert.ErrorIs(t, err, ErrNoCompleter)
}

func TestFallbackGenerators(t *testing.T) {
	req := testRequest()

	dq := DataQuality(req, nil)
	require.Len(t, dq, 1)
	assert.Equal(t, "aux", dq[0].Field)
	assert.Equal(t, model.SeverityMedium, dq[0].Severity)

	coupling := StrongCoupling(req, []string{"power"})
	require.Len(t, coupling, 1)
	assert.Equal(t, []string{"power_kw"}, coupling[0].Fields()[1:])

	assert.Empty(t, RangeExcursion(req, []string{"vibration"}))

	skew := DistributionSkew(req, []string{"temp"})
	for _, f := range skew {
		assert.Equal(t, "motor_temp", f.Field)
	}

	combined := Combine(DataQuality, StrongCoupling)(req, nil)
	assert.Len(t, combined, len(DataQuality(req, nil))+len(StrongCoupling(req, nil)))
}

func TestFallbackIsDeterministic(t *testing.T) {
	for _, s := range Catalog() {
		e := NewExecutor(s, nil, nil)
		assert.Equal(t, e.Fallback(testRequest()), e.Fallback(testRequest()), s.Name)
	}
}
