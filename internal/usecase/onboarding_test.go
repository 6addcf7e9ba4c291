package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"onboarding-proxy/internal/domain"
	"onboarding-proxy/internal/integrations/openai"
)

type capturingLLM struct {
	mu       sync.Mutex
	answer   string
	err      error
	messages []domain.ChatMessage
	params   domain.GenerationParams
	calls    int
}

func (c *capturingLLM) Complete(_ context.Context, msgs []domain.ChatMessage, params domain.GenerationParams) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.messages = msgs
	c.params = params
	return c.answer, c.err
}

type mockRecorder struct {
	records []domain.Interaction
	err     error
}

func (m *mockRecorder) Record(_ context.Context, in domain.Interaction) error {
	m.records = append(m.records, in)
	return m.err
}

func newTestService(t *testing.T, llm LLMClient, rec InteractionRecorder) *OnboardingService {
	t.Helper()
	svc, err := NewOnboardingService(llm, rec, zap.NewNop())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) }
	return svc
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewOnboardingService_ValidatesDependencies(t *testing.T) {
	_, err := NewOnboardingService(nil, nil, nil)
	require.Error(t, err)

	svc, err := NewOnboardingService(&capturingLLM{}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.logger)
}

func TestWelcome_KnownRole(t *testing.T) {
	llm := &capturingLLM{answer: "Welcome, Jillian!"}
	svc := newTestService(t, llm, nil)

	out, err := svc.Welcome(context.Background(), WelcomeInput{Name: "  Jillian "})
	require.NoError(t, err)
	require.Equal(t, "Welcome, Jillian!", out)

	require.Len(t, llm.messages, 2)
	require.Equal(t, "system", llm.messages[0].Role)
	require.Equal(t, welcomeSystemPrompt, llm.messages[0].Content)
	require.Equal(t, "user", llm.messages[1].Role)
	require.Equal(t,
		"Welcome Jillian to WFS. Acknowledge their role: Head of Learning and Engagement. "+
			"Write a short, warm, professional welcome in 2–3 sentences. Use British English.",
		llm.messages[1].Content)

	require.Equal(t, welcomeMaxTokens, llm.params.MaxTokens)
	require.NotNil(t, llm.params.Temperature)
	require.InDelta(t, 0.5, *llm.params.Temperature, 1e-9)
}

func TestWelcome_EmptyNameReachesProvider(t *testing.T) {
	llm := &capturingLLM{answer: "Hello!"}
	svc := newTestService(t, llm, nil)

	out, err := svc.Welcome(context.Background(), WelcomeInput{})
	require.NoError(t, err)
	require.Equal(t, "Hello!", out)
	require.Equal(t, 1, llm.calls)
	require.Equal(t,
		"Welcome there to WFS. Write a short, warm, professional welcome in 2–3 sentences. Use British English.",
		llm.messages[1].Content)
	require.NotContains(t, llm.messages[1].Content, "Acknowledge")
}

func TestWelcome_UnknownNameHasNoRole(t *testing.T) {
	llm := &capturingLLM{answer: "Hi Sam"}
	svc := newTestService(t, llm, nil)

	_, err := svc.Welcome(context.Background(), WelcomeInput{Name: "Sam"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(llm.messages[1].Content, "Welcome Sam to WFS. Write"))
}

func TestAnswer_Prompt(t *testing.T) {
	cases := []struct {
		name    string
		input   QuestionInput
		context string
	}{
		{"known role", QuestionInput{Name: "kirsty beavis", Question: " What time do I start? "}, "The learner is kirsty beavis (Learning and Engagement Specialist)."},
		{"unknown name", QuestionInput{Name: "Sam", Question: "What time do I start?"}, "The learner is Sam."},
		{"no name", QuestionInput{Question: "What time do I start?"}, "No name provided."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &capturingLLM{answer: "Arrive at 9am."}
			svc := newTestService(t, llm, nil)

			out, err := svc.Answer(context.Background(), tc.input)
			require.NoError(t, err)
			require.Equal(t, "Arrive at 9am.", out)

			require.Equal(t, questionSystemPrompt, llm.messages[0].Content)
			lines := strings.Split(llm.messages[1].Content, "\n")
			require.Len(t, lines, 4)
			require.Equal(t, tc.context, lines[0])
			require.Equal(t, `They asked about their first day at WFS: "What time do I start?"`, lines[1])
			require.Contains(t, lines[2], "2–4 short, friendly sentences")
			for _, pointer := range []string{"start time", "where to go", "ID/badge", "PPE or dress code", "safety briefing", "who to ask for", "parking/canteen"} {
				require.Contains(t, lines[3], pointer)
			}
			require.Contains(t, lines[3], "line manager or the Learning & Engagement team")
			require.Equal(t, questionMaxTokens, llm.params.MaxTokens)
		})
	}
}

func TestAnswer_QuestionIsVerbatim(t *testing.T) {
	llm := &capturingLLM{answer: "ok"}
	svc := newTestService(t, llm, nil)

	_, err := svc.Answer(context.Background(), QuestionInput{Question: `Do I need "steel toe" boots?`})
	require.NoError(t, err)
	require.Contains(t, llm.messages[1].Content, `"Do I need "steel toe" boots?"`)
}

func TestGenerate_ClassifiesErrors(t *testing.T) {
	svc := newTestService(t, &capturingLLM{err: &openai.ProviderError{StatusCode: http.StatusTooManyRequests}}, nil)
	_, err := svc.Welcome(context.Background(), WelcomeInput{Name: "Tomi"})
	expectError(t, err, ErrorRateLimited, "openai_rate_limited")

	svc = newTestService(t, &capturingLLM{err: &openai.ProviderError{StatusCode: http.StatusInternalServerError}}, nil)
	_, err = svc.Answer(context.Background(), QuestionInput{Question: "Where do I park?"})
	expectError(t, err, ErrorUpstream, "openai_error")

	transport := errors.New("dial tcp: connection refused")
	svc = newTestService(t, &capturingLLM{err: transport}, nil)
	_, err = svc.Welcome(context.Background(), WelcomeInput{})
	expectError(t, err, ErrorUpstream, "openai_error")
	require.ErrorIs(t, err, transport)
}

func TestRecord_OnSuccessAndFailure(t *testing.T) {
	newID = func() string { return "fixed-id" }
	t.Cleanup(func() { newID = defaultNewID })

	rec := &mockRecorder{}
	svc := newTestService(t, &capturingLLM{answer: "Arrive at 9am."}, rec)
	_, err := svc.Answer(context.Background(), QuestionInput{Name: "Tomi", Question: "When?"})
	require.NoError(t, err)

	svc.llm = &capturingLLM{err: errors.New("boom")}
	_, err = svc.Welcome(context.Background(), WelcomeInput{Name: "Sam"})
	require.Error(t, err)

	require.Equal(t, []domain.Interaction{
		{
			ID:        "fixed-id",
			Kind:      domain.KindQuestion,
			Name:      "Tomi",
			Role:      "Learning and Engagement Specialist",
			Question:  "When?",
			Answer:    "Arrive at 9am.",
			Status:    domain.StatusComplete,
			CreatedAt: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:        "fixed-id",
			Kind:      domain.KindWelcome,
			Name:      "Sam",
			Status:    domain.StatusFailed,
			CreatedAt: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		},
	}, rec.records)
}

func TestRecord_FailureDoesNotChangeResult(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc, err := NewOnboardingService(&capturingLLM{answer: "Welcome!"}, &mockRecorder{err: errors.New("dynamodb down")}, zap.New(core))
	require.NoError(t, err)

	out, err := svc.Welcome(context.Background(), WelcomeInput{Name: "Jillian"})
	require.NoError(t, err)
	require.Equal(t, "Welcome!", out)

	entries := logs.FilterMessage("failed to record interaction").All()
	require.Len(t, entries, 1)
	require.Equal(t, "welcome", entries[0].ContextMap()["kind"])
}

func TestConcurrentRequestsDoNotInterfere(t *testing.T) {
	svc := newTestService(t, echoLLM{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			out, err := svc.Welcome(context.Background(), WelcomeInput{Name: "Jillian"})
			assert.NoError(t, err)
			assert.Contains(t, out, "Welcome Jillian to WFS.")
		}()
		go func() {
			defer wg.Done()
			out, err := svc.Answer(context.Background(), QuestionInput{Name: "Kirsty", Question: "Parking?"})
			assert.NoError(t, err)
			assert.Contains(t, out, `"Parking?"`)
		}()
	}
	wg.Wait()
}

// echoLLM returns the user prompt so each caller can check it got its own.
type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, msgs []domain.ChatMessage, _ domain.GenerationParams) (string, error) {
	return msgs[len(msgs)-1].Content, nil
}

var defaultNewID = newID
