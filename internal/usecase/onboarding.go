package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-proxy/internal/domain"
	"onboarding-proxy/internal/roles"
)

const (
	welcomeMaxTokens  = 150
	questionMaxTokens = 220
	temperature       = 0.5
)

type LLMClient interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, params domain.GenerationParams) (string, error)
}

// InteractionRecorder stores finished interactions. Implementations may be
// slow or fail; neither affects the generated text.
type InteractionRecorder interface {
	Record(ctx context.Context, in domain.Interaction) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type OnboardingService struct {
	llm      LLMClient
	recorder InteractionRecorder
	logger   *zap.Logger
	now      func() time.Time
}

type WelcomeInput struct {
	Name string
}

type QuestionInput struct {
	Name     string
	Question string
}

// NewOnboardingService wires the service. recorder and logger are optional.
func NewOnboardingService(llm LLMClient, recorder InteractionRecorder, logger *zap.Logger) (*OnboardingService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{
		llm:      llm,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Welcome generates a short personalised welcome for the named learner.
func (s *OnboardingService) Welcome(ctx context.Context, in WelcomeInput) (string, error) {
	l := resolveLearner(in.Name)

	text, err := s.generate(ctx, buildWelcomeMessages(l), welcomeMaxTokens)
	s.record(ctx, domain.Interaction{
		Kind: domain.KindWelcome,
		Name: l.name,
		Role: l.role,
	}, text, err)
	return text, err
}

// Answer generates a reply to a first-day question.
func (s *OnboardingService) Answer(ctx context.Context, in QuestionInput) (string, error) {
	l := resolveLearner(in.Name)
	question := strings.TrimSpace(in.Question)

	text, err := s.generate(ctx, buildQuestionMessages(l, question), questionMaxTokens)
	s.record(ctx, domain.Interaction{
		Kind:     domain.KindQuestion,
		Name:     l.name,
		Role:     l.role,
		Question: question,
	}, text, err)
	return text, err
}

func resolveLearner(rawName string) learner {
	name := strings.TrimSpace(rawName)
	role, _ := roles.Lookup(name)
	return learner{name: name, role: role}
}

func (s *OnboardingService) generate(ctx context.Context, messages []domain.ChatMessage, maxTokens int) (string, error) {
	t := temperature
	text, err := s.llm.Complete(ctx, messages, domain.GenerationParams{
		MaxTokens:   maxTokens,
		Temperature: &t,
	})
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
			return "", newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return "", newError(ErrorUpstream, "openai_error", err)
	}
	return text, nil
}

func (s *OnboardingService) record(ctx context.Context, in domain.Interaction, answer string, genErr error) {
	if s.recorder == nil {
		return
	}
	in.ID = newID()
	in.CreatedAt = s.now()
	in.Answer = answer
	in.Status = domain.StatusComplete
	if genErr != nil {
		in.Status = domain.StatusFailed
	}
	if err := s.recorder.Record(ctx, in); err != nil {
		s.logger.Warn("failed to record interaction",
			zap.String("kind", string(in.Kind)),
			zap.String("interaction_id", in.ID),
			zap.Error(err),
		)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newID = func() string {
	return uuid.NewString()
}
