package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"onboarding-proxy/internal/logger"
	"onboarding-proxy/internal/usecase"
)

const (
	livenessText = "WFS AI Proxy is running ✅"

	// WelcomeFallback is returned whenever a welcome could not be generated.
	WelcomeFallback = "Welcome to WFS! (We couldn’t fetch your personalised message just now.)"
	// QuestionFallback is returned whenever a question could not be answered.
	QuestionFallback = "Sorry—couldn’t fetch an answer just now. Please check your joining instructions or contact your line manager."

	maxBodyBytes = 1 << 20
)

var (
	errBodyTooLarge = errors.New("handler: request body too large")
	errNotObject    = errors.New("handler: request body is not a JSON object")
	errFieldType    = errors.New("handler: request field has the wrong type")
)

type Service interface {
	Welcome(ctx context.Context, in usecase.WelcomeInput) (string, error)
	Answer(ctx context.Context, in usecase.QuestionInput) (string, error)
}

// Options configures the HTTP surface.
type Options struct {
	// AllowOrigins lists CORS origins; empty means any origin.
	AllowOrigins []string
}

// Handler is the HTTP front door. It serves net/http directly and API Gateway
// proxy events through Handle.
type Handler struct {
	svc    Service
	logger *zap.Logger
	echo   *echo.Echo
}

type welcomeRequest struct {
	Name string `json:"name"`
}

type questionRequest struct {
	Name     string `json:"name"`
	Question string `json:"question"`
}

type textResponse struct {
	Text string `json:"text"`
}

func NewHandler(svc Service, zapLogger *zap.Logger, opts Options) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logger.NewEchoRequestLogger(zapLogger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	h := &Handler{svc: svc, logger: zapLogger, echo: e}
	e.GET("/", h.health)
	e.POST("/welcome", h.welcome)
	e.POST("/question", h.question)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.echo.ServeHTTP(w, r)
}

func (h *Handler) health(c echo.Context) error {
	return c.String(http.StatusOK, livenessText)
}

func (h *Handler) welcome(c echo.Context) error {
	var req welcomeRequest
	if err := decodeBody(c.Request(), &req); err != nil {
		if errors.Is(err, errFieldType) {
			return h.fallback(c, "welcome", WelcomeFallback, err)
		}
		return h.rejectBody(c, "welcome", WelcomeFallback, err)
	}
	return h.reply(c, "welcome", WelcomeFallback, func(ctx context.Context) (string, error) {
		return h.svc.Welcome(ctx, usecase.WelcomeInput{Name: req.Name})
	})
}

func (h *Handler) question(c echo.Context) error {
	var req questionRequest
	if err := decodeBody(c.Request(), &req); err != nil {
		if errors.Is(err, errFieldType) {
			return h.fallback(c, "question", QuestionFallback, err)
		}
		return h.rejectBody(c, "question", QuestionFallback, err)
	}
	return h.reply(c, "question", QuestionFallback, func(ctx context.Context) (string, error) {
		return h.svc.Answer(ctx, usecase.QuestionInput{Name: req.Name, Question: req.Question})
	})
}

// reply runs generate and turns any error or panic into the fallback text
// with a 500. The call is detached from the inbound request's cancellation.
func (h *Handler) reply(c echo.Context, op, fallback string, generate func(context.Context) (string, error)) error {
	ctx := context.WithoutCancel(c.Request().Context())

	text, err := safeGenerate(ctx, generate)
	if err != nil {
		return h.fallback(c, op, fallback, err)
	}
	return c.JSON(http.StatusOK, textResponse{Text: text})
}

func (h *Handler) fallback(c echo.Context, op, fallback string, err error) error {
	h.logger.Error("generation failed, sending fallback",
		zap.String("operation", op),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.String("reason", failureReason(err)),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, textResponse{Text: fallback})
}

func (h *Handler) rejectBody(c echo.Context, op, fallback string, err error) error {
	h.logger.Warn("invalid request body",
		zap.String("operation", op),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	)
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	return c.JSON(status, textResponse{Text: fallback})
}

func safeGenerate(ctx context.Context, generate func(context.Context) (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("handler: panic during generation: %v", r)
		}
	}()
	return generate(ctx)
}

// decodeBody reads a JSON object regardless of Content-Type. An empty body,
// null and arrays decode as {}. A known field holding the wrong JSON type
// yields errFieldType.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("handler: read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return errBodyTooLarge
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return errors.New("handler: decode body: invalid JSON")
	}
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%w: %v", errFieldType, err)
		}
		return nil
	case '[', 'n':
		return nil
	default:
		return errNotObject
	}
}

func failureReason(err error) string {
	if errors.Is(err, errFieldType) {
		return "invalid_field_type"
	}
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return ucErr.Reason
	}
	return "unexpected"
}
