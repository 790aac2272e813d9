package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/geocoder89/eduai/internal/domain/assessment"
)

const (
	OpGenerateQuestions = "generate_questions"
	OpAnalyzeCode       = "analyze_code"
	OpGenerateExam      = "generate_exam"
	OpValidateCode      = "validate_code"
	OpGenerateImage     = "generate_image"
)

// Response is the outcome of one bridge call. Data holds the model's raw
// text; Error is a short description that never includes upstream bodies.
type Response struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Recorder receives one observation per completed call.
type Recorder interface {
	ObserveCompletion(operation, result string, elapsed time.Duration, promptTokens, completionTokens int)
}

type BridgeConfig struct {
	ChatModel     string
	ImageModel    string
	Temperature   float64
	MaxTokens     int
	ExamMaxTokens int
	Timeout       time.Duration
}

type Bridge struct {
	completer Completer
	cfg       BridgeConfig
	log       *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer
}

type BridgeOption func(*Bridge)

func WithLogger(log *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.log = log }
}

func WithRecorder(r Recorder) BridgeOption {
	return func(b *Bridge) { b.recorder = r }
}

func NewBridge(c Completer, cfg BridgeConfig, opts ...BridgeOption) *Bridge {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.ExamMaxTokens == 0 {
		cfg.ExamMaxTokens = 6000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	b := &Bridge{
		completer: c,
		cfg:       cfg,
		log:       slog.Default(),
		tracer:    otel.Tracer("eduai/ai"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type QuestionsRequest struct {
	Topic      string
	Difficulty assessment.Difficulty
	Count      int
	Language   assessment.Language
}

func (b *Bridge) GenerateCodeQuestions(ctx context.Context, req QuestionsRequest) Response {
	if req.Count <= 0 {
		req.Count = 10
	}

	data := struct {
		Topic      string
		Difficulty assessment.Difficulty
		Count      int
	}{req.Topic, req.Difficulty, req.Count}

	msgs, err := b.messages(req.Language, promptQuestionsSystem, promptQuestionsUser, data)
	if err != nil {
		return b.failed(OpGenerateQuestions, err)
	}

	return b.call(ctx, OpGenerateQuestions, CompletionRequest{
		Model:      b.cfg.ChatModel,
		Messages:   msgs,
		MaxTokens:  b.cfg.MaxTokens,
		JSONOutput: true,
	})
}

type CodeReviewRequest struct {
	Code           string
	Language       string
	Specifications string
	Standards      string
	ReviewLanguage assessment.Language
}

func (b *Bridge) AnalyzeCode(ctx context.Context, req CodeReviewRequest) Response {
	data := struct {
		Code           string
		Language       string
		Specifications string
		Standards      string
		Fence          string
	}{req.Code, req.Language, req.Specifications, req.Standards, fence}

	msgs, err := b.messages(req.ReviewLanguage, promptReviewSystem, promptReviewUser, data)
	if err != nil {
		return b.failed(OpAnalyzeCode, err)
	}

	return b.call(ctx, OpAnalyzeCode, CompletionRequest{
		Model:      b.cfg.ChatModel,
		Messages:   msgs,
		MaxTokens:  b.cfg.MaxTokens,
		JSONOutput: true,
	})
}

type ExamRequest struct {
	LatexContent      string
	NumberOfQuestions int
	Difficulty        assessment.Difficulty
	Language          assessment.Language
	Topic             string
}

// GenerateMCQFromLatex builds a multiple-choice exam out of LaTeX course
// material. It uses the larger exam token allowance.
func (b *Bridge) GenerateMCQFromLatex(ctx context.Context, req ExamRequest) Response {
	if req.NumberOfQuestions <= 0 {
		req.NumberOfQuestions = 20
	}
	if req.Difficulty == "" {
		req.Difficulty = assessment.Intermediate
	}

	data := struct {
		NumberOfQuestions int
		Difficulty        assessment.Difficulty
		Topic             string
		Latex             string
	}{req.NumberOfQuestions, req.Difficulty, req.Topic, req.LatexContent}

	msgs, err := b.messages(req.Language, promptExamSystem, promptExamUser, data)
	if err != nil {
		return b.failed(OpGenerateExam, err)
	}

	return b.call(ctx, OpGenerateExam, CompletionRequest{
		Model:      b.cfg.ChatModel,
		Messages:   msgs,
		MaxTokens:  b.cfg.ExamMaxTokens,
		JSONOutput: true,
	})
}

type ValidationRequest struct {
	Question         string
	StudentCode      string
	ExpectedSolution string
	TestCases        []assessment.TestCase
	Language         assessment.Language
}

func (b *Bridge) ValidateCodeAnswer(ctx context.Context, req ValidationRequest) Response {
	data := struct {
		Question         string
		StudentCode      string
		ExpectedSolution string
		TestCases        []assessment.TestCase
		Fence            string
	}{req.Question, req.StudentCode, req.ExpectedSolution, req.TestCases, fence}

	msgs, err := b.messages(req.Language, promptGradeSystem, promptGradeUser, data)
	if err != nil {
		return b.failed(OpValidateCode, err)
	}

	return b.call(ctx, OpValidateCode, CompletionRequest{
		Model:      b.cfg.ChatModel,
		Messages:   msgs,
		MaxTokens:  b.cfg.MaxTokens,
		JSONOutput: true,
	})
}

// GenerateEducationalImage asks the image model for an illustration. The
// returned Data is whatever the image model answers with, usually a URL.
func (b *Bridge) GenerateEducationalImage(ctx context.Context, description, imageContext string) Response {
	if imageContext == "" {
		imageContext = "educational platform"
	}

	prompt, err := render(promptImage, assessment.English, struct {
		Description string
		Context     string
	}{description, imageContext})
	if err != nil {
		return b.failed(OpGenerateImage, err)
	}

	return b.call(ctx, OpGenerateImage, CompletionRequest{
		Model:     b.cfg.ImageModel,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: b.cfg.MaxTokens,
	})
}

func (b *Bridge) messages(lang assessment.Language, systemName, userName string, data any) ([]Message, error) {
	system, err := render(systemName, lang, data)
	if err != nil {
		return nil, err
	}
	user, err := render(userName, lang, data)
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, nil
}

// call performs exactly one completion. The caller's cancellation is not
// propagated: a client that disconnects does not abort the upstream request,
// which is still bounded by the configured timeout.
func (b *Bridge) call(ctx context.Context, op string, req CompletionRequest) Response {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.Timeout)
	defer cancel()

	req.Temperature = b.cfg.Temperature

	ctx, span := b.tracer.Start(ctx, "ai."+op, trace.WithAttributes(
		attribute.String("ai.model", req.Model),
		attribute.Int("ai.max_tokens", req.MaxTokens),
	))
	defer span.End()

	start := time.Now()
	out, err := b.completer.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		b.observe(op, "error", elapsed, nil)

		b.log.ErrorContext(ctx, "ai completion failed",
			"operation", op,
			"model", req.Model,
			"duration_ms", elapsed.Milliseconds(),
			"err", err,
		)
		return Response{Success: false, Error: b.publicReason(err)}
	}

	if out.Usage != nil {
		span.SetAttributes(
			attribute.Int("ai.prompt_tokens", out.Usage.PromptTokens),
			attribute.Int("ai.completion_tokens", out.Usage.CompletionTokens),
		)
	}
	b.observe(op, "ok", elapsed, out.Usage)

	b.log.InfoContext(ctx, "ai completion",
		"operation", op,
		"model", req.Model,
		"duration_ms", elapsed.Milliseconds(),
		"chars", len(out.Text),
	)

	return Response{Success: true, Data: out.Text, Usage: out.Usage}
}

func (b *Bridge) failed(op string, err error) Response {
	b.log.Error("ai prompt rendering failed", "operation", op, "err", err)
	return Response{Success: false, Error: "Unknown AI service error"}
}

func (b *Bridge) observe(op, result string, elapsed time.Duration, u *Usage) {
	if b.recorder == nil {
		return
	}
	var prompt, completion int
	if u != nil {
		prompt, completion = u.PromptTokens, u.CompletionTokens
	}
	b.recorder.ObserveCompletion(op, result, elapsed, prompt, completion)
}

func (b *Bridge) publicReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("AI request timed out after %s", b.cfg.Timeout)
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Reason
	}

	return "Unknown AI service error"
}
