package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eduai/internal/ai"
	"github.com/geocoder89/eduai/internal/domain/assessment"
)

// Assistant is the set of bridge operations exposed over HTTP.
type Assistant interface {
	GenerateCodeQuestions(ctx context.Context, req ai.QuestionsRequest) ai.Response
	AnalyzeCode(ctx context.Context, req ai.CodeReviewRequest) ai.Response
	GenerateMCQFromLatex(ctx context.Context, req ai.ExamRequest) ai.Response
	ValidateCodeAnswer(ctx context.Context, req ai.ValidationRequest) ai.Response
	GenerateEducationalImage(ctx context.Context, description, imageContext string) ai.Response
}

type AIHandler struct {
	bridge Assistant
	log    *slog.Logger
}

func NewAIHandler(bridge Assistant, log *slog.Logger) *AIHandler {
	return &AIHandler{bridge: bridge, log: log}
}

type GenerateQuestionsRequest struct {
	Topic      string `json:"topic" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
	Count      int    `json:"count" binding:"omitempty,min=1,max=50"`
	Language   string `json:"language"`
}

type AnalyzeCodeRequest struct {
	Code           string `json:"code" binding:"required"`
	Language       string `json:"language" binding:"required"`
	Specifications string `json:"specifications"`
	Standards      string `json:"standards"`
	ReviewLanguage string `json:"reviewLanguage"`
}

type GenerateExamRequest struct {
	LatexContent      string `json:"latexContent" binding:"required"`
	NumberOfQuestions int    `json:"numberOfQuestions" binding:"omitempty,min=1,max=100"`
	Difficulty        string `json:"difficulty"`
	Language          string `json:"language"`
	Topic             string `json:"topic"`
}

type ValidateCodeRequest struct {
	Question         string                `json:"question" binding:"required"`
	StudentCode      string                `json:"studentCode" binding:"required"`
	ExpectedSolution string                `json:"expectedSolution"`
	TestCases        []assessment.TestCase `json:"testCases"`
	Language         string                `json:"language"`
}

type GenerateImageRequest struct {
	Description string `json:"description" binding:"required"`
	Context     string `json:"context"`
}

func (h *AIHandler) GenerateQuestions(ctx *gin.Context) {
	var req GenerateQuestionsRequest
	if !BindJSON(ctx, &req, "Topic and difficulty are required") {
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}

	resp := h.bridge.GenerateCodeQuestions(ctx.Request.Context(), ai.QuestionsRequest{
		Topic:      req.Topic,
		Difficulty: assessment.Difficulty(req.Difficulty),
		Count:      req.Count,
		Language:   assessment.NormalizeLanguage(req.Language),
	})

	h.respond(ctx, ai.OpGenerateQuestions, resp, "Failed to generate questions", "Questions generated successfully",
		func(r ai.Response) (any, error) { return ai.ParseRequired(r, "questions") })
}

func (h *AIHandler) AnalyzeCode(ctx *gin.Context) {
	var req AnalyzeCodeRequest
	if !BindJSON(ctx, &req, "Code and language are required") {
		return
	}

	resp := h.bridge.AnalyzeCode(ctx.Request.Context(), ai.CodeReviewRequest{
		Code:           req.Code,
		Language:       req.Language,
		Specifications: req.Specifications,
		Standards:      req.Standards,
		ReviewLanguage: assessment.NormalizeLanguage(req.ReviewLanguage),
	})

	h.respond(ctx, ai.OpAnalyzeCode, resp, "Failed to analyze code", "Code analyzed successfully",
		func(r ai.Response) (any, error) { return ai.ParseRequired(r, "analysis") })
}

func (h *AIHandler) GenerateExam(ctx *gin.Context) {
	var req GenerateExamRequest
	if !BindJSON(ctx, &req, "LaTeX content is required") {
		return
	}
	if req.NumberOfQuestions == 0 {
		req.NumberOfQuestions = 10
	}
	if req.Difficulty == "" {
		req.Difficulty = string(assessment.Intermediate)
	}

	resp := h.bridge.GenerateMCQFromLatex(ctx.Request.Context(), ai.ExamRequest{
		LatexContent:      req.LatexContent,
		NumberOfQuestions: req.NumberOfQuestions,
		Difficulty:        assessment.Difficulty(req.Difficulty),
		Language:          assessment.NormalizeLanguage(req.Language),
		Topic:             req.Topic,
	})

	h.respond(ctx, ai.OpGenerateExam, resp, "Failed to generate exam", "Exam generated successfully",
		func(r ai.Response) (any, error) { return ai.ParseRequired(r, "exam.questions") })
}

func (h *AIHandler) ValidateCode(ctx *gin.Context) {
	var req ValidateCodeRequest
	if !BindJSON(ctx, &req, "Question and student code are required") {
		return
	}
	if req.TestCases == nil {
		req.TestCases = []assessment.TestCase{}
	}

	resp := h.bridge.ValidateCodeAnswer(ctx.Request.Context(), ai.ValidationRequest{
		Question:         req.Question,
		StudentCode:      req.StudentCode,
		ExpectedSolution: req.ExpectedSolution,
		TestCases:        req.TestCases,
		Language:         assessment.NormalizeLanguage(req.Language),
	})

	h.respond(ctx, ai.OpValidateCode, resp, "Failed to validate code", "Code validated successfully",
		func(r ai.Response) (any, error) { return ai.ParseRequired(r, "evaluation") })
}

// GenerateImage returns the image model's reply as is; it is not JSON.
func (h *AIHandler) GenerateImage(ctx *gin.Context) {
	var req GenerateImageRequest
	if !BindJSON(ctx, &req, "Description is required") {
		return
	}

	resp := h.bridge.GenerateEducationalImage(ctx.Request.Context(), req.Description, req.Context)

	h.respond(ctx, ai.OpGenerateImage, resp, "Failed to generate image", "Image generated successfully",
		func(r ai.Response) (any, error) {
			if r.Data == "" {
				return nil, ai.ErrParse
			}
			return gin.H{"content": r.Data}, nil
		})
}

func (h *AIHandler) respond(
	ctx *gin.Context,
	op string,
	resp ai.Response,
	failure, success string,
	decode func(ai.Response) (any, error),
) {
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = failure
		}
		RespondError(ctx, http.StatusInternalServerError, "upstream_error", msg, nil)
		return
	}

	data, err := decode(resp)
	if err != nil {
		if errors.Is(err, ai.ErrParse) || errors.Is(err, ai.ErrIncomplete) || errors.Is(err, ai.ErrUnsuccessful) {
			h.log.WarnContext(ctx.Request.Context(), "unparseable ai response",
				"operation", op,
				"err", err,
				"chars", len(resp.Data),
			)
			RespondError(ctx, http.StatusInternalServerError, "parse_error", "Failed to parse AI response", nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "ai response handling failed", "operation", op, "err", err)
		RespondInternal(ctx, "Internal server error")
		return
	}

	RespondOK(ctx, http.StatusOK, data, success)
}
