package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"review-digest/api/dto"
	"review-digest/models"
	"review-digest/pipeline"
)

type Analyzer interface {
	RunAnalysis(ctx context.Context, query string) (*pipeline.Analysis, error)
}

type CallLogFinder interface {
	FindByAnalysisID(ctx context.Context, analysisID string) ([]models.AILog, error)
}

// CreateAnalysisHandler godoc
// @Summary      Analyze product reviews
// @Description  Collect, filter and summarize the reviews of one product. Runs to completion even if the client disconnects.
// @Tags         analyses
// @Accept       json
// @Param        body  body  dto.AnalyzeRequestDTO  true  "Product search query"
// @Produce      json
// @Success      200  {object}  dto.AnalysisDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Failure      422  {object}  dto.ErrorResponseDTO
// @Failure      502  {object}  dto.ErrorResponseDTO
// @Failure      503  {object}  dto.ErrorResponseDTO
// @Router       /analyses [post]
func CreateAnalysisHandler(analyzer Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.AnalyzeRequestDTO
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
			return
		}

		res, err := analyzer.RunAnalysis(context.WithoutCancel(c.Request.Context()), in.Query)
		if err != nil {
			_ = c.Error(err)
			status, body := errorResponse(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, dto.NewAnalysisDTO(res))
	}
}

// ListCallLogsHandler godoc
// @Summary      List model call logs
// @Description  Model calls made by one analysis, in call order
// @Tags         analyses
// @Param        id   path   string  true  "Analysis ID"
// @Produce      json
// @Success      200  {array}   models.AILog
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /analyses/{id}/logs [get]
func ListCallLogsHandler(finder CallLogFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if finder == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "call_logs_disabled"})
			return
		}
		logs, err := finder.FindByAnalysisID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

func errorResponse(err error) (int, dto.ErrorResponseDTO) {
	if errors.Is(err, pipeline.ErrEmptyQuery) {
		return http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()}
	}

	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		return http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "internal_error", Message: "The analysis failed unexpectedly."}
	}

	status := http.StatusInternalServerError
	switch stageErr.Stage {
	case pipeline.StageCollection:
		status = http.StatusBadGateway
	case pipeline.StageNoReviews:
		status = http.StatusUnprocessableEntity
	case pipeline.StageSummarization:
		status = http.StatusServiceUnavailable
	}
	return status, dto.ErrorResponseDTO{
		Error:   "analysis_failed",
		Stage:   string(stageErr.Stage),
		Message: stageErr.UserMessage(),
	}
}
