package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/embeddings"
	"github.com/clinforge/fieldmap/pkg/match"
)

// ErrorResponse is the JSON error body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TrainResponse reports what a training run produced.
type TrainResponse struct {
	Samples   int `json:"samples"`
	Positives int `json:"positives"`
}

// PredictResponse carries the per-event mapping results, plus ranked
// advisory suggestions for review events when requested.
type PredictResponse struct {
	Results     []match.EventResult           `json:"results"`
	Suggestions map[string][]match.Suggestion `json:"suggestions,omitempty"`
}

// FeedbackRequest is a reviewer's canonical label for one source event.
type FeedbackRequest struct {
	EventOID string `json:"eventOid"`
	Label    string `json:"label"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleTrain ingests a multipart upload with a "source" StudyData export
// and a "mapping" ViewMapping document.
func (s *Server) handleTrain(c *fiber.Ctx) error {
	source, err := s.formFileBytes(c, "source")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "source file required"})
	}
	mapping, err := s.formFileBytes(c, "mapping")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "mapping file required"})
	}

	stats, err := s.svc.Train(c.Context(), source, mapping)
	if err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("training run complete",
		zap.Int("samples", stats.Samples),
		zap.Int("positives", stats.Positives),
	)
	return c.JSON(TrainResponse{
		Samples:   stats.Samples,
		Positives: stats.Positives,
	})
}

// handlePredict classifies the StudyData export in the request body.
// With ?suggest=true, review events also carry ranked candidates.
func (s *Server) handlePredict(c *fiber.Ctx) error {
	source := c.Body()
	if len(source) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "source document required"})
	}

	results, err := s.svc.Predict(c.Context(), source)
	if err != nil {
		return s.fail(c, err)
	}

	resp := PredictResponse{Results: results}
	if c.QueryBool("suggest") {
		suggestions, err := s.svc.Suggest(c.Context(), source)
		if err != nil {
			return s.fail(c, err)
		}
		resp.Suggestions = suggestions
	}
	return c.JSON(resp)
}

// handleFeedback records a reviewer correction.
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid feedback body"})
	}
	if req.EventOID == "" || req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "eventOid and label required"})
	}

	if err := s.svc.SubmitFeedback(c.Context(), req.EventOID, req.Label); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, edc.ErrParse):
		status = fiber.StatusBadRequest
	case errors.Is(err, match.ErrNoVocabulary):
		status = fiber.StatusConflict
	case errors.Is(err, embeddings.ErrModelUnavailable):
		status = fiber.StatusBadGateway
	}

	s.logger.Warn("request failed",
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Error(err),
	)
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func (s *Server) formFileBytes(c *fiber.Ctx, name string) ([]byte, error) {
	header, err := c.FormFile(name)
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
