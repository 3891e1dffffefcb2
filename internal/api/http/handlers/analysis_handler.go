package handlers

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/service"
	"github.com/spec-kit/noc-incidents/internal/telemetry"
	apperrors "github.com/spec-kit/noc-incidents/pkg/util/errorutil"
)

// AnalysisHandler accepts telemetry uploads.
type AnalysisHandler struct {
	service *service.IncidentService
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(incidents *service.IncidentService) *AnalysisHandler {
	return &AnalysisHandler{service: incidents}
}

// Analyze POST /analysis.
//
// The telemetry is either a multipart "file" field, whose extension picks
// the format, or the raw body with the format taken from ?format= or the
// Content-Type. Query flags period_hours, create_tickets, reactive and
// per_device override the configured defaults.
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	table, err := readTable(c)
	if err != nil {
		return err
	}

	opts := h.service.DefaultOptions()
	opts.PeriodHours = c.QueryInt("period_hours", opts.PeriodHours)
	if opts.PeriodHours < 2 {
		return apperrors.NewValidationError("period_hours must be at least 2", nil)
	}
	opts.WindowTickets = c.QueryBool("create_tickets", opts.WindowTickets)
	opts.ReactiveTickets = c.QueryBool("reactive", opts.ReactiveTickets)
	opts.PerDevice = c.QueryBool("per_device", opts.PerDevice)

	result, err := h.service.Ingest(c.UserContext(), table, opts)
	if err != nil {
		var insufficient *pattern.InsufficientDataError
		if errors.As(err, &insufficient) && result != nil {
			partial := dto.NewAnalysisResponse(result)
			return apperrors.NewUnprocessable(apperrors.CodeInsufficientData,
				"not enough data to decompose the error rate",
				map[string]any{
					"bins":     insufficient.Bins,
					"required": insufficient.Required,
					"heatmap":  partial.Heatmap,
					"tickets":  partial.Tickets,
				}).Wrap(err)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAnalysisResponse(result)})
}

func readTable(c *fiber.Ctx) (telemetry.Table, error) {
	if fh, err := c.FormFile("file"); err == nil {
		format, err := telemetry.FormatFromName(fh.Filename)
		if err != nil {
			return telemetry.Table{}, apperrors.NewValidationError(err.Error(), nil)
		}
		f, err := fh.Open()
		if err != nil {
			return telemetry.Table{}, err
		}
		defer f.Close()
		return parseTable(telemetry.Read(f, format))
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return telemetry.Table{}, apperrors.NewValidationError("telemetry file or body required", nil)
	}
	format := telemetry.FormatCSV
	switch name := strings.ToLower(c.Query("format")); {
	case name != "":
		f, err := telemetry.FormatFromName("upload." + name)
		if err != nil {
			return telemetry.Table{}, apperrors.NewValidationError(err.Error(), nil)
		}
		format = f
	case strings.Contains(strings.ToLower(c.Get(fiber.HeaderContentType)), "json"):
		format = telemetry.FormatJSON
	}
	return parseTable(telemetry.Read(bytes.NewReader(body), format))
}

func parseTable(table telemetry.Table, err error) (telemetry.Table, error) {
	if err != nil {
		return table, apperrors.NewValidationError("unreadable telemetry: "+err.Error(), nil)
	}
	return table, nil
}
