package dto

import (
	"github.com/spec-kit/noc-incidents/internal/domain"
	"github.com/spec-kit/noc-incidents/internal/service"
)

// AnalysisResponse is the result of POST /analysis.
type AnalysisResponse struct {
	Records       int                         `json:"records"`
	ErrorCount    int                         `json:"error_count"`
	Decomposition *domain.DecompositionResult `json:"decomposition"`
	Heatmap       []domain.HeatmapCell        `json:"heatmap"`
	Windows       []domain.AnomalyWindow      `json:"anomaly_windows"`
	Devices       []service.DeviceAnalysis    `json:"devices,omitempty"`
	Tickets       []TicketResponse            `json:"tickets"`
}

// NewAnalysisResponse maps an ingestion result.
func NewAnalysisResponse(r *service.IngestResult) AnalysisResponse {
	resp := AnalysisResponse{
		Devices: r.Devices,
		Tickets: NewTicketResponses(r.Tickets),
		Windows: []domain.AnomalyWindow{},
	}
	if a := r.Analysis; a != nil {
		resp.Records = a.Records
		resp.ErrorCount = a.ErrorCount
		resp.Decomposition = a.Decomposition
		resp.Heatmap = a.Heatmap
		if a.Windows != nil {
			resp.Windows = a.Windows
		}
	}
	return resp
}
