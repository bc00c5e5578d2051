package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/livetrain/internal/dynamo"
)

type ExportData struct {
	Run     RunMetadata        `json:"run"`
	Steps   int                `json:"steps"`
	Samples []dynamo.Telemetry `json:"samples"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExportJSON writes a run and its samples as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, samples []dynamo.Telemetry) error {
	data := ExportData{
		Run:     meta,
		Steps:   meta.Steps,
		Samples: samples,
		Metrics: meta.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Export loads a stored run and writes it with ExportJSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadTelemetry(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, *meta, samples)
}
