package pipeline

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/registry"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log *zap.SugaredLogger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

type ProcessResult struct {
	ReportID  int
	Processed int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	report, err := s.db.MustReportByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessReport(report)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListReportsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedReports := 0
	processedRows := 0
	for _, report := range pending {
		if provider != "" && report.Provider != provider {
			continue
		}
		res, err := s.ProcessReport(report)
		if err != nil {
			return processedReports, processedRows, err
		}
		processedReports++
		processedRows += res.Processed
	}
	return processedReports, processedRows, nil
}

func (s *ProcessingService) ProcessReport(report internal.ReportRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(report.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	parser := NewProtocolParser(s.cfg, s.log)
	extraction, err := parser.ExtractFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectReportSubmission(firstNonEmpty(extraction.Subject, report.Subject), extraction.Text, extraction.AttachmentNames)
	if err := s.db.ClearReportResults(report.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsReport {
		_ = s.db.UpdateReportStatus(report.ID, "skipped")
		_ = s.db.InsertRun(traceID(), report.ID,
			map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
			map[string]int{"rows": 0, "resolved": 0, "fallback": 0, "unresolved": 0})
		return ProcessResult{ReportID: report.ID, Processed: 0}, nil
	}

	// The registry snapshot is read and indexed once and stays immutable for
	// the whole report; snapshot order is the matcher's documented tie-break
	// order.
	teachers, err := s.db.ListActiveTeachers()
	if err != nil {
		return ProcessResult{}, err
	}
	idx := registry.BuildIndex(teachers)
	matcher := NewMatcher(s.log)

	rows, resolved, fallback, unresolved := 0, 0, 0, 0
	for _, protocol := range extraction.Protocols {
		if protocol.Skipped {
			s.log.Warnw("protocol skipped", "report", report.ID, "sheet", protocol.Sheet, "reason", protocol.SkipReason)
			continue
		}

		match := internal.TeacherMatch{Layer: internal.LayerNone}
		if protocol.Meta.TeacherRaw != "" {
			match = matcher.FindBest(protocol.Meta.TeacherRaw, idx)
		}

		for _, result := range protocol.Results {
			if err := s.db.InsertResult(report.ID, protocol, result, match); err != nil {
				return ProcessResult{}, err
			}
			rows++
		}

		switch {
		case match.Matched && match.Layer != internal.LayerFallback:
			resolved++
		case match.Matched:
			fallback++
		case protocol.Meta.TeacherRaw != "":
			unresolved++
		}
	}

	if err := s.db.UpdateReportStatus(report.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(traceID(), report.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"rows": rows, "resolved": resolved, "fallback": fallback, "unresolved": unresolved})

	return ProcessResult{ReportID: report.ID, Processed: rows}, nil
}

func traceID() string {
	return uuid.NewString()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
