package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors"
	gmailconnector "github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors/gmail"
	imapconnector "github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors/imap"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/pipeline"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
)

// Service runs the mailbox intake loop: fetch report emails, process
// pending ones, export finished ones.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log *zap.SugaredLogger
}

func NewService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			s.log.Errorw("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	processedReports, processedRows, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport {
		if err := s.exportProcessed(provider); err != nil {
			return err
		}
	}

	s.log.Infow("listener cycle done",
		"provider", provider, "fetched", fetchResult.Fetched, "stored", fetchResult.Stored,
		"known", fetchResult.Known, "reports", processedReports, "rows", processedRows)
	return nil
}

func (s *Service) exportProcessed(provider string) error {
	reports, err := s.db.ListReportsByStatus("processed", 200)
	if err != nil {
		return err
	}

	for _, report := range reports {
		if report.Provider != provider {
			continue
		}
		rows, err := s.db.GetExportRows(report.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", report.ID, sanitizeMessageID(report.MessageID))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateReportStatus(report.ID, "exported")
	}
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
