package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors"
	gmailconnector "github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors/gmail"
	imapconnector "github.com/BeliaevDmitry/VSOKO-sub001/internal/connectors/imap"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/listener"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/logging"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/pipeline"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/registry"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logging.New()
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "registry:sync":
		svc := registry.NewSyncService(db, cfg, log)
		count, err := svc.FullSync(context.Background())
		must(err)
		fmt.Printf("registry sync complete: %d teachers\n", count)
	case "registry:dedupe":
		teachers, err := db.ListActiveTeachers()
		must(err)
		pairs := registry.FindDuplicates(teachers, cfg.SimilarityMin)
		for _, p := range pairs {
			fmt.Printf("possible duplicate (%.2f): [%d] %s <-> [%d] %s\n", p.Similarity, p.A.ID, p.A.FullName, p.B.ID, p.B.FullName)
		}
		fmt.Printf("checked %d teachers, %d suspect pairs\n", len(teachers), len(pairs))
	case "registry:find":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "raw teacher name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" {
			must(fmt.Errorf("--name is required"))
		}
		hit, err := db.FindTeacherByNormalizedName(util.NormalizeName(*name))
		must(err)
		if hit != nil {
			fmt.Printf("exact: [%d] %s\n", hit.ID, hit.FullName)
			return
		}
		teachers, err := db.ListActiveTeachers()
		must(err)
		similar := registry.SimilarTo(*name, teachers, cfg.SimilarityMin)
		for _, t := range similar {
			fmt.Printf("similar: [%d] %s\n", t.ID, t.FullName)
		}
		fmt.Printf("no exact match, %d similar candidates\n", len(similar))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, log)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed report id=%d rows=%d\n", res.ReportID, res.Processed)
			return
		}
		processedReports, processedRows, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending reports=%d rows=%d\n", processedReports, processedRows)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		reportID := fs.Int("reportId", 0, "internal report id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *reportID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--reportId and --out are required"))
		}
		rows, err := db.GetExportRows(*reportID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for reportId=%d", *reportID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "mail:listen":
		s := listener.NewService(db, cfg, log)
		must(s.Run(context.Background()))
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "", "xlsx|pdf|email_text|email_table")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *inType == "" || *output == "" {
			must(fmt.Errorf("--input --type --output are required"))
		}

		parser := pipeline.NewProtocolParser(cfg, log)
		protocols, err := parser.ExtractFromInput(*inType, *input)
		must(err)
		teachers, err := db.ListActiveTeachers()
		must(err)
		idx := registry.BuildIndex(teachers)
		matcher := pipeline.NewMatcher(log)

		exportRows := make([]internal.ResultExportRow, 0)
		for _, protocol := range protocols {
			if protocol.Skipped {
				log.Warnw("protocol skipped", "sheet", protocol.Sheet, "reason", protocol.SkipReason)
				continue
			}
			match := internal.TeacherMatch{Layer: internal.LayerNone}
			if protocol.Meta.TeacherRaw != "" {
				match = matcher.FindBest(protocol.Meta.TeacherRaw, idx)
			}
			for _, result := range protocol.Results {
				row := internal.ResultExportRow{
					RowNo:         result.RowNo,
					Source:        string(protocol.Source),
					Sheet:         protocol.Sheet,
					StudentName:   result.StudentName,
					ClassLabel:    result.ClassLabel,
					Subject:       protocol.Meta.Subject,
					TestDate:      protocol.Meta.TestDate,
					Scores:        result.Scores.Display(),
					Total:         result.Total,
					TotalMismatch: result.TotalMismatch,
					TeacherRaw:    protocol.Meta.TeacherRaw,
					MatchLayer:    string(match.Layer),
				}
				if row.ClassLabel == "" {
					row.ClassLabel = protocol.Meta.ClassLabel
				}
				if match.Matched && match.Teacher != nil {
					row.TeacherID = &match.Teacher.ID
					row.TeacherFullName = &match.Teacher.FullName
				}
				exportRows = append(exportRows, row)
			}
		}
		must(pipeline.ExportRowsToXLSX(exportRows, *output))
		fmt.Printf("run done rows=%d output=%s\n", len(exportRows), *output)
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: vsoko <command>")
	fmt.Println("commands:")
	fmt.Println("  registry:sync")
	fmt.Println("  registry:dedupe")
	fmt.Println("  registry:find --name=\"Иванова М.П.\"")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --reportId=1 --out=./out/result.xlsx")
	fmt.Println("  run --input=... --type=xlsx|pdf|email_text|email_table --output=...xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
