package pipeline

import (
	"fmt"
	"os"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

// ExtractFromInput parses a single local input outside the mail flow.
func (p *ProtocolParser) ExtractFromInput(inputType, input string) ([]internal.ParsedProtocol, error) {
	switch inputType {
	case "email_text":
		results := parseResultLines(input)
		return []internal.ParsedProtocol{{Source: internal.SourceEmailText, Results: results}}, nil
	case "email_table":
		return parseHTMLResultTables(input), nil
	case "xlsx":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return p.ParseWorkbook(blob)
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		list, err := p.ParsePDFList(blob, input)
		if err != nil {
			return nil, err
		}
		return []internal.ParsedProtocol{listToProtocol(list)}, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}
