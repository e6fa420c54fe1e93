package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

// DocAI wraps Document AI online processing for structural text extraction.
type DocAI interface {
	ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error)
	Configured() bool
	Close() error
}

type DocAIPage struct {
	Page int
	Text string
}

type DocAITable struct {
	Page     int
	Markdown string
}

type DocAIResult struct {
	Processor   string
	MimeType    string
	PrimaryText string
	Pages       []DocAIPage
	Tables      []DocAITable
}

type docAIService struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

func NewDocAI(log *logger.Logger, projectID, location, processorID string) (DocAI, error) {
	slog := log.With("service", "gcp.DocAI")

	projectID = strings.TrimSpace(projectID)
	processorID = strings.TrimSpace(processorID)
	location = strings.TrimSpace(location)
	if location == "" {
		location = "us"
	}
	if projectID == "" || processorID == "" {
		slog.Warn("Document AI not configured, structural extraction disabled")
		return &docAIService{log: slog}, nil
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	client, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	processor := fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID)
	slog.Info("Document AI initialized", "endpoint", endpoint)

	return &docAIService{log: slog, client: client, processor: processor}, nil
}

func (s *docAIService) Configured() bool { return s != nil && s.client != nil }

func (s *docAIService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *docAIService) ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("documentai not configured")
	}
	if len(data) == 0 {
		return &DocAIResult{Processor: s.processor, MimeType: mimeType}, nil
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocAIResult{Processor: s.processor, MimeType: mimeType}, nil
	}
	return buildDocAIResult(resp.Document, s.processor, mimeType), nil
}

func buildDocAIResult(doc *documentaipb.Document, processor, mimeType string) *DocAIResult {
	out := &DocAIResult{
		Processor:   processor,
		MimeType:    mimeType,
		PrimaryText: strings.TrimSpace(doc.Text),
	}

	for _, p := range doc.Pages {
		if p == nil {
			continue
		}
		pageNum := int(p.PageNumber)

		var pageText strings.Builder
		for _, para := range p.Paragraphs {
			if para == nil || para.Layout == nil || para.Layout.TextAnchor == nil {
				continue
			}
			t := strings.TrimSpace(textFromAnchor(doc.Text, para.Layout.TextAnchor))
			if t == "" {
				continue
			}
			pageText.WriteString(t)
			pageText.WriteString("\n")
		}
		if pt := strings.TrimSpace(pageText.String()); pt != "" {
			out.Pages = append(out.Pages, DocAIPage{Page: pageNum, Text: pt})
		}

		for _, table := range p.Tables {
			md := strings.TrimSpace(tableToMarkdown(doc.Text, table))
			if md == "" {
				continue
			}
			out.Tables = append(out.Tables, DocAITable{Page: pageNum, Markdown: md})
		}
	}

	// Some processors populate doc.Text but omit structured paragraphs.
	if len(out.Pages) == 0 && out.PrimaryText != "" {
		out.Pages = append(out.Pages, DocAIPage{Page: 1, Text: out.PrimaryText})
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func tableToMarkdown(full string, t *documentaipb.Document_Page_Table) string {
	if t == nil {
		return ""
	}

	var header []string
	if len(t.HeaderRows) > 0 && t.HeaderRows[0] != nil {
		header = tableRowToCells(full, t.HeaderRows[0])
	}
	bodyRows := append([]*documentaipb.Document_Page_Table_TableRow{}, t.BodyRows...)
	if len(header) == 0 && len(bodyRows) > 0 && bodyRows[0] != nil {
		header = tableRowToCells(full, bodyRows[0])
		bodyRows = bodyRows[1:]
	}
	if len(header) == 0 {
		return ""
	}

	rows := [][]string{header}
	for _, r := range bodyRows {
		if r == nil {
			continue
		}
		rows = append(rows, tableRowToCells(full, r))
	}

	maxCols := 0
	for _, r := range rows {
		if len(r) > maxCols {
			maxCols = len(r)
		}
	}
	if maxCols == 0 {
		return ""
	}
	for i := range rows {
		for len(rows[i]) < maxCols {
			rows[i] = append(rows[i], "")
		}
	}

	var out strings.Builder
	out.WriteString("| ")
	out.WriteString(strings.Join(escapePipes(rows[0]), " | "))
	out.WriteString(" |\n| ")
	sep := make([]string, maxCols)
	for i := range sep {
		sep[i] = "---"
	}
	out.WriteString(strings.Join(sep, " | "))
	out.WriteString(" |\n")
	for i := 1; i < len(rows); i++ {
		out.WriteString("| ")
		out.WriteString(strings.Join(escapePipes(rows[i]), " | "))
		out.WriteString(" |\n")
	}
	return out.String()
}

func tableRowToCells(full string, r *documentaipb.Document_Page_Table_TableRow) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c == nil || c.Layout == nil || c.Layout.TextAnchor == nil {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(textFromAnchor(full, c.Layout.TextAnchor)))
	}
	return out
}

func escapePipes(row []string) []string {
	out := make([]string, len(row))
	for i, s := range row {
		out[i] = strings.ReplaceAll(s, "|", "\\|")
	}
	return out
}
