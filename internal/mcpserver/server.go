// Package mcpserver exposes the umbrella binding functions as MCP tools so
// editors and agents can check Maya scripts without shelling out.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/umbrella-scan/umbrella"
	"github.com/umbrella-scan/umbrella/internal/logging"
)

// Server wraps the MCP SDK server around an umbrella Scanner.
type Server struct {
	MCPServer *sdkmcp.Server

	scanner *umbrella.Scanner
	opts    []umbrella.Option
	log     *log.Logger
}

// NewServer registers the umbrella tools. opts configure catalog lookups
// (custom signature directories); s performs the scans.
func NewServer(s *umbrella.Scanner, version string, logger *log.Logger, opts ...umbrella.Option) *Server {
	srv := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "umbrella", Version: version}, nil),
		scanner:   s,
		opts:      opts,
		log:       logging.OrDiscard(logger).WithPrefix("mcp"),
	}
	srv.registerTools()
	return srv
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_virus_from_file",
		Description: "Check one file against regular-expression signatures. Unreadable files report infected=false.",
	}, s.handleCheckFile)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_virus_from_files",
		Description: "Check many files concurrently. Returns one verdict per path, in input order.",
	}, s.handleCheckFiles)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "scan_files",
		Description: "Like check_virus_from_files but reports clean, infected or unscannable per path, with the matching signature and line.",
	}, s.handleScanFiles)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_signatures",
		Description: "List the builtin signature catalog, optionally limited to one set (file, jobscript, virus20240430).",
	}, s.handleListSignatures)
}

// --- Tool input/output types ---

type checkFileInput struct {
	Path       string   `json:"path" jsonschema:"file to check"`
	Signatures []string `json:"signatures" jsonschema:"regular expressions; any match marks the file infected"`
}

type checkFileOutput struct {
	Path     string `json:"path"`
	Infected bool   `json:"infected"`
}

type checkFilesInput struct {
	Paths      []string `json:"paths" jsonschema:"files to check"`
	Signatures []string `json:"signatures" jsonschema:"regular expressions; any match marks a file infected"`
}

type checkFilesOutput struct {
	Infected []bool `json:"infected"`
}

type outcome struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
	Line      int    `json:"line,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

type scanFilesOutput struct {
	Outcomes    []outcome `json:"outcomes"`
	Infected    int       `json:"infected"`
	Unscannable int       `json:"unscannable"`
}

type listSignaturesInput struct {
	Set string `json:"set,omitempty" jsonschema:"only signatures in this set"`
}

type listSignaturesOutput struct {
	Signatures []umbrella.SignatureInfo `json:"signatures"`
	Sets       []string                 `json:"sets"`
}

// --- Tool handlers ---

func (s *Server) handleCheckFile(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkFileInput) (*sdkmcp.CallToolResult, checkFileOutput, error) {
	if input.Path == "" {
		return nil, checkFileOutput{}, errors.New("path is required")
	}
	infected, err := s.scanner.CheckVirusFromFile(ctx, input.Path, input.Signatures)
	if err != nil {
		return nil, checkFileOutput{}, fmt.Errorf("check_virus_from_file: %w", err)
	}
	s.log.Debug("checked", "path", input.Path, "infected", infected)
	return nil, checkFileOutput{Path: input.Path, Infected: infected}, nil
}

func (s *Server) handleCheckFiles(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkFilesInput) (*sdkmcp.CallToolResult, checkFilesOutput, error) {
	verdicts, err := s.scanner.CheckVirusFromFiles(ctx, input.Paths, input.Signatures)
	if err != nil {
		return nil, checkFilesOutput{}, fmt.Errorf("check_virus_from_files: %w", err)
	}
	return nil, checkFilesOutput{Infected: verdicts}, nil
}

func (s *Server) handleScanFiles(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkFilesInput) (*sdkmcp.CallToolResult, scanFilesOutput, error) {
	outcomes, err := s.scanner.ScanFiles(ctx, input.Paths, input.Signatures)
	if err != nil {
		return nil, scanFilesOutput{}, fmt.Errorf("scan_files: %w", err)
	}

	out := scanFilesOutput{Outcomes: make([]outcome, len(outcomes))}
	for i, o := range outcomes {
		out.Outcomes[i] = outcome{
			Path:      o.Path,
			Status:    o.Status.String(),
			Signature: o.Signature,
			Line:      o.Line,
			Excerpt:   o.Excerpt,
			Encoding:  o.Encoding,
			ErrorCode: o.ErrorCode,
			Error:     o.Error,
		}
		switch o.Status {
		case umbrella.StatusInfected:
			out.Infected++
		case umbrella.StatusUnscannable:
			out.Unscannable++
		}
	}
	return nil, out, nil
}

func (s *Server) handleListSignatures(_ context.Context, _ *sdkmcp.CallToolRequest, input listSignaturesInput) (*sdkmcp.CallToolResult, listSignaturesOutput, error) {
	opts := s.opts
	if input.Set != "" {
		opts = append(opts[:len(opts):len(opts)], umbrella.WithSets(input.Set))
	}
	sigs, err := umbrella.ListSignatures(opts...)
	if err != nil {
		return nil, listSignaturesOutput{}, err
	}
	sets, err := umbrella.SignatureSets(s.opts...)
	if err != nil {
		return nil, listSignaturesOutput{}, err
	}
	return nil, listSignaturesOutput{Signatures: sigs, Sets: sets}, nil
}
