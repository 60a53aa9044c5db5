// Package transport exposes the orchestrator's four analysis
// operations over MCP (spec.md §6), built on the real
// github.com/modelcontextprotocol/go-sdk rather than a hand-rolled
// JSON-RPC framer — grounded on Aureuma-si/tools/credentials-mcp's
// mcp.NewServer/mcp.AddTool wiring, the only complete MCP server in the
// example pack.
package transport

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"symbolicd/internal/config"
	"symbolicd/internal/logging"
	"symbolicd/internal/model"
	"symbolicd/internal/orchestrator"
)

var log = logging.Get(logging.CategoryTransport)

// Server wraps an *orchestrator.Orchestrator in an MCP server exposing
// the four analysis operations as tools, plus the health check and the
// three read-only config/capability resources from spec.md §6.2.
type Server struct {
	orch *orchestrator.Orchestrator
	cfg  *config.Config
	mcp  *mcp.Server
}

// NewServer builds the MCP server and registers every tool and
// resource. Callers run it over a transport via Serve.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	impl := &mcp.Implementation{
		Name:    "symbolicd",
		Title:   "Symbolic Execution Analysis Service",
		Version: "0.1.0",
	}
	s := &Server{orch: orch, cfg: cfg}
	s.mcp = mcp.NewServer(impl, &mcp.ServerOptions{HasTools: true, HasResources: true})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "contract_check",
		Description: "Symbolically explore a function's paths and check every inline assertion against its branch guards, reporting a concrete counterexample for each violating path found.",
	}, s.contractCheck)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "exception_path",
		Description: "Determine whether a named exception type can be raised by a function, and if so, return concrete inputs that trigger it.",
	}, s.exceptionPath)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "equivalence",
		Description: "Check whether two functions compute the same result over their shared parameters, or return a distinguishing input if they don't.",
	}, s.equivalence)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "branch_analysis",
		Description: "Report every decision point in a function, its cyclomatic complexity, and (in symbolic mode) which branches are unreachable.",
	}, s.branchAnalysis)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "health",
		Description: "Report service liveness and the active security policy's summary.",
	}, s.health)

	s.registerResources()
	return s
}

// Serve runs the MCP server to completion over t.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	log.Info("starting MCP transport")
	return s.mcp.Run(ctx, t)
}

// ServeStdio runs the server over the SDK's own stdio transport, the
// default per SPEC_FULL.md's transport section; internal/transport/stdio
// holds the hand-rolled fallback for environments without it.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// ContractCheckInput, ExceptionPathInput, EquivalenceInput, and
// BranchAnalysisInput mirror the JSON request shapes from spec.md §6.1.
// There are no matching Output types: each handler returns the
// orchestrator's model result type as the tool's structured output.

type ContractCheckInput struct {
	Source       string `json:"source"`
	FunctionName string `json:"function_name"`
	TimeoutSec   int    `json:"timeout_seconds,omitempty"`
}

type ExceptionPathInput struct {
	Source        string `json:"source"`
	FunctionName  string `json:"function_name"`
	ExceptionType string `json:"exception_type"`
	TimeoutSec    int    `json:"timeout_seconds,omitempty"`
}

type EquivalenceInput struct {
	Source       string `json:"source"`
	FunctionA    string `json:"function_a"`
	FunctionB    string `json:"function_b"`
	TimeoutSec   int    `json:"timeout_seconds,omitempty"`
}

type BranchAnalysisInput struct {
	Source       string `json:"source"`
	FunctionName string `json:"function_name"`
	TimeoutSec   int    `json:"timeout_seconds,omitempty"`
	Symbolic     bool   `json:"symbolic_mode,omitempty"`
}

type HealthInput struct{}

type HealthOutput struct {
	Status        string `json:"status"`
	PolicySummary string `json:"policy_summary"`
	CoreVersion   string `json:"core_version"`
}

func (s *Server) contractCheck(ctx context.Context, _ *mcp.CallToolRequest, in ContractCheckInput) (*mcp.CallToolResult, model.ContractCheckResult, error) {
	out := s.orch.ContractCheck(ctx, in.Source, in.FunctionName, in.TimeoutSec)
	return nil, out, nil
}

func (s *Server) exceptionPath(ctx context.Context, _ *mcp.CallToolRequest, in ExceptionPathInput) (*mcp.CallToolResult, model.ExceptionPathResult, error) {
	out := s.orch.ExceptionPath(ctx, in.Source, in.FunctionName, in.ExceptionType, in.TimeoutSec)
	return nil, out, nil
}

func (s *Server) equivalence(ctx context.Context, _ *mcp.CallToolRequest, in EquivalenceInput) (*mcp.CallToolResult, model.EquivalenceResult, error) {
	out := s.orch.Equivalence(ctx, in.Source, in.FunctionA, in.FunctionB, in.TimeoutSec)
	return nil, out, nil
}

func (s *Server) branchAnalysis(ctx context.Context, _ *mcp.CallToolRequest, in BranchAnalysisInput) (*mcp.CallToolResult, model.BranchAnalysisResult, error) {
	out := s.orch.BranchAnalysis(ctx, in.Source, in.FunctionName, in.TimeoutSec, in.Symbolic)
	return nil, out, nil
}

func (s *Server) health(_ context.Context, _ *mcp.CallToolRequest, _ HealthInput) (*mcp.CallToolResult, HealthOutput, error) {
	return nil, HealthOutput{
		Status:        "ok",
		PolicySummary: fmt.Sprintf("%d allowed modules, %d blocked modules", len(s.cfg.Policy.AllowedModules), len(s.cfg.Policy.BlockedModules)),
		CoreVersion:   "0.1.0",
	}, nil
}
