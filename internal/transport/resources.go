package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"symbolicd/internal/model"
)

// registerResources publishes the three read-only resources from
// spec.md §6.2: the compiled security policy, the server's resource
// limits, and a capability manifest whose tool schemas are generated
// via jsonschema-go rather than hand-written, so they never drift from
// the Go structs the tools actually bind to.
func (s *Server) registerResources() {
	mcp.AddResource(s.mcp, &mcp.Resource{
		URI:         "config://security",
		Name:        "security-policy",
		Description: "The compiled module/builtin/global policy tables enforced by the static validator.",
		MIMEType:    "application/json",
	}, s.readSecurityPolicy)

	mcp.AddResource(s.mcp, &mcp.Resource{
		URI:         "config://server",
		Name:        "server-limits",
		Description: "The active numeric limits: memory cap, code size limit, coverage threshold, and timeouts.",
		MIMEType:    "application/json",
	}, s.readServerLimits)

	mcp.AddResource(s.mcp, &mcp.Resource{
		URI:         "info://capabilities",
		Name:        "capabilities",
		Description: "JSON Schema for every tool's arguments and result shape.",
		MIMEType:    "application/json",
	}, s.readCapabilities)
}

func jsonResourceContents(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("transport: marshal resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) readSecurityPolicy(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	type policyView struct {
		AllowedModules    []string `json:"allowed_modules"`
		BlockedModules    []string `json:"blocked_modules"`
		DangerousBuiltins []string `json:"dangerous_builtins"`
		BlockedGlobals    []string `json:"blocked_globals"`
	}
	view := policyView{}
	for m := range s.cfg.Policy.AllowedModules {
		view.AllowedModules = append(view.AllowedModules, m)
	}
	for m := range s.cfg.Policy.BlockedModules {
		view.BlockedModules = append(view.BlockedModules, m)
	}
	for b := range s.cfg.Policy.DangerousBuiltins {
		view.DangerousBuiltins = append(view.DangerousBuiltins, b)
	}
	for g := range s.cfg.Policy.BlockedGlobals {
		view.BlockedGlobals = append(view.BlockedGlobals, g)
	}
	return jsonResourceContents(req.Params.URI, view)
}

func (s *Server) readServerLimits(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResourceContents(req.Params.URI, s.cfg.Limits)
}

func (s *Server) readCapabilities(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	type operation struct {
		Name   string             `json:"name"`
		Input  *jsonschema.Schema `json:"input_schema"`
		Output *jsonschema.Schema `json:"output_schema"`
	}

	mustSchema := func(schema *jsonschema.Schema, err error) *jsonschema.Schema {
		if err != nil {
			log.Warn("capabilities: schema generation failed: %v", err)
			return nil
		}
		return schema
	}

	ops := []operation{
		{Name: "contract_check", Input: mustSchema(jsonschema.For[ContractCheckInput](nil)), Output: mustSchema(jsonschema.For[model.ContractCheckResult](nil))},
		{Name: "exception_path", Input: mustSchema(jsonschema.For[ExceptionPathInput](nil)), Output: mustSchema(jsonschema.For[model.ExceptionPathResult](nil))},
		{Name: "equivalence", Input: mustSchema(jsonschema.For[EquivalenceInput](nil)), Output: mustSchema(jsonschema.For[model.EquivalenceResult](nil))},
		{Name: "branch_analysis", Input: mustSchema(jsonschema.For[BranchAnalysisInput](nil)), Output: mustSchema(jsonschema.For[model.BranchAnalysisResult](nil))},
		{Name: "health", Input: mustSchema(jsonschema.For[HealthInput](nil)), Output: mustSchema(jsonschema.For[HealthOutput](nil))},
	}

	return jsonResourceContents(req.Params.URI, struct {
		Operations []operation `json:"operations"`
	}{Operations: ops})
}
