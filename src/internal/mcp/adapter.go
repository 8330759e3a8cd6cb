// Package mcp adapts the collection operations onto the Model Context
// Protocol. It exposes them as tools, resources and prompts over the stdio
// transport.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
	"gitlab.com/smeitner/collserv/src/internal/collection"
)

var log *l.Entry = l.WithFields(l.Fields{"srv": "mcp"})

// ServerName is the name the adapter announces during initialization
const ServerName = "collserv"

// Adapter owns the protocol server and dispatches requests to the collection
type Adapter struct {
	srv  *server.MCPServer
	coll *collection.Collection
	errs chan error
}

// New creates an adapter over the given collection and registers all tools,
// resources and prompts
func New(coll *collection.Collection, version string) *Adapter {
	me := &Adapter{
		coll: coll,
		errs: make(chan error),
	}

	me.srv = server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	me.registerTools()
	me.registerResources()
	me.registerPrompts()

	return me
}

// Run serves the protocol on stdin/stdout until ctx is cancelled
func (me *Adapter) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Trace("running adapter ...")
	defer log.Trace("adapter stopped")

	stdio := server.NewStdioServer(me.srv)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		me.errs <- errors.Wrap(err, "stdio transport failed")
	}
}

// Errors returns a receive-only channel for errors from the adapter
func (me *Adapter) Errors() <-chan error {
	return me.errs
}

// decodeArgs maps the tool arguments onto v. Unknown fields are rejected so
// that a misspelled filter fails loudly instead of silently matching
// everything.
func decodeArgs(req mcp.CallToolRequest, v any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return errors.Wrap(err, "cannot encode tool arguments")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "invalid tool arguments")
	}
	return nil
}

// result encodes v as an indented JSON text result
func result(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failure maps an operation error onto a tool error result. Failures carry
// their kind and remediation as structured JSON; everything else degrades to
// the plain error string.
func failure(err error) *mcp.CallToolResult {
	f := collection.AsFailure(err)
	data, jerr := json.MarshalIndent(f, "", "  ")
	if jerr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
