// Package mcpserver exposes gateway operations as MCP tools.
package mcpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/gateway"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	toolListClusters = "list_clusters"
	shutdownTimeout  = 5 * time.Second
)

// Executor runs gateway requests. It is implemented by *gateway.Dispatcher.
type Executor interface {
	Execute(ctx context.Context, clusterName string, req gateway.Request, timeout time.Duration) gateway.Result
}

// Config holds Server configuration parameters.
type Config struct {
	Name    string
	Version string
	// ReadOnly omits tools that modify clusters.
	ReadOnly bool
}

// Server is an MCP server with one tool per gateway operation.
type Server struct {
	mcp      *server.MCPServer
	exec     Executor
	registry *cluster.Registry
	log      *zap.Logger
	handlers map[string]server.ToolHandlerFunc
}

// ClusterList is the list_clusters payload.
type ClusterList struct {
	Clusters []string `json:"clusters"`
	// Default is the cluster used when a tool call names none.
	Default string `json:"default,omitempty"`
}

// New initializes a Server. A nil logger disables logging.
func New(exec Executor, registry *cluster.Registry, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Name == "" {
		cfg.Name = "kafka-gateway"
	}

	s := &Server{
		mcp: server.NewMCPServer(cfg.Name, cfg.Version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
			server.WithRecovery(),
		),
		exec:     exec,
		registry: registry,
		log:      logger,
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	s.addTool(mcp.NewTool(toolListClusters,
		mcp.WithDescription("List the names of the configured Kafka clusters and the default cluster, if any."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listClusters)

	for _, def := range toolDefs {
		if cfg.ReadOnly && def.write {
			continue
		}
		s.addTool(def.tool(), s.operation(def))
	}

	return s
}

// MCPServer returns the underlying *server.MCPServer.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Tools returns the names of the registered tools.
func (s *Server) Tools() []string {
	var names = make([]string, 0, len(s.handlers))
	for _, def := range append([]toolDef{{op: toolListClusters}}, toolDefs...) {
		if _, ok := s.handlers[string(def.op)]; ok {
			names = append(names, string(def.op))
		}
	}
	return names
}

func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// operation returns the handler for a gateway operation tool.
func (s *Server) operation(def toolDef) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(request.GetArguments())

		clusterName, err := args.str(argCluster)
		if err != nil {
			return encodeError(gateway.NewError(def.op, clusterName, err))
		}

		timeout, err := args.timeout()
		if err != nil {
			return encodeError(gateway.NewError(def.op, clusterName, err))
		}

		req, err := def.build(args)
		if err != nil {
			return encodeError(gateway.NewError(def.op, clusterName, err))
		}

		return encodeResult(s.exec.Execute(ctx, clusterName, req, timeout))
	}
}

func (s *Server) listClusters(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := ClusterList{Clusters: s.registry.Names()}
	if p, ok := s.registry.Default(); ok {
		list.Default = p.Name
	}

	return encodeData(list)
}

// ServeStdio serves MCP over in and out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.log))

	s.log.Info("serving MCP over stdio")

	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// ServeSSE serves MCP over HTTP server-sent events on addr until ctx is
// done. baseURL is the externally reachable URL advertised to clients.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcp, server.WithBaseURL(baseURL))

	errs := make(chan error, 1)
	go func() {
		s.log.Info("serving MCP over SSE",
			zap.String("addr", addr),
			zap.String("base_url", baseURL))
		errs <- sse.Start(addr)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sse.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "failed to shut down SSE server")
	}

	return nil
}
