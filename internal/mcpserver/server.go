// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the timelapse archive for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/archive"
	"github.com/evmaki/pothos/internal/models"
)

// SensorLogURI is the resource URI of the archived sensor log.
const SensorLogURI = "pothos://sensor-log"

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp           *server.MCPServer
	svc           *archive.Service
	sensorLogName string
}

// New creates a new MCP server with all archive tools registered.
func New(svc *archive.Service, sensorLogName, version string) *Server {
	if sensorLogName == "" {
		sensorLogName = archive.DefaultSensorLogName
	}
	s := &Server{svc: svc, sensorLogName: sensorLogName}

	s.mcp = server.NewMCPServer(
		"Pothos",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_videos",
		mcp.WithDescription("List archived timelapse videos, oldest first. Each name is <first frame>,<last frame>.mp4."),
	), s.listVideos)

	s.mcp.AddTool(mcp.NewTool("list_frames",
		mcp.WithDescription("List archived prepared frames, oldest first."),
		mcp.WithString("date", mcp.Description("Optional capture date MM-DD-YYYY to filter by")),
	), s.listFrames)

	s.mcp.AddTool(mcp.NewTool("latest_video",
		mcp.WithDescription("Describe the most recent timelapse video."),
	), s.latestVideo)

	s.mcp.AddTool(mcp.NewTool("read_sensor_log",
		mcp.WithDescription("Read light level and temperature readings recorded with each capture."),
		mcp.WithString("token", mcp.Description("Optional capture token MM-DD-YYYY_HH:MM for a single reading")),
	), s.readSensorLog)

	s.mcp.AddResource(
		mcp.NewResource(SensorLogURI, "Sensor Log",
			mcp.WithResourceDescription("Environmental readings keyed by capture timestamp."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSensorLogResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listVideos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.Names(ctx, models.CategoryVideo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no videos archived"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) listFrames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := ""
	if d, err := req.RequireString("date"); err == nil {
		date = d
	}

	names, err := s.svc.Names(ctx, models.CategoryFrame)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var out []string
	for _, n := range names {
		if date == "" || strings.HasPrefix(n, date+"_") {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return mcp.NewToolResultText("no frames archived"), nil
	}
	return mcp.NewToolResultText(strings.Join(out, "\n")), nil
}

func (s *Server) latestVideo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meta, err := s.svc.Latest(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("no videos archived"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(meta, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSensorLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log, err := s.svc.SensorLog(ctx, s.sensorLogName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sensor log unavailable: %v", err)), nil
	}

	if token, tErr := req.RequireString("token"); tErr == nil && token != "" {
		reading, ok := log[token]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no reading for %s", token)), nil
		}
		out, _ := json.Marshal(reading)
		return mcp.NewToolResultText(string(out)), nil
	}

	out, _ := json.MarshalIndent(log, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSensorLogResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.svc.Read(ctx, models.CategoryData, s.sensorLogName)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SensorLogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
