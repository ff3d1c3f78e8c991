// Command confcache-mcp exposes the configuration cache to MCP clients over
// stdio. Logs go to a file because stdout carries the protocol. The cache
// daemon is started on demand when none is running.
package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/confcache/confcache/internal/config"
	"github.com/confcache/confcache/internal/daemon"
	"github.com/confcache/confcache/internal/logger"
	tools "github.com/confcache/confcache/internal/tools"
)

func main() {
	if err := logger.InitFile("", "info"); err != nil {
		panic(err)
	}

	log.Info("starting confcache MCP server")

	sock := socketPath()
	log.Infof("connecting to cache daemon at %s", sock)
	if !daemon.Probe(sock, 200*time.Millisecond) {
		log.Warn("cache daemon not running, attempting to start it")
		if err := startDaemon(); err != nil {
			log.WithError(err).Error("failed to start cache daemon")
		}
		if !waitForDaemon(sock, 5*time.Second) {
			log.Error("cache daemon did not come up")
			panic("cache daemon did not come up")
		}
	}
	client := daemon.NewClient(sock)
	log.Info("connected to cache daemon")

	s := server.NewMCPServer(
		"Confcache MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	toolGet := mcp.NewTool("config-get",
		mcp.WithDescription(multiline(
			"Returns the current remote configuration as JSON",
			"\nFunctionality:",
			"- Serves from a local cache when the copy is younger than the freshness window",
			"- Refetches from the configured endpoint otherwise and caches the result",
			"- Falls back to the last cached copy when the endpoint is unreachable",
			"\nUsage notes:",
			"- Pass \"field\" to extract a single value by dotted path (for example \"features.beta\")",
			"- This tool is read-only apart from maintaining its own cache",
		)),
		mcp.WithString("field", mcp.Description("Optional dotted path of a single field to return")),
	)
	s.AddTool(toolGet, tools.ConfigGetHandler(client))
	log.Info("registered config-get tool")

	toolStatus := mcp.NewTool("config-status",
		mcp.WithDescription(multiline(
			"Reports the state of the local configuration cache",
			"\nFunctionality:",
			"- Shows when the cached copy was stored, its size and whether it is still fresh",
			"- Performs no network request",
		)),
	)
	s.AddTool(toolStatus, tools.ConfigStatusHandler(client))
	log.Info("registered config-status tool")

	log.Info("serving MCP on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.WithError(err).Error("server error")
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func socketPath() string {
	if s := os.Getenv("CONFCACHE_SOCK"); s != "" {
		return s
	}
	return config.SocketPath()
}

func waitForDaemon(sock string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if daemon.Probe(sock, 200*time.Millisecond) {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

// startDaemon looks for the daemon binary next to this executable first,
// then on PATH, then in the current directory.
func startDaemon() error {
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), "confcached")
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}
	if path, err := exec.LookPath("confcached"); err == nil {
		return spawn(path)
	}
	if _, err := os.Stat("./confcached"); err == nil {
		return spawn("./confcached")
	}
	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}
