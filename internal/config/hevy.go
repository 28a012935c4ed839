package config

import (
	"fmt"

	"github.com/firebase/genkit/go/plugins/mcp"
)

// Enabled reports whether the Hevy MCP server should be started.
// The server is useless without an API key, so the key gates everything.
func (h HevyConfig) Enabled() bool {
	return h.APIKey != "" && h.Command != ""
}

// ClientOptions returns the Genkit MCP client options for the Hevy server.
// The server runs as a stdio subprocess; the API key travels only through
// its environment, never through argv (visible in process listings).
func (h HevyConfig) ClientOptions() mcp.MCPClientOptions {
	return mcp.MCPClientOptions{
		Name: "hevy",
		Stdio: &mcp.StdioConfig{
			Command: h.Command,
			Args:    h.Args,
			Env:     envMapToSlice(map[string]string{"HEVY_API_KEY": h.APIKey}),
		},
	}
}

// envMapToSlice converts a map of environment variables to the slice format
// required by Genkit's StdioConfig.Env field.
func envMapToSlice(m map[string]string) []string {
	if m == nil {
		return nil
	}
	result := make([]string, 0, len(m))
	for k, v := range m {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
