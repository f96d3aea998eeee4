package mcpserver_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/umbrella-scan/umbrella"
	"github.com/umbrella-scan/umbrella/internal/mcpserver"
)

var fileSignatures = []any{
	"import vaccine",
	"cmds.evalDeferred.*leukocyte.+",
	"python(.*);.+exec.+(pyCode).+;",
}

func sample(name string) string {
	return filepath.Join("..", "..", "testdata", "maya", name)
}

func connectInMemory(t *testing.T, ctx context.Context) *sdkmcp.ClientSession {
	t.Helper()
	srv := mcpserver.NewServer(umbrella.New(), "test", nil)
	t1, t2 := sdkmcp.NewInMemoryTransports()
	_, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err, "server.Connect")

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err, "client.Connect")
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool(%s)", name)
	require.False(t, res.IsError, "CallTool(%s) returned error: %s", name, textOf(res))
	require.NoError(t, json.Unmarshal([]byte(textOf(res)), out))
}

func callToolExpectError(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return err.Error()
	}
	require.True(t, res.IsError, "expected error but got success")
	return textOf(res)
}

func textOf(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolDiscovery(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"check_virus_from_file",
		"check_virus_from_files",
		"scan_files",
		"list_signatures",
	}, names)
}

func TestCheckVirusFromFile(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	var out struct {
		Path     string `json:"path"`
		Infected bool   `json:"infected"`
	}
	callTool(t, ctx, session, "check_virus_from_file", map[string]any{
		"path":       sample("04_vaccine.py"),
		"signatures": fileSignatures,
	}, &out)
	require.True(t, out.Infected)

	callTool(t, ctx, session, "check_virus_from_file", map[string]any{
		"path":       filepath.Join(t.TempDir(), "missing.py"),
		"signatures": fileSignatures,
	}, &out)
	require.False(t, out.Infected)
}

func TestCheckVirusFromFiles(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	paths := []any{
		sample("01_shelf.mel"),
		sample("02_userSetup.py"),
		sample("03_render_prefs.py"),
		sample("04_vaccine.py"),
		sample("05_userSetup.py"),
		sample("06_scriptnode.ma"),
		sample("07_gbk_vaccine.py"),
	}
	var out struct {
		Infected []bool `json:"infected"`
	}
	callTool(t, ctx, session, "check_virus_from_files", map[string]any{
		"paths":      paths,
		"signatures": fileSignatures,
	}, &out)
	require.Equal(t, []bool{false, false, false, true, true, true, true}, out.Infected)
}

func TestScanFiles(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	dir := t.TempDir()
	gone := filepath.Join(dir, "gone.py")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.py"), []byte("print('hi')\n"), 0o644))

	var out struct {
		Outcomes []struct {
			Path      string `json:"path"`
			Status    string `json:"status"`
			Signature string `json:"signature"`
			Line      int    `json:"line"`
			ErrorCode string `json:"error_code"`
		} `json:"outcomes"`
		Infected    int `json:"infected"`
		Unscannable int `json:"unscannable"`
	}
	callTool(t, ctx, session, "scan_files", map[string]any{
		"paths":      []any{filepath.Join(dir, "ok.py"), gone, sample("05_userSetup.py")},
		"signatures": fileSignatures,
	}, &out)

	require.Len(t, out.Outcomes, 3)
	require.Equal(t, "clean", out.Outcomes[0].Status)
	require.Equal(t, "unscannable", out.Outcomes[1].Status)
	require.Equal(t, "NOT_FOUND", out.Outcomes[1].ErrorCode)
	require.Equal(t, "infected", out.Outcomes[2].Status)
	require.Equal(t, 8, out.Outcomes[2].Line)
	require.Equal(t, 1, out.Infected)
	require.Equal(t, 1, out.Unscannable)
}

func TestInvalidSignatureIsToolError(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	msg := callToolExpectError(t, ctx, session, "check_virus_from_files", map[string]any{
		"paths":      []any{sample("01_shelf.mel")},
		"signatures": []any{"("},
	})
	require.True(t, strings.Contains(msg, "invalid signature"), msg)
}

func TestCheckFileRequiresPath(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	msg := callToolExpectError(t, ctx, session, "check_virus_from_file", map[string]any{
		"path":       "",
		"signatures": fileSignatures,
	})
	require.Contains(t, msg, "path is required")
}

func TestListSignatures(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	var out struct {
		Signatures []struct {
			ID string `json:"id"`
		} `json:"signatures"`
		Sets []string `json:"sets"`
	}
	callTool(t, ctx, session, "list_signatures", map[string]any{"set": "jobscript"}, &out)
	require.Len(t, out.Signatures, 4)
	require.Equal(t, []string{"file", "jobscript", "virus20240430"}, out.Sets)

	msg := callToolExpectError(t, ctx, session, "list_signatures", map[string]any{"set": "nope"})
	require.Contains(t, msg, "unknown signature set")
}
