// Package testsupport provides helpers for end-to-end CLI tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce  sync.Once
	thingsPath string
	buildErr   error
)

// BuildThings builds the things binary once and returns its path.
func BuildThings(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "things-bin-")
		if err != nil {
			buildErr = err
			return
		}

		thingsPath = filepath.Join(binDir, "things")
		cmd := exec.Command("go", "build", "-o", thingsPath, "./cmd/things")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build things: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return thingsPath
}

// SetupScriptEnv configures common environment variables for testscript:
// an isolated home and cache directory, no color output, and $THINGS
// pointing at the built binary.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("THINGS", BuildThings(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	cacheDir := filepath.Join(homeDir, ".local", "share", "things")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("THINGS_CACHE_DIR", cacheDir)
	env.Setenv("NO_COLOR", "1")
	return nil
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdTodoID finds a cached item by title and stores its id in an env
// var. The file argument is the items.jsonl cache.
func CmdTodoID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("todoid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: todoid FILE TITLE VAR")
	}

	data := ts.ReadFile(args[0])
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var stored struct {
			ID   string                     `json:"id"`
			Todo map[string]json.RawMessage `json:"todo"`
		}
		if err := json.Unmarshal([]byte(line), &stored); err != nil {
			ts.Fatalf("parse cache line: %v", err)
		}
		var title string
		if raw, ok := stored.Todo["tt"]; ok {
			if err := json.Unmarshal(raw, &title); err != nil {
				continue
			}
		}
		if title == args[1] {
			ts.Setenv(args[2], stored.ID)
			return
		}
	}

	ts.Fatalf("item with title %q not found", args[1])
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
