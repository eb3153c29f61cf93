package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleInfo(t)

	var violations []string
	forEachImport(t, root, func(rel, imp string) {
		for _, bad := range disallowedImports(modulePath, layerFor(rel)) {
			if strings.HasPrefix(imp, bad) {
				violations = append(violations, fmt.Sprintf("%s imports %q (disallowed: %q)", rel, imp, bad))
				return
			}
		}
	})

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n- %s", strings.Join(violations, "\n- "))
	}
}

// TestStoreDriversConfinedToPlatform bans direct neo4j / redis driver imports
// outside the platform wrappers and the graph index that queries neo4j
// directly. Everything else goes through internal/platform.
func TestStoreDriversConfinedToPlatform(t *testing.T) {
	root, _ := moduleInfo(t)

	drivers := []string{
		"github.com/neo4j/neo4j-go-driver",
		"github.com/redis/go-redis",
	}
	allowed := []string{
		"internal/platform/",
		"internal/data/graph/",
	}

	var violations []string
	forEachImport(t, root, func(rel, imp string) {
		for _, prefix := range allowed {
			if strings.HasPrefix(rel, prefix) {
				return
			}
		}
		for _, driver := range drivers {
			if strings.HasPrefix(imp, driver) {
				violations = append(violations, fmt.Sprintf("%s imports %q", rel, imp))
				return
			}
		}
	})

	if len(violations) > 0 {
		t.Fatalf("store driver imports outside the platform wrappers:\n- %s", strings.Join(violations, "\n- "))
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/http/"):
		return "http"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	switch layer {
	case "platform":
		return []string{
			modulePath + "/internal/domain",
			modulePath + "/internal/data/",
			modulePath + "/internal/services",
			modulePath + "/internal/http",
			modulePath + "/internal/app",
		}
	case "domain":
		return []string{
			modulePath + "/internal/platform/",
			modulePath + "/internal/data/",
			modulePath + "/internal/services",
			modulePath + "/internal/http",
			modulePath + "/internal/app",
		}
	case "data":
		return []string{
			modulePath + "/internal/services",
			modulePath + "/internal/http",
			modulePath + "/internal/app",
		}
	case "services":
		return []string{
			modulePath + "/internal/http",
			modulePath + "/internal/app",
		}
	case "http":
		return []string{
			modulePath + "/internal/data/",
			modulePath + "/internal/app",
		}
	default:
		return nil
	}
}

// forEachImport parses every .go file under root/internal and hands fn the
// file's slash-separated module-relative path together with each import path.
func forEachImport(t *testing.T, root string, fn func(rel, imp string)) {
	t.Helper()

	fset := token.NewFileSet()
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippableDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, unquoteErr := strconv.Unquote(spec.Path.Value)
			if unquoteErr != nil {
				continue
			}
			fn(filepath.ToSlash(rel), imp)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
}

func skippableDir(name string) bool {
	switch name {
	case ".git", "vendor", "node_modules", ".gocache":
		return true
	}
	return false
}

// moduleInfo locates the repository root and the module path declared in its
// go.mod so the boundary rules stay valid if the module is ever renamed.
func moduleInfo(t *testing.T) (root string, modulePath string) {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err = findModuleRoot(wd)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err = readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

func findModuleRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	raw, err := os.ReadFile(goModPath)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
