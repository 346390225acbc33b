package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulesPrefix = "notegenius/internal/modules/"

type sourceFile struct {
	path    string
	imports []string
}

// sources parses the non-test Go files under dir, imports only.
func sources(t *testing.T, dir string) []sourceFile {
	t.Helper()
	fset := token.NewFileSet()
	var files []sourceFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		file := sourceFile{path: filepath.ToSlash(path)}
		for _, imp := range node.Imports {
			file.imports = append(file.imports, strings.Trim(imp.Path.Value, `"`))
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return files
}

// location splits a path into its module and hexagonal layer.
func location(path string) (module, layer string) {
	rest := path
	if i := strings.Index(path, "modules/"); i >= 0 {
		rest = path[i+len("modules/"):]
	}
	module, rest, ok := strings.Cut(rest, "/")
	if !ok {
		return "", ""
	}
	for _, l := range []string{"adapter/in", "adapter/out", "port/in", "port/out", "usecase", "service", "domain", "dto"} {
		if rest == l || strings.HasPrefix(rest, l+"/") {
			return module, l
		}
	}
	return module, ""
}

// allowed lists which layers of the same module a layer may import.
var allowed = map[string][]string{
	"domain":      {},
	"dto":         {},
	"port/in":     {"dto", "domain"},
	"port/out":    {"domain"},
	"service":     {"domain", "port/out", "service"},
	"usecase":     {"domain", "dto", "port/in", "port/out", "service"},
	"adapter/in":  {"port/in", "dto"},
	"adapter/out": {"domain", "port/out", "adapter/out"},
}

func TestModuleLayerImports(t *testing.T) {
	t.Parallel()
	for _, file := range sources(t, filepath.Join("..", "modules")) {
		module, layer := location(file.path)
		if layer == "" {
			continue
		}
		for _, imp := range file.imports {
			if !strings.HasPrefix(imp, modulesPrefix) {
				continue
			}
			target, targetLayer := location(strings.TrimPrefix(imp, "notegenius/internal/"))
			if target != module {
				// Other modules are reachable only through their inbound contract.
				if targetLayer != "port/in" && targetLayer != "dto" {
					t.Fatalf("%s (%s) reaches into module %s: %s", file.path, layer, target, imp)
				}
				continue
			}
			ok := false
			for _, l := range allowed[layer] {
				ok = ok || l == targetLayer
			}
			if !ok {
				t.Fatalf("forbidden import in %s (%s): %s", file.path, layer, imp)
			}
		}
	}
}

func TestDomainDependsOnStdlibOnly(t *testing.T) {
	t.Parallel()
	for _, file := range sources(t, filepath.Join("..", "modules")) {
		if _, layer := location(file.path); layer != "domain" {
			continue
		}
		for _, imp := range file.imports {
			if imp == "notegenius/internal/platform/errors" {
				continue
			}
			if first, _, _ := strings.Cut(imp, "/"); strings.Contains(first, ".") || strings.HasPrefix(imp, "notegenius/") {
				t.Fatalf("domain file %s imports %s", file.path, imp)
			}
		}
	}
}

func TestUIUsesTrackerContractsOnly(t *testing.T) {
	t.Parallel()
	for _, file := range sources(t, filepath.Join("..", "ui")) {
		for _, imp := range file.imports {
			if !strings.HasPrefix(imp, modulesPrefix) {
				continue
			}
			if _, layer := location(strings.TrimPrefix(imp, "notegenius/internal/")); layer != "dto" {
				t.Fatalf("ui file %s imports %s", file.path, imp)
			}
		}
	}
}
