// Package testutil holds helpers for tests that enforce import boundaries
// between the layers of the module.
package testutil

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// AssertNoDirectImports parses every non-test .go file below dir and fails
// if an import path satisfies forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIfDirectViolations(t, reason, viols)
}

// PrefixForbidden matches import paths equal to, or nested below, any prefix.
func PrefixForbidden(prefixes ...string) func(string) bool {
	return func(path string) bool {
		for _, p := range prefixes {
			if path == p || strings.HasPrefix(path, p+"/") {
				return true
			}
		}
		return false
	}
}

// ThirdPartyImport matches paths outside the standard library, recognised
// by a dot in the first path element.
func ThirdPartyImport(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".")
}

// AnyOf matches when any predicate matches.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	fset := token.NewFileSet()
	var viols []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range fileAst.Imports {
			ip, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return err
			}
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+path+")")
			}
		}
		return nil
	})
	return viols, err
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
