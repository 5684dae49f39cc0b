package wit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wippyai/wasm-build/wit/internal/token"
)

// Parse parses a single WIT document into a fresh package description.
// path is only used in error messages and the recorded source file list.
func Parse(path, source string) (*Package, error) {
	pkg := &Package{}
	if err := parseInto(pkg, path, source); err != nil {
		return nil, err
	}
	pkg.Files = append(pkg.Files, SourceFile{Path: path, Content: []byte(source)})
	return pkg, nil
}

// LoadPackage loads a package from path: either a single .wit file or a
// directory whose .wit files merge into one package. Files are read in
// sorted name order so the description is independent of directory
// enumeration order.
//
// A "deps" subdirectory, when present, holds vendored transitive packages
// and is not part of this package's own documents.
func LoadPackage(path string) (*Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("wit package %q: %w", path, err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("wit package %q: %w", path, err)
		}
		return Parse(path, string(data))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("wit package %q: %w", path, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wit") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("wit package %q: no .wit files", path)
	}
	sort.Strings(names)

	pkg := &Package{}
	for _, name := range names {
		file := filepath.Join(path, name)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("wit package %q: %w", path, err)
		}
		if err := parseInto(pkg, file, string(data)); err != nil {
			return nil, err
		}
		pkg.Files = append(pkg.Files, SourceFile{Path: file, Content: data})
	}
	return pkg, nil
}

// DepsDir returns the vendored dependency directory for a package loaded
// from path, following the wit/deps/<pkg> layout. The directory may not
// exist.
func DepsDir(path string) string {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		path = filepath.Dir(path)
	}
	return filepath.Join(path, "deps")
}

func parseInto(pkg *Package, path, source string) error {
	p := &parser{tokens: token.Tokenize(source)}
	if err := p.parseDocument(pkg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
