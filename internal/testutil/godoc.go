// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertDocumented fails for every exported type, function, constructor or
// variable of the package in dir that has no doc comment. Methods are not
// checked.
func AssertDocumented(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	fset := token.NewFileSet()
	var files []*ast.File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments)
		require.NoError(t, err)
		files = append(files, f)
	}
	require.NotEmpty(t, files, dir)

	pkg, err := doc.NewFromFiles(fset, files, "example.invalid/"+filepath.Base(dir))
	require.NoError(t, err)

	for _, fn := range pkg.Funcs {
		assert.NotEmpty(t, fn.Doc, "func %s", fn.Name)
	}
	for _, v := range pkg.Vars {
		assertValuesDocumented(t, v)
	}
	for _, typ := range pkg.Types {
		assert.NotEmpty(t, typ.Doc, "type %s", typ.Name)
		for _, fn := range typ.Funcs {
			assert.NotEmpty(t, fn.Doc, "func %s", fn.Name)
		}
		for _, v := range typ.Vars {
			assertValuesDocumented(t, v)
		}
	}
}

// assertValuesDocumented accepts a doc comment on the var block or on
// every exported spec inside it.
func assertValuesDocumented(t *testing.T, v *doc.Value) {
	t.Helper()
	if v.Doc != "" {
		return
	}
	for _, spec := range v.Decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		exported := lo.Filter(vs.Names, func(n *ast.Ident, _ int) bool { return n.IsExported() })
		if len(exported) > 0 {
			assert.NotNil(t, vs.Doc, "var %s", exported[0].Name)
		}
	}
}
