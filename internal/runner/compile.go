package runner

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/GriffinCanCode/syncrunner/internal/normalize"
	"github.com/GriffinCanCode/syncrunner/internal/shared/utils"
)

var hasher = utils.DefaultHasher()

// Script is a compiled module. It is immutable and may be executed by any
// number of invocations concurrently.
type Script struct {
	name    string
	digest  string
	program *goja.Program
}

// Name returns the name the script was compiled under.
func (s *Script) Name() string {
	return s.name
}

// Digest returns the hex SHA-256 of the script source.
func (s *Script) Digest() string {
	return s.digest
}

// Digest returns the hex SHA-256 of source, as reported for compiled scripts.
func Digest(source string) string {
	return hasher.HashString(source)
}

// Compile transforms source to CommonJS and compiles it. Errors are
// *normalize.ScriptError values named "SyntaxError".
func Compile(name, source string) (*Script, error) {
	if name == "" {
		name = "script"
	}

	res := esbuild.Transform(source, esbuild.TransformOptions{
		Loader:     esbuild.LoaderTS,
		Format:     esbuild.FormatCommonJS,
		Target:     esbuild.ES2017,
		Sourcefile: name + ".ts",
		LogLevel:   esbuild.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, &normalize.ScriptError{Name: "SyntaxError", Message: formatMessage(res.Errors[0])}
	}

	wrapped := "(function (module, exports, require) {\n" + string(res.Code) + "\n})"
	program, err := goja.Compile(name, wrapped, false)
	if err != nil {
		return nil, &normalize.ScriptError{Name: "SyntaxError", Message: err.Error()}
	}
	return &Script{name: name, digest: Digest(source), program: program}, nil
}

func formatMessage(m esbuild.Message) string {
	if m.Location == nil {
		return m.Text
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
	return b.String()
}
