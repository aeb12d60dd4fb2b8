package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// Load reads a program from a .yaml/.yml file, a .cue file, or a directory
// holding a CUE package.
func Load(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("load program %s: unsupported extension (want .yaml, .yml or .cue)", path)
	}
}

// ParseYAML compiles a YAML program. Unknown fields are rejected.
func ParseYAML(filename string, data []byte) (*Program, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &CompileError{Field: filename, Message: err.Error()}
	}
	if doc.Name == "" {
		doc.Name = baseName(filename)
	}
	return compileDocument(&doc, filename)
}

// ParseCUE compiles a single CUE file.
func ParseCUE(filename string, data []byte) (*Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileCUE(v, filename)
}

// LoadCUEDir builds the CUE package in dir and compiles it.
func LoadCUEDir(dir string) (*Program, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load program %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileCUE(v, dir)
}

func compileCUE(v cue.Value, source string) (*Program, error) {
	doc, err := decodeCUE(v)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = baseName(source)
	}
	return compileDocument(doc, source)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
