package model

import (
	"os"
	"slices"
)

// Gate reports whether the model artifact exists. It inspects the filesystem on
// every call and holds no state, so a model installed while the server runs is
// seen on the next request.
//
// In-process backends may load a converted file next to the gated artifact;
// the gate then requires both.
type Gate struct {
	path  string
	extra []string
}

// NewGate creates a Gate for the artifact at path and any additional files
// inference depends on.
func NewGate(path string, extra ...string) Gate {
	var files []string
	for _, f := range extra {
		if f != "" && f != path && !slices.Contains(files, f) {
			files = append(files, f)
		}
	}
	return Gate{path: path, extra: files}
}

// Path returns the artifact path the gate checks.
func (g Gate) Path() string {
	return g.path
}

// Files returns every path the gate requires, the artifact first.
func (g Gate) Files() []string {
	return append([]string{g.path}, g.extra...)
}

// Ready reports whether a regular file exists at every gated path.
func (g Gate) Ready() bool {
	for _, path := range g.Files() {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}
