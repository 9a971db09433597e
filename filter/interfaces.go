package filter

import (
	"github.com/s0up4200/civshow/civitai"
)

// Filter decides whether a media item is shown. Players consult it when
// advancing; it never changes which items are loaded.
type Filter interface {
	Evaluate(item civitai.MediaItem) bool
}

// CompiledFilter is a Filter built from an expression
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the run time error reported
	Match(item civitai.MediaItem) (bool, error)
	Expression() string
}

// Compiler turns expressions into filters
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler is a Compiler that reuses earlier compilations
type CachingCompiler interface {
	Compiler
	Clear()
	Size() int
}
