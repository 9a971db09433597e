package filter

import (
	"fmt"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/civshow/civitai"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Err: ErrEmptyExpression}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Item fields are bound at run time
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Err: err}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether the item matches. Items that fail to evaluate
// do not match.
func (f *exprFilter) Evaluate(item civitai.MediaItem) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter against an item
func (f *exprFilter) Match(item civitai.MediaItem) (bool, error) {
	result, err := expr.Run(f.program, createRuntimeEnvironment(f.helpers, item))
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, ItemID: item.ID, Err: err}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			ItemID:     item.ID,
			Err:        fmt.Errorf("expected bool result, got %T", result),
		}
	}
	return matched, nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the helpers known at compile time. The
// item-bound ones are placeholders replaced per evaluation.
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)
	addItemHelpers(funcs, civitai.MediaItem{})
	return funcs
}

// createRuntimeEnvironment binds one item and its helpers
func createRuntimeEnvironment(helpers map[string]any, item civitai.MediaItem) map[string]any {
	env := make(map[string]any, len(helpers)+16)
	maps.Copy(env, helpers)

	env["Item"] = item
	env["ID"] = item.ID
	env["URL"] = item.URL
	env["Kind"] = string(item.Kind)
	env["NSFW"] = item.NSFW
	env["Width"] = item.Width
	env["Height"] = item.Height
	env["Hash"] = item.Hash
	env["Meta"] = item.Meta
	env["AspectRatio"] = item.AspectRatio()

	addItemHelpers(env, item)

	return env
}

// addItemHelpers adds the helper functions bound to one item
func addItemHelpers(env map[string]any, item civitai.MediaItem) {
	env["isVideo"] = item.IsVideo
	env["isImage"] = func() bool { return !item.IsVideo() }
	env["isPortrait"] = func() bool { return item.Height > item.Width }
	env["isLandscape"] = func() bool { return item.Width > item.Height }
	env["megapixels"] = func() float64 {
		return float64(item.Width) * float64(item.Height) / 1e6
	}
	env["hasMeta"] = func(key string) bool {
		_, ok := item.Meta[key]
		return ok
	}
	env["meta"] = func(key string) string {
		return metaString(item.Meta, key)
	}
	env["metaContains"] = func(key, substr string) bool {
		return strings.Contains(strings.ToLower(metaString(item.Meta, key)), strings.ToLower(substr))
	}
}

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
