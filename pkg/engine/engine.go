// Package engine provides a Lisp scripting layer over the mesh pipeline.
// It wraps zygomys in a sandboxed environment: a script loads or generates
// a mesh, builds the spatial index, runs queries and classification, and
// saves results. Each evaluation runs in a fresh sandbox with a hard
// timeout, so the engine can sit behind interactive callers.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chisel3d/chisel/pkg/kdtree"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the script.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the pipeline state left behind by a successful evaluation.
type Result struct {
	Mesh   *mesh.Mesh   // last loaded or generated mesh, nil if none
	Tree   *kdtree.Tree // last built index, nil if none
	Output []string     // lines produced by query/stat builtins, in order
}

// Engine evaluates mesh-pipeline scripts. Each call to Evaluate creates a
// fresh sandboxed environment. Concurrent calls are memory-safe, but a
// newer call supersedes older in-flight ones, which then fail with an
// error instead of delivering a stale result.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// Evaluate runs a script and returns the resulting pipeline state.
//
// Return semantics:
//   - On success: result + nil errors + nil error
//   - On parse/eval failure: nil result + eval errors + nil error
//   - On fatal failure (timeout, panic): nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs, err := e.evaluate(source)
		ch <- evalOutcome{result: res, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	st := &state{result: &Result{}}

	// Empty source is a valid no-op script.
	if strings.TrimSpace(source) == "" {
		return st.result, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls;
	// the load/save builtins are the only file access.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygoError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygoError(err), nil
	}
	return st.result, nil, nil
}

// linePattern matches zygomys error messages like "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches plain "line N: ..." prefixes.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into EvalError values, pulling
// line numbers out of the message where present.
func parseZygoError(err error) []EvalError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. :keyword -> "__kw_keyword" string literals, so keyword arguments
//     need no global symbol registration.
//  2. kebab-case -> underscore (build-index -> build_index); zygomys
//     reads hyphens as subtraction.
//  3. ; line comments -> // comments.
//
// All three respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"' || b[i] == '`':
			quote := b[i]
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != quote {
				if quote == '"' && b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
		case b[i] == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
		default:
			result = append(result, b[i])
			i++
		}
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
