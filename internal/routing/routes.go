// Package routing maps (method, path) pairs onto the fixed todo API routes
// and extracts the integer id parameter. Anything it does not recognize is
// "unmatched" and callers delegate such requests to the real transport.
package routing

import (
	"net/url"
	"strconv"
	"strings"
)

// Op identifies one logical API operation.
type Op int

// Recognized operations.
const (
	OpListTodos Op = iota
	OpCreateTodo
	OpGetTodo
	OpUpdateTodo
	OpDeleteTodo
	OpHealth
)

// String returns the operation name for logging.
func (op Op) String() string {
	switch op {
	case OpListTodos:
		return "list_todos"
	case OpCreateTodo:
		return "create_todo"
	case OpGetTodo:
		return "get_todo"
	case OpUpdateTodo:
		return "update_todo"
	case OpDeleteTodo:
		return "delete_todo"
	case OpHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Match is the result of a successful route lookup. ID is populated only for
// single-item operations.
type Match struct {
	Op Op
	ID int
}

type route struct {
	method  string
	pattern string
	op      Op
}

// routes is the full table of the mocked REST surface. {id} matches one or
// more decimal digits.
var routes = []route{
	{"GET", "/api/todos", OpListTodos},
	{"POST", "/api/todos", OpCreateTodo},
	{"GET", "/api/todos/{id}", OpGetTodo},
	{"PUT", "/api/todos/{id}", OpUpdateTodo},
	{"DELETE", "/api/todos/{id}", OpDeleteTodo},
	{"GET", "/health", OpHealth},
}

// Resolve matches a method and raw URL (bare path or absolute URL) against
// the route table. ok is false for unmatched requests.
func Resolve(method, rawURL string) (Match, bool) {
	path := NormalizePath(rawURL)

	for _, r := range routes {
		if r.method != method {
			continue
		}
		id, matched := matchPattern(r.pattern, path)
		if !matched {
			continue
		}
		return Match{Op: r.op, ID: id}, true
	}
	return Match{}, false
}

// NormalizePath strips the origin from absolute URLs and drops any query or
// fragment, so "http://host:port/api/todos/3?x=1" becomes "/api/todos/3".
// A string that does not parse as a URL is treated as the path itself.
func NormalizePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Path == "" {
		return rawURL
	}
	return u.Path
}

// matchPattern compares a path against a route pattern segment by segment.
// The {id} segment matches decimal digits only and is parsed to an int.
func matchPattern(pattern, path string) (int, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternParts) != len(pathParts) {
		return 0, false
	}

	id := 0
	for i, part := range patternParts {
		if part == "{id}" {
			n, ok := parseID(pathParts[i])
			if !ok {
				return 0, false
			}
			id = n
			continue
		}
		if part != pathParts[i] {
			return 0, false
		}
	}
	return id, true
}

// parseID accepts one or more decimal digits.
func parseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
