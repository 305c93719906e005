package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operations returns every operation of doc, paths ascending and methods
// ascending within a path. A nil document or one without paths yields nil.
func Operations(doc *openapi3.T) []OperationModel {
	if doc == nil || len(doc.Paths) == 0 {
		return nil
	}
	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var out []OperationModel
	for _, p := range pathKeys {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		for _, m := range Methods {
			op := operationFor(item, m)
			if op == nil {
				continue
			}
			out = append(out, OperationModel{Path: p, Method: m, Item: item, Operation: op})
		}
	}
	return out
}

// FindOperation looks up a single operation by path and method.
func FindOperation(doc *openapi3.T, path string, method HttpMethod) *openapi3.Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	item := doc.Paths[path]
	if item == nil {
		return nil
	}
	return operationFor(item, method)
}

func operationFor(item *openapi3.PathItem, m HttpMethod) *openapi3.Operation {
	switch m {
	case GET:
		return item.Get
	case POST:
		return item.Post
	case PUT:
		return item.Put
	case DELETE:
		return item.Delete
	case PATCH:
		return item.Patch
	case HEAD:
		return item.Head
	case OPTIONS:
		return item.Options
	case TRACE:
		return item.Trace
	}
	return nil
}

// SetOperation replaces the operation stored under m in item.
func SetOperation(item *openapi3.PathItem, m HttpMethod, op *openapi3.Operation) {
	switch m {
	case GET:
		item.Get = op
	case POST:
		item.Post = op
	case PUT:
		item.Put = op
	case DELETE:
		item.Delete = op
	case PATCH:
		item.Patch = op
	case HEAD:
		item.Head = op
	case OPTIONS:
		item.Options = op
	case TRACE:
		item.Trace = op
	}
}

// ParameterResolver turns a possibly indirect parameter into its value.
type ParameterResolver func(*openapi3.ParameterRef) (*openapi3.Parameter, error)

// MergeParameters returns the effective parameters of op. Path-level
// parameters come first; an operation-level parameter with the same
// (in, name) replaces the path-level one and moves to the operation's position.
func MergeParameters(item *openapi3.PathItem, op *openapi3.Operation, resolve ParameterResolver) ([]*openapi3.Parameter, error) {
	var merged []*openapi3.Parameter
	if item != nil {
		for _, pref := range item.Parameters {
			p, err := resolve(pref)
			if err != nil {
				return nil, err
			}
			if p != nil {
				merged = append(merged, p)
			}
		}
	}
	if op == nil {
		return merged, nil
	}
	for _, pref := range op.Parameters {
		p, err := resolve(pref)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		key := paramKey(p.In, p.Name)
		kept := merged[:0]
		for _, q := range merged {
			if paramKey(q.In, q.Name) != key {
				kept = append(kept, q)
			}
		}
		merged = append(kept, p)
	}
	return merged, nil
}

// ParameterValueType returns the semantic tag declared on p, if any.
func ParameterValueType(p *openapi3.Parameter) string {
	if p == nil {
		return ""
	}
	if s := extString(p.Extensions, ExtParameterValueType); s != "" {
		return s
	}
	return extString(p.Extensions, ExtParameterType)
}

func extString(ext map[string]interface{}, key string) string {
	if ext == nil {
		return ""
	}
	s, _ := ext[key].(string)
	return strings.TrimSpace(s)
}

func paramKey(in, name string) string { return in + ":" + name }
