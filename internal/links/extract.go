package links

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/mark3labs/oaslink/internal/spec"
)

// StatusCodeResolver picks the response of an operation whose x-links are
// read. ok is false when the operation has no suitable response.
type StatusCodeResolver func(path string, method spec.HttpMethod, doc *openapi3.T) (code string, ok bool)

var successCode = regexp.MustCompile(`^2(\d\d|XX)$`)

// PrimaryStatusCode returns the lowest declared 2xx status code, counting the
// "2XX" range after the explicit codes.
func PrimaryStatusCode(path string, method spec.HttpMethod, doc *openapi3.T) (string, bool) {
	op := spec.FindOperation(doc, path, method)
	if op == nil {
		return "", false
	}
	for _, code := range sortedKeys(op.Responses) {
		if successCode.MatchString(code) {
			return code, true
		}
	}
	return "", false
}

// documentScan is what one worker learns about one document.
type documentScan struct {
	parameters []taggedParameter
	templates  []Template
	sources    []autoSource
	warnings   warnings
}

func scanDocument(ctx context.Context, reg *Registry, label string, cfg *config) (*documentScan, error) {
	scan := &documentScan{}
	params, err := indexDocument(ctx, reg, label, &scan.warnings)
	if err != nil {
		return nil, err
	}
	scan.parameters = params

	doc, _ := reg.Document(label)
	res := reg.resolver(label)
	for _, om := range spec.Operations(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := OperationKey{Document: label, Path: om.Path, Method: om.Method}
		if code, ok := cfg.statusCode(om.Path, om.Method, doc); ok {
			tpls, err := operationTemplates(res, key, code, om.Operation.Responses[code])
			if err != nil {
				return nil, err
			}
			if len(tpls) > 0 {
				cfg.logger.Debug("link templates", zap.String("document", label), zap.String("operation", om.ID()), zap.Int("templates", len(tpls)))
			}
			scan.templates = append(scan.templates, tpls...)
		}
		if !cfg.autoLinks {
			continue
		}
		for _, code := range sortedKeys(om.Operation.Responses) {
			resp, err := res.Response(om.Operation.Responses[code])
			if err != nil {
				return nil, err
			}
			for _, vt := range responseValueTypes(resp) {
				scan.sources = append(scan.sources, autoSource{Origin: key, StatusCode: code, ResponseValueType: vt})
			}
		}
	}
	return scan, nil
}

func operationTemplates(res *Resolver, key OperationKey, code string, ref *openapi3.ResponseRef) ([]Template, error) {
	resp, err := res.Response(ref)
	if err != nil || resp == nil {
		return nil, err
	}
	entries, ok := asObject(resp.Extensions[spec.ExtLinks])
	if !ok {
		return nil, nil
	}
	var out []Template
	for _, name := range sortedKeys(entries) {
		entry := entries[name]
		if ref, ok := refOf(entry); ok {
			if entry, err = res.Lookup(ref); err != nil {
				return nil, err
			}
		}
		var t Template
		if err := decode(entry, &t); err != nil {
			return nil, &spec.SpecError{
				Code:        spec.ParseError,
				Message:     fmt.Sprintf("x-links %q on %s: %v", name, key, err),
				Location:    key.Document,
				JSONPointer: key.String() + "/responses/" + code + "/" + spec.ExtLinks,
				Cause:       err,
			}
		}
		t.Name = name
		t.Origin = key
		t.StatusCode = code
		t.ValueType = strings.TrimSpace(t.ValueType)
		out = append(out, t)
	}
	return out, nil
}

// responseValueTypes reads x-responseValueType, which is either a single tag
// describing the whole body or a list of {x-valueType, x-path} objects.
func responseValueTypes(resp *openapi3.Response) []ResponseValueType {
	if resp == nil {
		return nil
	}
	switch v := resp.Extensions[spec.ExtResponseValueType].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []ResponseValueType{{ValueType: s}}
		}
	case []interface{}:
		var out []ResponseValueType
		for _, item := range v {
			var vt ResponseValueType
			switch it := item.(type) {
			case string:
				vt.ValueType = it
			default:
				if err := decode(it, &vt); err != nil {
					continue
				}
			}
			vt.ValueType = strings.TrimSpace(vt.ValueType)
			vt.Path = strings.TrimPrefix(strings.TrimSpace(vt.Path), "/")
			if vt.ValueType != "" {
				out = append(out, vt)
			}
		}
		return out
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
