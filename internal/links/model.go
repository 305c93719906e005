// Package links derives cross-operation OpenAPI links from semantic
// value-type annotations spread over one or more documents.
//
// Parameters tagged with x-parameterValueType are indexed by tag. Link
// templates declared under a response's x-links, and response value types
// declared with x-responseValueType, are matched against that index to
// produce concrete openapi3.Link objects whose operationRef may point into
// another loaded document. Links that would leave a required parameter of the
// target operation unbound are dropped.
package links

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"

	"github.com/mark3labs/oaslink/internal/spec"
)

// OperationKey identifies an operation across all registered documents.
type OperationKey struct {
	Document string
	Path     string
	Method   spec.HttpMethod
}

// Ref renders the operationRef for k as seen from the document named from.
// The label prefix is omitted for same-document references.
func (k OperationKey) Ref(from string) string {
	prefix := ""
	if k.Document != from {
		prefix = k.Document
	}
	return prefix + "#/paths/" + jsonpointer.Escape(k.Path) + "/" + string(k.Method)
}

func (k OperationKey) String() string { return k.Ref("") }

// ParameterReference points at one tagged parameter in the corpus.
type ParameterReference struct {
	OperationKey
	Name string
}

// ResponseValueType is one {x-valueType, x-path} pair of a response.
// Path is empty when the tag was given in the single-string form.
type ResponseValueType struct {
	ValueType string `json:"x-valueType"`
	Path      string `json:"x-path,omitempty"`
}

// BodyExpression is the runtime expression selecting the tagged value from a
// response body.
func (v ResponseValueType) BodyExpression() string {
	if v.Path == "" {
		return "$response.body"
	}
	return "$response.body#/" + v.Path
}

// Template is a resolved x-links entry ("smart link").
type Template struct {
	Name        string                 `json:"-"`
	Origin      OperationKey           `json:"-"`
	StatusCode  string                 `json:"-"`
	ValueType   string                 `json:"x-valueType,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Description string                 `json:"description,omitempty"`
	RequestBody interface{}            `json:"requestBody,omitempty"`
}

// autoSource is a response value type that can feed other operations'
// parameters directly.
type autoSource struct {
	Origin     OperationKey
	StatusCode string
	ResponseValueType
}

// ResolvedLink is one emitted link together with its provenance.
type ResolvedLink struct {
	Key string
	// Name is the originating template name; empty for links derived from
	// x-responseValueType.
	Name       string
	Origin     OperationKey
	StatusCode string
	Target     OperationKey
	Link       *openapi3.Link
}

// Result is the output of a resolution pass.
type Result struct {
	// Links holds every emitted link in deterministic order.
	Links []ResolvedLink
	// Warnings holds every non-fatal condition, in the order encountered.
	Warnings []Warning
}

// Map returns the standalone key to link mapping.
func (r *Result) Map() map[string]*openapi3.Link {
	out := make(map[string]*openapi3.Link, len(r.Links))
	for _, l := range r.Links {
		out[l.Key] = l.Link
	}
	return out
}
