package spec

import "github.com/getkin/kin-openapi/openapi3"

// Internal model shared by the loader and the link engine.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// Methods lists the HTTP verbs that identify an operation inside a path item,
// sorted ascending.
var Methods = []HttpMethod{DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT, TRACE}

// OperationModel is one (path, method) pair of a document.
type OperationModel struct {
	Path      string
	Method    HttpMethod
	Item      *openapi3.PathItem
	Operation *openapi3.Operation
}

// ID mirrors the "method path" identifier used in log output.
func (o OperationModel) ID() string { return string(o.Method) + " " + o.Path }

// Extension keys understood by the link engine.
const (
	ExtParameterValueType = "x-parameterValueType"
	// ExtParameterType is the older spelling of ExtParameterValueType.
	ExtParameterType      = "x-parameterType"
	ExtResponseValueType  = "x-responseValueType"
	ExtLinks              = "x-links"
)
