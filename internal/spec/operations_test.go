package spec

import (
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

const sampleSpec = `openapi: 3.0.0
info:
  title: Sample API
  version: "1.0.0"
paths:
  /pets:
    parameters:
      - in: query
        name: limit
        required: false
        schema:
          type: integer
      - in: header
        name: X-Tenant
        required: true
        x-parameterType: TenantID
        schema:
          type: string
    post:
      responses:
        "201": { description: created }
    get:
      parameters:
        - in: query
          name: limit
          required: true
          x-parameterValueType: PageSize
          schema:
            type: integer
        - $ref: '#/components/parameters/Cursor'
      responses:
        "200": { description: ok }
  /admin:
    x-internal: true
    delete:
      responses:
        "204": { description: gone }
    get:
      responses:
        "200": { description: ok }
components:
  parameters:
    Cursor:
      in: query
      name: cursor
      schema:
        type: string
`

func loadDoc(t *testing.T, spec string) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(strings.TrimSpace(spec)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func valueOf(ref *openapi3.ParameterRef) (*openapi3.Parameter, error) { return ref.Value, nil }

func TestOperations_DeterministicOrder(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)

	var got []string
	for _, op := range Operations(doc) {
		got = append(got, op.ID())
	}
	want := []string{"delete /admin", "get /admin", "get /pets", "post /pets"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("order: want %v got %v", want, got)
	}
}

func TestMergeParameters_OperationOverridesPathLevel(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)
	item := doc.Paths["/pets"]

	params, err := MergeParameters(item, item.Get, valueOf)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	var names []string
	for _, p := range params {
		names = append(names, p.In+":"+p.Name)
	}
	if got := strings.Join(names, ","); got != "header:X-Tenant,query:limit,query:cursor" {
		t.Fatalf("merged order: got %s", got)
	}
	if !params[1].Required {
		t.Fatalf("limit: expected operation-level required=true to win")
	}
	if ParameterValueType(params[1]) != "PageSize" {
		t.Fatalf("limit: value type %q", ParameterValueType(params[1]))
	}
	if ParameterValueType(params[0]) != "TenantID" {
		t.Fatalf("legacy x-parameterType not honored: %q", ParameterValueType(params[0]))
	}
	if ParameterValueType(params[2]) != "" {
		t.Fatalf("cursor: expected no value type")
	}
}

func TestFindAndSetOperation(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)
	if FindOperation(doc, "/admin", DELETE) == nil {
		t.Fatalf("delete /admin not found")
	}
	if FindOperation(doc, "/admin", PUT) != nil || FindOperation(doc, "/nope", GET) != nil {
		t.Fatalf("unexpected operation")
	}
	replacement := &openapi3.Operation{Summary: "replaced"}
	SetOperation(doc.Paths["/admin"], GET, replacement)
	if FindOperation(doc, "/admin", GET) != replacement {
		t.Fatalf("SetOperation did not store the operation")
	}
}
