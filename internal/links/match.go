package links

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/oaslink/internal/spec"
)

// candidateKey identifies one proposed link. Bindings of the same template
// that land on different targets never share a candidate.
type candidateKey struct {
	origin OperationKey
	status string
	name   string
	target OperationKey
}

type candidate struct {
	candidateKey
	description string
	requestBody interface{}
	params      map[string]interface{}
	valueTypes  []string
}

// label names the candidate in warnings: the template name, or the response
// value types an auto link was derived from.
func (c *candidate) label() string {
	if c.name != "" {
		return c.name
	}
	return spec.ExtResponseValueType + ":" + strings.Join(c.valueTypes, ",")
}

func (c *candidate) link() *openapi3.Link {
	params := make(map[string]interface{}, len(c.params))
	for k, v := range c.params {
		params[k] = v
	}
	return &openapi3.Link{
		OperationRef: c.target.Ref(c.origin.Document),
		Parameters:   params,
		Description:  c.description,
		RequestBody:  c.requestBody,
	}
}

type compatKey struct {
	target    OperationKey
	valueType string
}

type matcher struct {
	reg    *Registry
	index  *ValueTypeIndex
	compat map[compatKey]bool

	order []*candidate
	byKey map[candidateKey]*candidate
}

func newMatcher(reg *Registry, index *ValueTypeIndex) *matcher {
	return &matcher{
		reg:    reg,
		index:  index,
		compat: map[compatKey]bool{},
		byKey:  map[candidateKey]*candidate{},
	}
}

func (m *matcher) candidate(k candidateKey) *candidate {
	if c, ok := m.byKey[k]; ok {
		return c
	}
	c := &candidate{candidateKey: k, params: map[string]interface{}{}}
	m.byKey[k] = c
	m.order = append(m.order, c)
	return c
}

// matchTemplate binds every template parameter to the indexed parameters
// sharing its tag. Targets that cannot produce the template's x-valueType
// are skipped.
func (m *matcher) matchTemplate(t Template) error {
	for _, tag := range sortedKeys(t.Parameters) {
		value := t.Parameters[tag]
		for _, ref := range m.index.Lookup(tag) {
			if t.ValueType != "" {
				ok, err := m.produces(ref.OperationKey, t.ValueType)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			c := m.candidate(candidateKey{origin: t.Origin, status: t.StatusCode, name: t.Name, target: ref.OperationKey})
			c.description = t.Description
			c.requestBody = t.RequestBody
			c.params[ref.Name] = value
		}
	}
	return nil
}

// matchSource links a tagged response value to every parameter sharing its
// tag.
func (m *matcher) matchSource(s autoSource) {
	for _, ref := range m.index.Lookup(s.ValueType) {
		c := m.candidate(candidateKey{origin: s.Origin, status: s.StatusCode, target: ref.OperationKey})
		c.params[ref.Name] = s.BodyExpression()
		if !containsString(c.valueTypes, s.ValueType) {
			c.valueTypes = append(c.valueTypes, s.ValueType)
		}
	}
}

// produces reports whether any response of target declares valueType in
// x-responseValueType. References are resolved in the target's own document.
func (m *matcher) produces(target OperationKey, valueType string) (bool, error) {
	key := compatKey{target: target, valueType: valueType}
	if ok, seen := m.compat[key]; seen {
		return ok, nil
	}
	found := false
	if op := m.reg.Operation(target); op != nil {
		res := m.reg.resolver(target.Document)
		for _, code := range sortedKeys(op.Responses) {
			resp, err := res.Response(op.Responses[code])
			if err != nil {
				return false, err
			}
			for _, vt := range responseValueTypes(resp) {
				if vt.ValueType == valueType {
					found = true
				}
			}
			if found {
				break
			}
		}
	}
	m.compat[key] = found
	return found, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
