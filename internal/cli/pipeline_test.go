package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const usersSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Users\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /users/{id}:\n" +
	"    get:\n" +
	"      parameters:\n" +
	"        - in: path\n" +
	"          name: id\n" +
	"          required: true\n" +
	"          x-parameterValueType: UserID\n" +
	"          schema: { type: string }\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n"

const ordersSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Orders\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /orders/{id}:\n" +
	"    get:\n" +
	"      parameters:\n" +
	"        - in: path\n" +
	"          name: id\n" +
	"          required: true\n" +
	"          x-parameterValueType: OrderID\n" +
	"          schema: { type: string }\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          x-links:\n" +
	"            owner:\n" +
	"              parameters:\n" +
	"                UserID: '$response.body#/userId'\n"

func writeSpecs(t *testing.T) (dir string, inputs []string) {
	t.Helper()
	dir = t.TempDir()
	for name, content := range map[string]string{"users.yaml": usersSpecYAML, "orders.yaml": ordersSpecYAML} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write spec: %v", err)
		}
	}
	return dir, []string{filepath.Join(dir, "users.yaml"), filepath.Join(dir, "orders.yaml")}
}

func TestLinksPipeline_Stdout(t *testing.T) {
	t.Parallel()
	_, inputs := writeSpecs(t)

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"links"}, inputs...))

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got map[string]map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	owner, ok := got["owner"]
	if !ok {
		t.Fatalf("expected owner link, got %v", got)
	}
	if owner["operationRef"] != "Users#/paths/~1users~1{id}/get" {
		t.Fatalf("operationRef: %v", owner["operationRef"])
	}
	if !strings.Contains(errOut.String(), "resolved links") {
		t.Fatalf("expected summary log line, got: %s", errOut.String())
	}
}

func TestLinksPipeline_ExistingOutNeedsForce(t *testing.T) {
	t.Parallel()
	dir, inputs := writeSpecs(t)
	outPath := filepath.Join(dir, "links.json")
	if err := os.WriteFile(outPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"links", "--out", outPath}, inputs...))
	if err := root.Execute(); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"links", "--out", outPath, "--force", "--format", "yaml"}, inputs...))
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "owner:") {
		t.Fatalf("unexpected output: %s", data)
	}
}

func TestInjectPipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir, inputs := writeSpecs(t)
	outDir := filepath.Join(dir, "linked")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"inject", "--out", outDir, "--dry-run"}, inputs...))

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "Planned writes to") || !strings.Contains(out.String(), "- orders.json") {
		t.Fatalf("expected dry-run plan output, got: %s", out.String())
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestInjectPipeline_Writes(t *testing.T) {
	t.Parallel()
	dir, inputs := writeSpecs(t)
	outDir := filepath.Join(dir, "linked")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"inject", "--out", outDir}, inputs...))
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "orders.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"operationRef": "Users#/paths/~1users~1{id}/get"`) {
		t.Fatalf("expected injected link in orders.json:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(outDir, "users.json")); err != nil {
		t.Fatalf("expected users.json: %v", err)
	}
}

func TestLinksPipeline_BrokenReferenceFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	broken := strings.Replace(ordersSpecYAML, "            owner:\n              parameters:\n                UserID: '$response.body#/userId'\n",
		"            owner:\n              $ref: '#/components/links/Missing'\n", 1)
	path := filepath.Join(dir, "orders.yaml")
	if err := os.WriteFile(path, []byte(broken), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"links", path})
	err := root.Execute()
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "Pointer: #/components/links/Missing") {
		t.Fatalf("expected reference usage error, got %v", err)
	}
}

func TestLinksPipeline_NamelessParameterAndComponentTemplate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	users := strings.Replace(usersSpecYAML, "      responses:\n",
		"        - in: query\n"+
			"          x-parameterValueType: TenantID\n"+
			"          schema: { type: string }\n"+
			"      responses:\n", 1)
	orders := strings.Replace(ordersSpecYAML, "            owner:\n              parameters:\n                UserID: '$response.body#/userId'\n",
		"            owner:\n              $ref: '#/components/links/Owner'\n", 1) +
		"components:\n" +
		"  links:\n" +
		"    Owner:\n" +
		"      parameters:\n" +
		"        UserID: '$response.body#/userId'\n"
	var inputs []string
	for name, content := range map[string]string{"users.yaml": users, "orders.yaml": orders} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write spec: %v", err)
		}
		inputs = append(inputs, path)
	}

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"links"}, inputs...))
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"operationRef": "Users#/paths/~1users~1{id}/get"`) {
		t.Fatalf("expected owner link, got:\n%s", out.String())
	}
	logs := errOut.String()
	if !strings.Contains(logs, "WARN") || !strings.Contains(logs, "MissingParameterName") {
		t.Fatalf("expected MissingParameterName warning, got:\n%s", logs)
	}
}
