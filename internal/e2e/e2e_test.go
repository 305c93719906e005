package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mark3labs/oaslink/internal/cli"
	"github.com/mark3labs/oaslink/internal/spec"
)

var corpus = map[string]string{
	"users.yaml": "" +
		"openapi: 3.0.0\n" +
		"info:\n" +
		"  title: Users\n" +
		"  version: '1.0.0'\n" +
		"paths:\n" +
		"  /users/{id}:\n" +
		"    parameters:\n" +
		"      - in: path\n" +
		"        name: id\n" +
		"        required: true\n" +
		"        x-parameterValueType: UserID\n" +
		"        schema: { type: string }\n" +
		"    get:\n" +
		"      responses:\n" +
		"        '200':\n" +
		"          $ref: '#/components/responses/User'\n" +
		"    delete:\n" +
		"      parameters:\n" +
		"        - in: header\n" +
		"          name: X-Reason\n" +
		"          required: true\n" +
		"          schema: { type: string }\n" +
		"      responses:\n" +
		"        '204':\n" +
		"          description: deleted\n" +
		"components:\n" +
		"  responses:\n" +
		"    User:\n" +
		"      description: a user\n" +
		"      x-responseValueType:\n" +
		"        - x-valueType: AccountID\n" +
		"          x-path: accountId\n",
	"orders.yaml": "" +
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
		"                UserID: '$response.body#/userId'\n",
	"billing.yaml": "" +
		"openapi: 3.0.0\n" +
		"info:\n" +
		"  title: Billing\n" +
		"  version: '1.0.0'\n" +
		"paths:\n" +
		"  /accounts/{accountId}:\n" +
		"    get:\n" +
		"      parameters:\n" +
		"        - in: path\n" +
		"          name: accountId\n" +
		"          required: true\n" +
		"          x-parameterValueType: AccountID\n" +
		"          schema: { type: string }\n" +
		"      responses:\n" +
		"        '200':\n" +
		"          description: ok\n",
}

func writeCorpus(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	names := make([]string, 0, len(corpus))
	for name := range corpus {
		names = append(names, name)
	}
	sort.Strings(names)
	var paths []string
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(corpus[name]), 0o600); err != nil {
			t.Fatalf("write spec: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := cli.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
	return out.String()
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		// hash path + contents to be robust
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Links_Deterministic(t *testing.T) {
	t.Parallel()
	inputs := writeCorpus(t)

	args := append([]string{"links", "--format", "yaml"}, inputs...)
	first := runCLI(t, args...)
	for i := 0; i < 3; i++ {
		if again := runCLI(t, args...); again != first {
			t.Fatalf("links output differs between runs\nfirst:\n%s\nagain:\n%s", first, again)
		}
	}

	// owner also matches DELETE /users/{id}, which is pruned for its unbound
	// X-Reason header. The user response feeds Billing through AccountID.
	for _, want := range []string{"owner:", "Users#/paths/~1users~1{id}/get", "Billing#/paths/~1accounts~1{accountId}/get", "$response.body#/accountId"} {
		if !strings.Contains(first, want) {
			t.Fatalf("links output missing %q:\n%s", want, first)
		}
	}
	if strings.Contains(first, "/delete") {
		t.Fatalf("link to delete should have been pruned:\n%s", first)
	}
}

func TestE2E_Inject_Deterministic_And_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := writeCorpus(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, append([]string{"inject", "--out", dir1, "--force"}, inputs...)...)
	runCLI(t, append([]string{"inject", "--out", dir2, "--force"}, inputs...)...)

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("injected outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}
	if want := []string{"billing.json", "orders.json", "users.json"}; !slicesEqual(files1, want) {
		t.Fatalf("files: want %v got %v", want, files1)
	}

	// Output documents load and validate on their own.
	var linked []string
	for _, f := range files1 {
		linked = append(linked, filepath.Join(dir1, f))
	}
	docs, err := spec.LoadAll(context.Background(), linked)
	if err != nil {
		t.Fatalf("reload injected documents: %v", err)
	}
	for _, doc := range docs {
		if doc.Info.Title == "Orders" {
			links := doc.Paths["/orders/{id}"].Get.Responses["200"].Value.Links
			if links["owner"] == nil || links["owner"].Value.OperationRef != "Users#/paths/~1users~1{id}/get" {
				t.Fatalf("orders: owner link missing: %+v", links)
			}
		}
	}

	// Injecting into already linked documents adds nothing.
	dir3 := t.TempDir()
	runCLI(t, append([]string{"inject", "--out", dir3, "--force"}, linked...)...)
	files3, sum3 := digestDir(t, dir3)
	if !slicesEqual(files1, files3) || sum1 != sum3 {
		t.Fatalf("re-injection changed the documents\nfiles1=%v\nfiles3=%v", files1, files3)
	}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
