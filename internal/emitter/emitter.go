// Package emitter serializes resolved link sets and link-injected documents.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/invopop/yaml"
	"go.uber.org/zap"

	"github.com/mark3labs/oaslink/internal/links"
)

// Format is an output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml (case-insensitive). Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == YAML {
		return ".yaml"
	}
	return ".json"
}

// Encode renders v in format f. YAML is produced from the JSON encoding so
// kin-openapi's MarshalJSON (extensions, $ref objects) is honored.
func Encode(v interface{}, f Format) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if f != YAML {
		return append(data, '\n'), nil
	}
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

// EncodeLinks renders the standalone key to link mapping of res.
func EncodeLinks(res *links.Result, f Format) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("emitter: nil result")
	}
	return Encode(res.Map(), f)
}

// Options controls how documents are written.
type Options struct {
	OutDir  string // required; target directory
	Format  Format
	Force   bool // allow writing into a non-empty directory
	DryRun  bool // don't write, only plan
	Verbose bool
	Logger  *zap.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
	// Document is the title of the document the file holds.
	Document string
}

// Result lists the planned files in write order.
type Result struct {
	Planned []PlannedFile
}

// EmitDocuments writes one file per document, named after its title.
// Documents without a title are named document-<index>.
func EmitDocuments(ctx context.Context, docs []*openapi3.T, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	files := map[string][]byte{}
	titles := map[string]string{}
	used := map[string]bool{}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		title := ""
		if doc.Info != nil {
			title = doc.Info.Title
		}
		base := fileBase(title)
		if base == "" {
			base = "document-" + strconv.Itoa(i)
		}
		name := base + opts.Format.Ext()
		for n := 2; used[name]; n++ {
			name = base + "-" + strconv.Itoa(n) + opts.Format.Ext()
		}
		used[name] = true

		data, err := Encode(doc, opts.Format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		files[name] = data
		titles[name] = title
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644, Document: titles[rel]})
		if opts.Verbose {
			logger.Debug("planned file", zap.String("path", rel), zap.Int("size", len(files[rel])))
		}
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		if err := WriteFile(filepath.Join(abs, rel), content); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes content to path atomically via a temp file and rename,
// creating parent directories as needed.
func WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := path + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// fileBase lowercases title and joins its words with dashes, keeping only
// alphanumerics, dash and underscore.
func fileBase(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return ""
	}
	repl := strings.NewReplacer("/", " ", ".", " ", ",", " ", ":", " ", "\\", " ")
	t = strings.Join(strings.Fields(repl.Replace(t)), "-")
	b := strings.Builder{}
	for _, r := range t {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
