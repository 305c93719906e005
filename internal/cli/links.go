package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mark3labs/oaslink/internal/emitter"
	"github.com/mark3labs/oaslink/internal/links"
	"github.com/mark3labs/oaslink/internal/spec"
)

// runEnv carries the per-invocation output stream and logger.
type runEnv struct {
	out    io.Writer
	logger *zap.Logger
}

func newRunEnv(cmd *cobra.Command, cfg *Config) runEnv {
	return runEnv{out: cmd.OutOrStdout(), logger: newLogger(cmd.ErrOrStderr(), cfg.Verbose)}
}

var linksRunner = runLinks

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links [inputs...]",
		Short: "Resolve links across documents and print them as a key to link mapping",
		Long: "Resolve links across one or more OpenAPI/Swagger documents without modifying them. " +
			"The result maps link keys to OpenAPI link objects. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  oaslink links users.yaml orders.yaml
  oaslink links -i users.yaml -i https://example.com/orders.json --format yaml --out links.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			env := newRunEnv(cmd, cfg)
			defer func() { _ = env.logger.Sync() }()
			return linksRunner(cmd.Context(), cfg, env)
		},
	}
	addSharedFlags(cmd.Flags(), "Output file (stdout when omitted)")
	return cmd
}

func runLinks(ctx context.Context, cfg *Config, env runEnv) error {
	docs, err := loadDocuments(ctx, cfg, env)
	if err != nil {
		return err
	}
	res, err := links.Resolve(ctx, docs, engineOptions(cfg, env)...)
	if err != nil {
		return specUsageError(err)
	}
	env.logger.Info("resolved links", zap.Int("links", len(res.Links)), zap.Int("warnings", len(res.Warnings)))

	data, err := emitter.EncodeLinks(res, emitter.Format(cfg.Format))
	if err != nil {
		return err
	}
	if cfg.Out == "" {
		_, err := env.out.Write(data)
		return err
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	if cfg.DryRun {
		fmt.Fprintf(env.out, "Planned write to %s (%d bytes, %d links)\n", absOut, len(data), len(res.Links))
		return nil
	}
	if exists, err := regularFileExists(absOut); err == nil && exists && !cfg.Force {
		return newUsageError(fmt.Sprintf("links: %q already exists (use --force to overwrite)", absOut))
	}
	if err := emitter.WriteFile(absOut, data); err != nil {
		return wrapOutputError(err, absOut)
	}
	return nil
}

func loadDocuments(ctx context.Context, cfg *Config, env runEnv) ([]*openapi3.T, error) {
	env.logger.Debug("loading documents", zap.Strings("inputs", cfg.Inputs))
	docs, err := spec.LoadAll(ctx, cfg.Inputs)
	if err != nil {
		return nil, specUsageError(err)
	}
	return docs, nil
}

func engineOptions(cfg *Config, env runEnv) []links.Option {
	return []links.Option{
		links.WithLogger(env.logger),
		links.WithAutoLinks(cfg.AutoLinks),
	}
}

// specUsageError maps structured document errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
