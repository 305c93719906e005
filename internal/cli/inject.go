package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mark3labs/oaslink/internal/emitter"
	"github.com/mark3labs/oaslink/internal/links"
)

var injectRunner = runInject

func newInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject [inputs...]",
		Short: "Write copies of the documents with resolved links added to their responses",
		Long: "Resolve links across one or more OpenAPI/Swagger documents and write each document, " +
			"with its links added under the originating responses, to the output directory. " +
			"Links already present are not added again.",
		Example: strings.TrimSpace(`  oaslink inject users.yaml orders.yaml --out ./linked
  oaslink --config oaslink.yaml inject --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			env := newRunEnv(cmd, cfg)
			defer func() { _ = env.logger.Sync() }()
			return injectRunner(cmd.Context(), cfg, env)
		},
	}
	addSharedFlags(cmd.Flags(), "Output directory for the linked documents")
	return cmd
}

func runInject(ctx context.Context, cfg *Config, env runEnv) error {
	docs, err := loadDocuments(ctx, cfg, env)
	if err != nil {
		return err
	}
	linked, res, err := links.Inject(ctx, docs, engineOptions(cfg, env)...)
	if err != nil {
		return specUsageError(err)
	}
	env.logger.Info("injected links", zap.Int("links", len(res.Links)), zap.Int("warnings", len(res.Warnings)))

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	planned, err := emitter.EmitDocuments(ctx, linked, emitter.Options{
		OutDir:  cfg.Out,
		Format:  emitter.Format(cfg.Format),
		Force:   cfg.Force,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
		Logger:  env.logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		fmt.Fprintf(env.out, "Planned writes to %s (%d files):\n", absOut, len(planned.Planned))
		for _, p := range planned.Planned {
			fmt.Fprintf(env.out, "- %s\n", p.RelPath)
		}
	}
	return nil
}
