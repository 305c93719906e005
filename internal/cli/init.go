package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/oaslink/internal/emitter"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

const defaultConfigFile = "oaslink.yaml"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample oaslink configuration file",
		Long:  "Scaffold a commented oaslink configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if exists, err := regularFileExists(absPath); err == nil && exists && !cfg.Force {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := emitter.WriteFile(absPath, []byte(content)); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

func regularFileExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.Mode().IsRegular(), nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# oaslink configuration (YAML)
# All fields are optional. Command-line flags override config values.
# The file is read from --config, or from $OASLINK_CONFIG when the flag is absent.

# Documents to link: local files or http/https URLs (comma-separated or list).
# The title of each document is the prefix of cross-document operationRefs.
# inputs: [./users.yaml, ./orders.yaml]

# Output: a file for "links" (stdout when omitted), a directory for "inject".
# out: ./linked

# Output format (json|yaml). Defaults to json.
# format: yaml

# Derive links from x-responseValueType in addition to x-links templates.
# autoLinks: true

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing output.
# force: false

# Enable verbose logging.
# verbose: false
`
