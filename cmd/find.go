package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	findFormat string
	findOutput string
)

var findCmd = &cobra.Command{
	Use:   "find <persona>",
	Short: "Run one contact search for a persona",
	Long:  `Run one contact search, e.g. prospect-cli find "Marketing managers at SaaS companies" --format csv -o contacts.csv`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(findFormat)
		if err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context(), cfg, "find")
		if err != nil {
			return err
		}

		sess, err := env.Sessions.Get(cfg.Auth.CLIUser)
		if err != nil {
			return err
		}

		state, runErr := sess.Run(cmd.Context(), strings.Join(args, " "))
		if state != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), state.Message)
		}
		if runErr != nil {
			return eris.Wrap(runErr, "find")
		}

		zap.L().Info("find: complete",
			zap.String("status", string(state.Status)),
			zap.Int("results", len(state.Results)),
		)
		return writeOutput(cmd.OutOrStdout(), findOutput, format, state)
	},
}

// writeOutput writes the run to path, or to stdout when path is empty. JSON
// output is the full run state; CSV and XLSX contain only the results.
func writeOutput(stdout io.Writer, path string, format export.Format, state *model.RunState) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "find: create %s", path)
		}
		defer f.Close()
		w = f
	}

	if format == export.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(state), "find: encode json")
	}
	return export.Write(w, format, state.Results)
}

func init() {
	findCmd.Flags().StringVarP(&findFormat, "format", "f", "json", "output format: json, csv or xlsx")
	findCmd.Flags().StringVarP(&findOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(findCmd)
}
