package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"openlet/internal/domain"
	"openlet/internal/parser"

	"github.com/spf13/cobra"
)

type skippedBlock struct {
	Block  int    `json:"block"`
	Reason string `json:"reason"`
}

type parseOutput struct {
	Quiz    domain.ParsedQuiz `json:"quiz"`
	Skipped []skippedBlock    `json:"skipped"`
}

func newParseCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a model completion into a quiz",
		Long:  "Parse a saved model completion (or stdin with -) and print the quiz as JSON, together with the reason each rejected block was skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			quiz, report := parser.ParseWithReport(string(raw))
			out := parseOutput{Quiz: quiz, Skipped: []skippedBlock{}}
			if !quiet {
				for _, res := range report {
					if !res.Valid() {
						out.Skipped = append(out.Skipped, skippedBlock{Block: res.Index, Reason: string(res.Reason)})
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "omit skipped block reasons")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return raw, nil
}
