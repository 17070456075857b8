package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) compareCmd() *cobra.Command {
	var reference string
	cmd := &cobra.Command{
		Use:   "compare --reference <latex> <answer>... | -",
		Short: "Grade answers given as arguments, or one per line on stdin with -",
		Example: `  grader compare --reference '\frac{1}{2}' 0.5 '\frac{2}{4}' 0.49
  grader compare --mode symbolic --reference 'x^2-1' - < answers.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.env.Grading()
			if err != nil {
				return err
			}
			answers := args
			if len(args) == 1 && args[0] == "-" {
				if answers, err = readLines(cmd); err != nil {
					return err
				}
			}
			codes, err := a.grader().GradeMarkup(cmd.Context(), reference, answers, cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, c := range codes {
				fmt.Fprintf(out, "%s\t%s\n", c, answers[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "reference answer (LaTeX)")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func readLines(cmd *cobra.Command) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

