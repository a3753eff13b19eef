package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/codequest-api/internal/catalog"
	"github.com/noah-isme/codequest-api/internal/evaluator"
)

func newEvaluateCmd() *cobra.Command {
	var (
		rulesPath   string
		htmlPath    string
		cssPath     string
		jsPath      string
		solutionDir string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade local HTML/CSS/JS files against a rule set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := catalog.LoadRules(rulesPath)
			if err != nil {
				return err
			}

			submission, err := catalog.LoadSubmission(htmlPath, cssPath, jsPath)
			if err != nil {
				return err
			}
			if submission.IsEmpty() {
				return fmt.Errorf("at least one of --html, --css or --js must point to a non-empty file")
			}

			var reference *evaluator.Submission
			if solutionDir != "" {
				reference, err = catalog.LoadSolutionDir(solutionDir)
				if err != nil {
					return err
				}
			}

			result := evaluator.Evaluate(submission, rules, reference)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML or JSON rule set")
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML source file")
	cmd.Flags().StringVar(&cssPath, "css", "", "CSS source file")
	cmd.Flags().StringVar(&jsPath, "js", "", "JavaScript source file")
	cmd.Flags().StringVar(&solutionDir, "solution", "", "directory with the reference index.html, style.css and script.js")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}
