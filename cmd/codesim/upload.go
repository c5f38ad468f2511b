package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/upload"
)

func (c *cli) uploadCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload source files in one language",
		Long: "Upload source files in one language. The language is taken from\n" +
			"--language or detected from the first file's extension.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := uploadLanguage(language, args[0])
			if err != nil {
				return err
			}

			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()

			files, err := upload.Collect(cmd.Context(), args, lang)
			if err != nil {
				return err
			}
			msg, err := upload.Send(cmd.Context(), e.client, lang, files, e.events)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "one of JAVA PYTHON CPP GO RUBY ADA JAVASCRIPT TYPESCRIPT")
	return cmd
}

func uploadLanguage(flag, first string) (model.Language, error) {
	if flag != "" {
		lang, ok := model.ParseLanguage(flag)
		if !ok {
			return "", &upload.InvalidFileError{Name: first, Reason: fmt.Sprintf("unsupported language %q", flag)}
		}
		return lang, nil
	}
	lang, ok := model.DetectLanguage(first)
	if !ok {
		return "", &upload.InvalidFileError{Name: first, Reason: "cannot detect language; pass --language"}
	}
	return lang, nil
}
