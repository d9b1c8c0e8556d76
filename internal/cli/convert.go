package cli

import (
	"log"

	"github.com/spf13/cobra"

	"quizhall/internal/bankconv"
)

// NewConvertCmd converts formatted question text into the JSON bank document.
func NewConvertCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert formatted questions to the JSON bank format",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := bankconv.ConvertFile(input, output)
			if err != nil {
				return err
			}
			log.Printf("converted %d questions in %d lists to %s", summary.Questions, summary.Lists, output)
			if summary.MissingAnswers > 0 {
				log.Printf("warning: %d questions have no correct answer marked", summary.MissingAnswers)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "formatted_questions.txt", "input text file")
	cmd.Flags().StringVar(&output, "output", "questions.json", "output JSON file")
	return cmd
}
