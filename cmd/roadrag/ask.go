package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/cmd/roadrag/internal"
	"github.com/kg-road/roadrag/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Long: `Answer a single question and exit.

With -o json the full turn record is printed: the planned aspects, the
query generated for each, its outcome, the accumulated context and the
answer.`,
	Example: `  roadrag ask "What incidents are active on the A1?"
  roadrag ask --link L-1001 -o json "Which plans cover this link?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askOutput string
	askLink   string
	askRoad   string
)

func init() {
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "text", "Output format (text|json)")
	askCmd.Flags().StringVar(&askLink, "link", "", "Link that \"this link\" refers to")
	askCmd.Flags().StringVar(&askRoad, "road", "", "Road that \"this road\" refers to")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := internal.ParseOutputFormat(askOutput)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appConfig, appOptions{withLLM: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctrl, err := a.newController()
	if err != nil {
		return err
	}
	if askLink != "" {
		ctrl.Session().SetLink(askLink)
	}
	if askRoad != "" {
		ctrl.Session().SetRoad(askRoad)
	}

	result, runErr := ctrl.Run(ctx, strings.Join(args, " "))
	if format == internal.FormatJSON && result != nil {
		if err := internal.WriteJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	}
	if runErr != nil {
		var terr *rag.TurnError
		if errors.As(runErr, &terr) {
			return internal.WrapError(internal.ExitCodeFor(runErr),
				fmt.Sprintf("could not answer %q", terr.Question), runErr)
		}
		return runErr
	}

	if format == internal.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	}
	if !result.Found {
		return internal.NewCLIError(internal.ExitNoAnswer, "no relevant graph data for this question")
	}
	return nil
}
