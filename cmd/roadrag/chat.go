package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/repl"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive question loop",
	Long: `Start an interactive loop that answers one question per line.

The loop supports:
  - :link <id>    remember a link so "this link" refers to it
  - :road <name>  remember a road so "this road" refers to it
  - :session      show what is remembered
  - :trace        toggle the per-aspect trace
  - :help         show available commands
  - exit or quit  leave the loop`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var (
	chatLink  string
	chatRoad  string
	chatTrace bool
	chatColor string
)

func init() {
	chatCmd.Flags().StringVar(&chatLink, "link", "", "Start with this link remembered")
	chatCmd.Flags().StringVar(&chatRoad, "road", "", "Start with this road remembered")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "Print the per-aspect outcome after each answer")
	chatCmd.Flags().StringVar(&chatColor, "color", "auto", "Colorize output (auto|always|never)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig, appOptions{withLLM: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctrl, err := a.newController()
	if err != nil {
		return err
	}
	if chatLink != "" {
		ctrl.Session().SetLink(chatLink)
	}
	if chatRoad != "" {
		ctrl.Session().SetRoad(chatRoad)
	}

	opts := []repl.Option{
		repl.WithInput(cmd.InOrStdin()),
		repl.WithOutput(cmd.OutOrStdout()),
		repl.WithErrorOutput(cmd.ErrOrStderr()),
		repl.WithTrace(chatTrace),
		repl.WithLogger(observability.NewTracedLogger(slog.Default(), "repl")),
	}
	switch chatColor {
	case "always":
		opts = append(opts, repl.WithColor(true))
	case "never":
		opts = append(opts, repl.WithColor(false))
	}

	return repl.New(ctrl, opts...).Run(ctx)
}
