package main

import (
	"embed"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	glazed_cmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	hookchat_cmds "github.com/go-go-golems/hookchat/cmd/hookchat/cmds"
)

//go:embed static
var staticFS embed.FS

var rootCmd = &cobra.Command{
	Use:   "hookchat",
	Short: "hookchat relays chat messages to an n8n workflow webhook",
	Long: `hookchat sends chat messages to a workflow webhook and shows the replies.
When the webhook cannot be called directly, messages are retried through a
list of public CORS relays in order until one succeeds.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	if err := clay.InitGlazed("hookchat", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	send, err := hookchat_cmds.NewSendCommand()
	cobra.CheckErr(err)
	ping, err := hookchat_cmds.NewPingCommand()
	cobra.CheckErr(err)
	wfs, err := hookchat_cmds.NewWorkflowsCommand()
	cobra.CheckErr(err)
	chat, err := hookchat_cmds.NewChatCommand()
	cobra.CheckErr(err)
	serve, err := hookchat_cmds.NewServeCommand(staticFS)
	cobra.CheckErr(err)

	for _, c := range []glazed_cmds.Command{send, ping, wfs, chat, serve} {
		cobraCmd, err := cli.BuildCobraCommand(c,
			cli.WithCobraMiddlewaresFunc(hookchat_cmds.GetMiddlewares),
		)
		cobra.CheckErr(err)
		rootCmd.AddCommand(cobraCmd)
	}

	cobra.CheckErr(rootCmd.Execute())
}
