package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/agendabot/internal/types"
)

var askSender string

func init() {
	askCmd.Flags().StringVar(&askSender, "sender", "cli:local", "sender key recorded for the message")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Run one message against the calendar and print the reply",
	Example: `  agendabot ask "reunión con Ana mañana a las 3pm"
  agendabot ask "qué tengo esta semana"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		res := a.dispatcher.Handle(ctx, types.Message{
			Sender: types.SenderKey(askSender),
			Text:   strings.Join(args, " "),
			Source: "cli",
		})
		fmt.Fprintln(os.Stdout, res.Reply)
		if res.Err != nil {
			return res.Err
		}
		return nil
	},
}
