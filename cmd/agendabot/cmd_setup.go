package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/agendabot/internal/config"
	"github.com/user/agendabot/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Agendabot Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.TimezoneOffset = promptValid(scanner, "Timezone offset", cfg.TimezoneOffset, func(v string) error {
			_, err := config.ParseOffset(v)
			return err
		})

		cfg.Calendar.Backend = promptValid(scanner, "Calendar backend (google|ics)", cfg.Calendar.Backend, func(v string) error {
			if v != "google" && v != "ics" {
				return fmt.Errorf("choose google or ics")
			}
			return nil
		})
		if cfg.Calendar.Backend == "google" {
			cfg.Calendar.CalendarID = prompt(scanner, "Google calendar ID", cfg.Calendar.CalendarID)
			cfg.Calendar.CredentialsFile = prompt(scanner, "Service account credentials file", cfg.Calendar.CredentialsFile)
		} else {
			cfg.Calendar.ICSPath = prompt(scanner, "Calendar file (.ics)", cfg.Calendar.ICSPath)
		}

		cfg.WhatsApp.PhoneNumberID = prompt(scanner, "WhatsApp phone number ID (optional)", cfg.WhatsApp.PhoneNumberID)
		cfg.WhatsApp.Token = prompt(scanner, "WhatsApp access token (optional)", cfg.WhatsApp.Token)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		cfg.Notify.Recipient = prompt(scanner, "Reminder recipient (phone or telegram:<chat id>)", cfg.Notify.Recipient)
		cfg.Notify.DigestSchedule = promptValid(scanner, "Daily digest schedule (cron)", cfg.Notify.DigestSchedule, scheduler.Validate)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

// promptValid repeats the prompt until check accepts the answer or input ends.
func promptValid(scanner *bufio.Scanner, label, defaultVal string, check func(string) error) string {
	for {
		v := prompt(scanner, label, defaultVal)
		err := check(v)
		if err == nil {
			return v
		}
		fmt.Println("  invalid:", err)
		if scanner.Err() != nil || v == defaultVal {
			return defaultVal
		}
	}
}
