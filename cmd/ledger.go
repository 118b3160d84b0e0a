/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/ledger"
)

var CmdLedger = &cli.Command{
	Name:  "ledger",
	Usage: "Leader ledger commands",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "api-base-url",
			Value:   api.DefaultBaseURL,
			Sources: cli.EnvVars("API_BASE_URL"),
			Usage:   "base URL of the business REST backend",
		},
		&cli.StringFlag{
			Name:    "email",
			Sources: cli.EnvVars("COPYAPP_EMAIL"),
			Usage:   "login email",
		},
		&cli.StringFlag{
			Name:    "password",
			Sources: cli.EnvVars("COPYAPP_PASSWORD"),
			Usage:   "login password",
		},
		&cli.DurationFlag{
			Name:    "api-timeout",
			Value:   api.DefaultTimeout,
			Sources: cli.EnvVars("API_TIMEOUT"),
			Usage:   "timeout for a single backend call",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Print the balance summary of a leader",
			ArgsUsage: "<leader-id>",
			Action:    ledgerShow,
		},
		{
			Name:      "export",
			Usage:     "Write the ledger of a leader to an XLSX workbook",
			ArgsUsage: "<leader-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "output file (default: generated name in the current directory)",
				},
			},
			Action: ledgerExport,
		},
	},
}

// ledgerClient logs in with the configured credentials and returns a client
// bound to the issued token.
func ledgerClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	client, err := api.New(api.Config{
		BaseURL: cmd.String("api-base-url"),
		Timeout: cmd.Duration("api-timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	result, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return client.WithSession(result.Token, nil), nil
}

func loadLedger(ctx context.Context, cmd *cli.Command) (*api.Client, ledger.View, error) {
	leaderID := strings.TrimSpace(cmd.Args().First())
	if leaderID == "" {
		return nil, ledger.View{}, errLeaderRequired
	}

	client, err := ledgerClient(ctx, cmd)
	if err != nil {
		return nil, ledger.View{}, err
	}

	view, err := ledger.Load(ctx, client, leaderID)
	if err != nil {
		return nil, ledger.View{}, fmt.Errorf("failed to load ledger: %w", err)
	}
	return client, view, nil
}

// ledgerFormatter uses the backend's currency setting, falling back to the
// default when settings cannot be read.
func ledgerFormatter(ctx context.Context, client *api.Client) *currency.Formatter {
	settings, err := client.GetSettings(ctx)
	if err != nil || settings == nil {
		if err != nil {
			cliLogger.Warn("Failed to load currency settings", "error", err)
		}
		return currency.New(currency.Default)
	}
	return currency.New(currency.NewPreference(settings.CurrencyCode, settings.CurrencySymbol))
}

func ledgerShow(ctx context.Context, cmd *cli.Command) error {
	client, view, err := loadLedger(ctx, cmd)
	if err != nil {
		return err
	}
	money := ledgerFormatter(ctx, client)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	summary := view.Summary
	fmt.Fprintf(out, "Leader:            %s (%s)\n", view.Leader.Name, view.Leader.Type)
	fmt.Fprintf(out, "Opening balance:   %s\n", money.Format(view.OpeningBalance))
	fmt.Fprintf(out, "Orders:            %d\n", summary.TotalOrders)
	fmt.Fprintf(out, "Order amount:      %s\n", money.Format(summary.TotalOrderAmount))
	fmt.Fprintf(out, "Paid:              %s\n", money.Format(summary.TotalPaid))
	fmt.Fprintf(out, "Outstanding:       %s\n", money.Format(summary.TotalOutstanding))
	fmt.Fprintf(out, "Unallocated:       %s\n", money.Format(summary.UnallocatedTotal))
	fmt.Fprintf(out, "Net outstanding:   %s\n", money.Format(summary.NetOutstanding))
	return nil
}

func ledgerExport(ctx context.Context, cmd *cli.Command) error {
	_, view, err := loadLedger(ctx, cmd)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		output = ledger.Filename(view, time.Now())
	}

	file, err := os.Create(filepath.Clean(output))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}

	if err := ledger.WriteXLSX(file, view); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	cliLogger.Info("Ledger exported", "leader", view.Leader.Name, "orders", view.Summary.TotalOrders, "file", output)
	return nil
}
