package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thingsdev/thingscloud/cloud"
	"github.com/thingsdev/thingscloud/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Authenticate and store the account history key",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := args[0]

	password := os.Getenv("THINGS_PASSWORD")
	if password == "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", email)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	creds := cloud.Credentials{Email: email, Password: password}

	info, err := cloud.Login(cmd.Context(), cfg.BaseURL, creds, nil)
	if err != nil {
		return err
	}
	if info.Status != cloud.AccountStatusActive {
		return fmt.Errorf("account %s is not active (status %q)", email, info.Status)
	}

	session, err := cloud.NewSession(cmd.Context(), cfg.BaseURL, creds, nil)
	if err != nil {
		return err
	}

	cfg.Account = info.HistoryKey
	cfg.Email = info.Email
	if err := config.Save(cfg); err != nil {
		return err
	}

	// Seed the watermark so the first sync doesn't walk the whole
	// account history.
	store, err := openStoreAt(cfg)
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}
	if table.Len() == 0 && table.Watermark() == 0 {
		table.SetWatermark(session.HeadIndex)
		if err := store.Save(table); err != nil {
			return err
		}
	}

	fmt.Printf("logged in as %s (history key %s)\n", info.Email, info.HistoryKey)
	return nil
}
