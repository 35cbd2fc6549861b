package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thingsdev/thingscloud/history"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch remote changes and push pending local changes",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch remote changes without pushing",
	Args:  cobra.NoArgs,
	RunE:  runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push pending local changes without fetching",
	Args:  cobra.NoArgs,
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(syncCmd, pullCmd, pushCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}

	syncer := history.NewSyncer(table, client)
	res, err := syncer.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	pushed, err := syncer.PushPending(cmd.Context())
	if err != nil {
		// Remote changes already applied locally are still worth
		// keeping even when the push half fails.
		if saveErr := store.Save(table); saveErr != nil {
			return fmt.Errorf("%w (and saving cache failed: %v)", err, saveErr)
		}
		return err
	}
	if err := store.Save(table); err != nil {
		return err
	}

	printApplyResult(res)
	fmt.Printf("pushed %d, watermark %d\n", pushed, table.Watermark())
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}

	syncer := history.NewSyncer(table, client)
	res, err := syncer.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	if err := store.Save(table); err != nil {
		return err
	}

	printApplyResult(res)
	fmt.Printf("watermark %d\n", table.Watermark())
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}

	syncer := history.NewSyncer(table, client)
	pushed, err := syncer.PushPending(cmd.Context())
	if err != nil {
		if saveErr := store.Save(table); saveErr != nil {
			return fmt.Errorf("%w (and saving cache failed: %v)", err, saveErr)
		}
		return err
	}
	if err := store.Save(table); err != nil {
		return err
	}

	fmt.Printf("pushed %d, watermark %d\n", pushed, table.Watermark())
	return nil
}

func printApplyResult(res history.ApplyResult) {
	fmt.Printf("pulled %d new, %d edited, %d deleted\n", res.Created, res.Edited, res.Deleted)
	for _, id := range res.Skipped {
		fmt.Printf("skipped update for unknown record %s\n", id)
	}
}
