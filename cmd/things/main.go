// Package main implements the things CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thingsdev/thingscloud/cloud"
	"github.com/thingsdev/thingscloud/history"
	"github.com/thingsdev/thingscloud/internal/config"
	"github.com/thingsdev/thingscloud/internal/ids"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "things",
	Short:         "Things Cloud sync client",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// openStore opens the local cache from config.
func openStore() (*history.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.OpenStore(cfg.CacheDir, history.StoreOptions{})
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// openStoreAt opens the local cache for an already-loaded config.
func openStoreAt(cfg *config.Config) (*history.Store, error) {
	return history.OpenStore(cfg.CacheDir, history.StoreOptions{})
}

// newClient builds the cloud client from config. Requires a prior
// login (or THINGS_ACCOUNT).
func newClient(cfg *config.Config) (*cloud.Client, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("no account configured; run 'things login <email>' first")
	}
	return cloud.NewClient(cloud.Options{
		Account:   cfg.Account,
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		AppID:     cfg.AppID,
	})
}

// findItem resolves an item by full id or unique id prefix.
func findItem(table *history.Table, idOrPrefix string) (*history.Item, error) {
	if it, ok := table.Get(idOrPrefix); ok {
		return it, nil
	}

	match, found, ambiguous := ids.MatchPrefix(tableIDs(table), idOrPrefix)
	if ambiguous {
		return nil, fmt.Errorf("ambiguous id prefix %q", idOrPrefix)
	}
	if !found {
		return nil, fmt.Errorf("no item matches %q", idOrPrefix)
	}
	it, _ := table.Get(match)
	return it, nil
}

func tableIDs(table *history.Table) []string {
	all := table.All()
	out := make([]string, 0, len(all))
	for _, it := range all {
		out = append(out, it.Todo.ID())
	}
	return out
}
