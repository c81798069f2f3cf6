package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/config"
	"github.com/jon4hz/moments/internal/session"
	"github.com/jon4hz/moments/internal/storage"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the persisted session",
	Long:  `Print the user of the persisted session as JSON. Malformed sessions are discarded.`,
	RunE:  showSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

// openSession loads the config and rehydrates the session store from the
// configured storage. The returned storage has to be closed by the caller.
func openSession(ctx context.Context) (*config.Config, *session.Store, storage.Storage) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open session storage: %v", err)
	}

	store := session.New(st, cfg.Session.StorageKey)
	store.LoadFromStorage(ctx)
	return cfg, store, st
}

func showSession(cmd *cobra.Command, _ []string) error {
	_, store, st := openSession(cmd.Context())
	defer st.Close() //nolint:errcheck

	user := store.CurrentUser()
	if user == nil {
		fmt.Println("not logged in")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}
