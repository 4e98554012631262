package cli

import (
	"fmt"
	"os"
	"time"

	"paperchat/config"
	"paperchat/internal/adapter/store"
)

// clearIndex empties the local bbolt index, including the pinned embedding model.
func clearIndex() error {
	cfg := GetConfig()
	dbPath := config.IndexDBPath(cfg.IndexDir(GetRootDir()))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}
	st, err := store.NewBoltStore(dbPath, time.Duration(cfg.Index.OpenTimeoutSecs)*time.Second)
	if err != nil {
		return err
	}
	defer st.Close()
	fmt.Println("Clearing existing index...")
	return st.Clear()
}

// requireIndex fails early when nothing has been ingested yet.
func requireIndex() error {
	return checkIndex(GetConfig(), GetRootDir())
}

func checkIndex(cfg *config.Config, root string) error {
	if cfg.Store.Type == "memory" {
		return nil
	}
	dbPath := config.IndexDBPath(cfg.IndexDir(root))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Run 'paperchat ingest' first", dbPath)
	}
	return nil
}
