package facility

import (
	"context"
	"time"

	"spccvault/internal/config"
	"spccvault/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// Sync pulls the full directory into the local cache. The import pipeline
// only ever reads the cache, so a batch sees one consistent candidate set.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	facilities, err := s.client.ListFacilities(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertFacilities(facilities); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("directory.last_sync", time.Now().UTC().Format(time.RFC3339))
	return len(facilities), nil
}
