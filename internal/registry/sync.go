package registry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
)

// lastFullSyncKey is the metadata row updated after every completed sync.
const lastFullSyncKey = "registry.last_full_sync"

// SyncService owns write access to the teacher registry. Matching never
// mutates registry state; it only reads snapshots from storage.
type SyncService struct {
	db     *storage.DB
	client *Client
	log    *zap.SugaredLogger
}

func NewSyncService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), log: log}
}

// FullSync pulls the whole staff list and upserts it, returning the number
// of records seen.
func (s *SyncService) FullSync(ctx context.Context) (int, error) {
	teachers, err := s.client.ListStaff(ctx)
	if err != nil {
		return 0, err
	}

	for i := range teachers {
		storage.NormalizeForStorage(&teachers[i])
	}

	if err := s.db.UpsertTeachers(teachers); err != nil {
		return 0, err
	}
	previous := "never"
	if v, err := s.db.GetMetadata(lastFullSyncKey); err == nil && v != nil {
		previous = *v
	}
	_ = s.db.SetMetadata(lastFullSyncKey, time.Now().UTC().Format(time.RFC3339))
	s.log.Infow("registry synced", "teachers", len(teachers), "previousSync", previous)
	return len(teachers), nil
}
