package connectors

import (
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
)

// FetchService pulls a batch from a mail connector and persists every
// message through the raw store. Teachers habitually resend the same
// protocol, so re-fetched messages are counted separately.
type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetReportByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return result, err
		}
		if _, err := s.store.Store(msg); err != nil {
			return result, err
		}
		if existing != nil {
			result.Known++
		} else {
			result.Stored++
		}
	}

	return result, nil
}
