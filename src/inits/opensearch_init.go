package inits

import (
	"context"
	"fmt"

	"github.com/opensearch-project/opensearch-go"
	"go.uber.org/zap"

	m "linked_friend_services/src/models"
	"linked_friend_services/src/search"
)

const reindexPage = 500

type UserPager interface {
	ListPage(ctx context.Context, offset, limit int) ([]m.User, error)
}

func CreateOpenSearchClient(addresses []string) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return client, nil
}

// InitOpenSearch makes sure the user index exists and loads every user into
// it, so search works for accounts created before the index did.
func InitOpenSearch(ctx context.Context, index *search.OpenSearchIndex, users UserPager, logger *zap.Logger) error {
	if err := index.EnsureIndex(ctx); err != nil {
		return err
	}

	indexed := 0
	for offset := 0; ; offset += reindexPage {
		page, err := users.ListPage(ctx, offset, reindexPage)
		if err != nil {
			return fmt.Errorf("list users for indexing: %w", err)
		}
		for _, user := range page {
			if err := index.IndexUser(ctx, user.Profile()); err != nil {
				return err
			}
			indexed++
		}
		if len(page) < reindexPage {
			break
		}
	}

	logger.Info("Search index ready", zap.Int("documents", indexed))
	return nil
}
