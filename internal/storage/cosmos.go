package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// cosmosRetryAfterHeader carries the server's back-off hint on 429 replies.
const cosmosRetryAfterHeader = "x-ms-retry-after-ms"

// CosmosConfig holds Azure Cosmos DB configuration
type CosmosConfig struct {
	Name             string // Storage name
	Endpoint         string // Account endpoint, e.g. https://acct.documents.azure.com:443/
	Key              string // Account key; empty uses DefaultAzureCredential
	ConnectionString string // Takes precedence over Endpoint/Key
	Database         string
	PartitionKeyPath string // e.g. "/id" or "/tenant/code"
}

type cosmosStore struct {
	name     string
	client   *azcosmos.Client
	database string
	pkPath   string
}

// NewCosmosStore creates a store on a Cosmos DB database. The SDK's own
// retries are disabled; throttling surfaces as *RateLimitedError.
func NewCosmosStore(cfg CosmosConfig) (Store, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("cosmos store requires a database name")
	}
	opts := &azcosmos.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}

	var (
		client *azcosmos.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azcosmos.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Cosmos client from connection string: %w", err)
		}
	case cfg.Key != "":
		cred, err := azcosmos.NewKeyCredential(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to create key credential: %w", err)
		}
		client, err = azcosmos.NewClientWithKey(cfg.Endpoint, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Cosmos client with key: %w", err)
		}
	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default Azure credential: %w", err)
		}
		client, err = azcosmos.NewClient(cfg.Endpoint, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Cosmos client: %w", err)
		}
	}

	return &cosmosStore{
		name:     cfg.Name,
		client:   client,
		database: cfg.Database,
		pkPath:   normalizePartitionKeyPath(cfg.PartitionKeyPath),
	}, nil
}

func (s *cosmosStore) Name() string {
	return s.name
}

func (s *cosmosStore) Collection(name string) (Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	container, err := s.client.NewContainer(s.database, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s/%s: %w", s.database, name, err)
	}
	return &cosmosCollection{container: container, pkPath: s.pkPath}, nil
}

type cosmosCollection struct {
	container *azcosmos.ContainerClient
	pkPath    string
}

func (c *cosmosCollection) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	resp, err := c.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		return nil, translateCosmosError("read item", err)
	}
	return resp.Value, nil
}

func (c *cosmosCollection) Create(ctx context.Context, doc []byte) ([]byte, error) {
	pk, _, err := documentKey(doc, c.pkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	resp, err := c.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(pk), doc, writeOptions())
	if err != nil {
		return nil, translateCosmosError("create item", err)
	}
	return resp.Value, nil
}

func (c *cosmosCollection) Upsert(ctx context.Context, doc []byte) ([]byte, error) {
	pk, _, err := documentKey(doc, c.pkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}
	resp, err := c.container.UpsertItem(ctx, azcosmos.NewPartitionKeyString(pk), doc, writeOptions())
	if err != nil {
		return nil, translateCosmosError("upsert item", err)
	}
	return resp.Value, nil
}

func (c *cosmosCollection) Key(doc []byte) (string, string, error) {
	return documentKey(doc, c.pkPath)
}

func (c *cosmosCollection) Delete(ctx context.Context, partitionKey, id string) error {
	_, err := c.container.DeleteItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		return translateCosmosError("delete item", err)
	}
	return nil
}

// Query runs native Cosmos DB SQL across partitions.
func (c *cosmosCollection) Query(ctx context.Context, query string) ([][]byte, error) {
	pager := c.container.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), nil)
	var out [][]byte
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translateCosmosError("query items", err)
		}
		out = append(out, page.Items...)
	}
	return out, nil
}

func writeOptions() *azcosmos.ItemOptions {
	return &azcosmos.ItemOptions{EnableContentResponseOnWrite: true}
}

// translateCosmosError maps Cosmos DB status codes onto the storage
// sentinels.
func translateCosmosError(op string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return ErrConflict
		case http.StatusTooManyRequests:
			return &RateLimitedError{RetryAfter: cosmosRetryAfter(respErr), Err: err}
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func cosmosRetryAfter(respErr *azcore.ResponseError) time.Duration {
	if respErr.RawResponse == nil {
		return 0
	}
	ms, err := strconv.ParseFloat(respErr.RawResponse.Header.Get(cosmosRetryAfterHeader), 64)
	if err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
