package docpatch

import (
	"context"
	"strings"

	"github.com/hkloudou/docpatch/internal/document"
	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/storage"
)

// Read returns the stored document. A missing document is a NOT_FOUND
// error.
func (c *Client) Read(ctx context.Context, collection, partitionKey, id string) ([]byte, error) {
	if strings.TrimSpace(partitionKey) == "" || strings.TrimSpace(id) == "" {
		return nil, validationf("partition key and document id cannot be empty")
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}
	return c.read(ctx, gw, partitionKey, id)
}

// Create stores a new document. A document without an id gets a random
// one when generateID is set; an id already in use is a CONFLICT error.
func (c *Client) Create(ctx context.Context, collection string, doc []byte, generateID bool) ([]byte, error) {
	doc, err := prepareDocument(doc, generateID)
	if err != nil {
		return nil, err
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}
	saved, err := gw.Create(ctx, doc)
	if err != nil {
		return nil, storeError("create document", err)
	}
	return saved, nil
}

// Upsert creates or replaces a whole document.
func (c *Client) Upsert(ctx context.Context, collection string, doc []byte, generateID bool) ([]byte, error) {
	doc, err := prepareDocument(doc, generateID)
	if err != nil {
		return nil, err
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}
	saved, err := gw.Upsert(ctx, doc)
	if err != nil {
		return nil, storeError("upsert document", err)
	}
	return saved, nil
}

// Delete removes a document. Deleting a missing document succeeds.
func (c *Client) Delete(ctx context.Context, collection, partitionKey, id string) error {
	if strings.TrimSpace(partitionKey) == "" || strings.TrimSpace(id) == "" {
		return validationf("partition key and document id cannot be empty")
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return err
	}
	if err := gw.Delete(ctx, partitionKey, id); err != nil {
		return storeError("delete document", err)
	}
	return nil
}

// Query returns the documents matching query.
func (c *Client) Query(ctx context.Context, collection, query string) ([][]byte, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationf("query cannot be empty")
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}
	docs, err := gw.Query(ctx, query)
	if err != nil {
		return nil, storeError("query documents", err)
	}
	return docs, nil
}

func prepareDocument(doc []byte, generateID bool) ([]byte, error) {
	if err := document.ValidateObject(doc); err != nil {
		return nil, validationf("invalid document: %v", err)
	}
	if generateID {
		out, _, err := storage.EnsureID(doc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, "failed to assign document id", err)
		}
		return out, nil
	}
	if _, err := document.ID(doc); err != nil {
		return nil, validationf("invalid document: %v", err)
	}
	return doc, nil
}
