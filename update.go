package docpatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hkloudou/docpatch/internal/document"
	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/gateway"
	"github.com/hkloudou/docpatch/internal/merge"
	"github.com/hkloudou/docpatch/trace"
)

// Path addresses the object a patch was applied to.
type Path = document.Path

// UpdateResult is the outcome of one document update.
type UpdateResult struct {
	ID           string          `json:"id"`
	PartitionKey string          `json:"partitionKey"`
	Path         Path            `json:"path"`     // located target, "/" for the root
	Document     json.RawMessage `json:"document"` // as persisted
	Changes      json.RawMessage `json:"changes"`  // RFC 7396 diff from the pre-image
}

// ExecuteUpdate merges patch into the document (partitionKey, id) of
// collection and persists the whole document.
//
// The target is the document root, or the first nested object whose
// opts.FilterName property equals opts.FilterValue. A nil opts means
// DefaultMergeOptions(). Invalid input fails before any store call.
func (c *Client) ExecuteUpdate(ctx context.Context, collection, partitionKey, id string, patch []byte, opts *MergeOptions) (*UpdateResult, error) {
	o, err := c.validateUpdate(patch, opts)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(partitionKey) == "" {
		return nil, validationf("partition key cannot be empty")
	}
	if strings.TrimSpace(id) == "" {
		return nil, validationf("document id cannot be empty")
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}

	doc, err := c.read(ctx, gw, partitionKey, id)
	if err != nil {
		return nil, err
	}
	res, err := c.apply(ctx, doc, patch, o)
	if err != nil {
		return nil, err
	}
	res.ID, res.PartitionKey = id, partitionKey
	if err := c.persist(ctx, gw, collection, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ExecuteQueryUpdate applies patch to every document matched by query,
// one at a time. The first failure stops the batch; the results of the
// documents already updated are returned with the error.
func (c *Client) ExecuteQueryUpdate(ctx context.Context, collection, query string, patch []byte, opts *MergeOptions) ([]*UpdateResult, error) {
	o, err := c.validateUpdate(patch, opts)
	if err != nil {
		return nil, err
	}
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
	trace.FromContext(ctx).RecordSpan("Update.Query", map[string]interface{}{
		"matched": len(docs),
	})

	results := make([]*UpdateResult, 0, len(docs))
	for _, doc := range docs {
		pk, id, err := gw.Key(doc)
		if err != nil {
			return results, errors.Wrap(errors.ErrCodeParse, "query returned a document without a key", err)
		}
		res, err := c.apply(ctx, doc, patch, o)
		if err == nil {
			res.ID, res.PartitionKey = id, pk
			err = c.persist(ctx, gw, collection, res)
		}
		if err != nil {
			return results, fmt.Errorf("failed to update document %s: %w", id, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Preview runs ExecuteUpdate without persisting the result.
func (c *Client) Preview(ctx context.Context, collection, partitionKey, id string, patch []byte, opts *MergeOptions) (*UpdateResult, error) {
	o, err := c.validateUpdate(patch, opts)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(partitionKey) == "" || strings.TrimSpace(id) == "" {
		return nil, validationf("partition key and document id cannot be empty")
	}
	gw, err := c.gateway(collection)
	if err != nil {
		return nil, err
	}
	doc, err := c.read(ctx, gw, partitionKey, id)
	if err != nil {
		return nil, err
	}
	res, err := c.apply(ctx, doc, patch, o)
	if err != nil {
		return nil, err
	}
	res.ID, res.PartitionKey = id, partitionKey
	return res, nil
}

func (c *Client) validateUpdate(patch []byte, opts *MergeOptions) (MergeOptions, error) {
	o := merge.DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if err := o.Validate(); err != nil {
		return o, err
	}
	if len(patch) == 0 || strings.TrimSpace(string(patch)) == "null" {
		return o, validationf("patch cannot be null")
	}
	if err := document.ValidateObject(patch); err != nil {
		return o, validationf("invalid patch: %v", err)
	}
	if o.NullPolicy == merge.NullMerge {
		c.logger.Debug("null policy MERGE requested, null patch fields are still skipped")
	}
	return o, nil
}

func (c *Client) read(ctx context.Context, gw *gateway.Gateway, partitionKey, id string) ([]byte, error) {
	doc, err := gw.Read(ctx, partitionKey, id)
	trace.FromContext(ctx).RecordSpan("Update.Read", map[string]interface{}{
		"id": id,
	})
	if IsNotFound(err) || (err == nil && len(doc) == 0) {
		return nil, errors.DocumentNotFound(partitionKey, id)
	}
	if err != nil {
		return nil, storeError("read document", err)
	}
	return doc, nil
}

// apply locates the target object in doc and merges patch into it.
func (c *Client) apply(ctx context.Context, doc, patch []byte, o MergeOptions) (*UpdateResult, error) {
	tr := trace.FromContext(ctx)

	path, ok := merge.Locate(doc, o.FilterName, o.FilterValue)
	tr.RecordSpan("Update.Locate", map[string]interface{}{
		"filter": o.FilterName,
		"found":  ok,
	})
	if !ok {
		return nil, errors.FilterNotFound(o.FilterName, o.FilterValue)
	}

	merged, err := merge.ApplyAt(doc, path, patch, o)
	if err != nil {
		return nil, err
	}
	changes, err := merge.Diff(doc, merged)
	if err != nil {
		return nil, err
	}
	tr.RecordSpan("Update.Merge", map[string]interface{}{
		"path": path.Pointer(),
	})

	return &UpdateResult{
		Path:     path,
		Document: merged,
		Changes:  changes,
	}, nil
}

func (c *Client) persist(ctx context.Context, gw *gateway.Gateway, collection string, res *UpdateResult) error {
	saved, err := gw.Upsert(ctx, res.Document)
	trace.FromContext(ctx).RecordSpan("Update.Upsert")
	if err != nil {
		return storeError("upsert document", err)
	}
	if len(saved) > 0 {
		res.Document = saved
	}
	c.logger.DebugContext(ctx, "document updated",
		slog.String("collection", collection),
		slog.String("id", res.ID),
		slog.String("path", res.Path.Pointer()),
	)
	return nil
}
