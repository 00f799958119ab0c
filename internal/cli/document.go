package cli

import (
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newGetCmd(g *globals) *cobra.Command {
	var (
		collection   string
		id           string
		partitionKey string
		query        string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a document, or every document a query matches",
		Long: `Print a stored document.

Examples:
  docpatch get -c people --id 123
  docpatch get -c people --query 'employer == "Some Company"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags("collection", collection); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			client, _, err := g.client(ctx, cmd, -1)
			if err != nil {
				return err
			}

			if query != "" {
				docs, err := client.Query(ctx, collection, query)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					if err := printJSON(cmd.OutOrStdout(), doc); err != nil {
						return err
					}
				}
				return nil
			}

			if err := requireFlags("id", id); err != nil {
				return err
			}
			if partitionKey == "" {
				partitionKey = id
			}
			doc, err := client.Read(ctx, collection, partitionKey, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection name (required)")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.Flags().StringVar(&partitionKey, "partition-key", "", "partition key (default is the id)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "print every document matching this query")

	return cmd
}

func newPutCmd(g *globals) *cobra.Command {
	var (
		collection string
		file       string
		create     bool
		generateID bool
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a whole document",
		Long: `Store a JSON or YAML document, replacing any document with the same id.

With --create an existing id is an error. With --generate-id a document
without an id gets a random one.

Examples:
  docpatch put -c people --file person.json
  cat person.yaml | docpatch put -c people --file - --create --generate-id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags("collection", collection, "file", file); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			client, _, err := g.client(ctx, cmd, -1)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, file)
			if err != nil {
				return err
			}

			var saved []byte
			if create {
				saved, err = client.Create(ctx, collection, doc, generateID)
			} else {
				saved, err = client.Upsert(ctx, collection, doc, generateID)
			}
			if err != nil {
				return err
			}
			status(cmd, okColor, "stored document %s", gjson.GetBytes(saved, "id").String())
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection name (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "document file, or - for stdin (required)")
	cmd.Flags().BoolVar(&create, "create", false, "fail if the id already exists")
	cmd.Flags().BoolVar(&generateID, "generate-id", false, "assign a random id when the document has none")

	return cmd
}

func newDeleteCmd(g *globals) *cobra.Command {
	var (
		collection   string
		id           string
		partitionKey string
	)

	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Delete a document",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags("collection", collection, "id", id); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			client, _, err := g.client(ctx, cmd, -1)
			if err != nil {
				return err
			}
			if partitionKey == "" {
				partitionKey = id
			}
			if err := client.Delete(ctx, collection, partitionKey, id); err != nil {
				return err
			}
			status(cmd, okColor, "deleted document %s", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection name (required)")
	cmd.Flags().StringVar(&id, "id", "", "document id (required)")
	cmd.Flags().StringVar(&partitionKey, "partition-key", "", "partition key (default is the id)")

	return cmd
}
