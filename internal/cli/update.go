package cli

import (
	"fmt"

	"github.com/hkloudou/docpatch"
	"github.com/hkloudou/docpatch/trace"
	"github.com/spf13/cobra"
)

func newUpdateCmd(g *globals) *cobra.Command {
	var (
		collection   string
		id           string
		partitionKey string
		query        string
		patchFile    string
		arrayPolicy  string
		objectPolicy string
		nullPolicy   string
		filterName   string
		filterValue  string
		dryRun       bool
		maxRetries   int
		showTrace    bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Merge a patch into one document or every document a query matches",
		Long: `Merge a JSON or YAML patch into a stored document.

The patch is applied to the document root, or to the first nested object whose
--filter-name property equals --filter-value. Array values follow --array,
nested objects follow --object; null patch fields are skipped.

Examples:
  docpatch update -c people --id 123 --patch patch.json
  docpatch update -c people --id 123 --filter-name id --filter-value 4 --object REPLACE --patch -
  docpatch update -c people --query "SELECT * FROM c WHERE c.employer = 'X'" --patch patch.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags("collection", collection, "patch", patchFile); err != nil {
				return err
			}
			if (id == "") == (query == "") {
				return fmt.Errorf("exactly one of --id or --query is required")
			}
			if dryRun && query != "" {
				return fmt.Errorf("--dry-run works with --id only")
			}

			ctx, cancel := g.context(cmd)
			defer cancel()
			if showTrace {
				ctx = trace.WithTrace(ctx, "update")
			}

			client, cfg, err := g.client(ctx, cmd, maxRetries)
			if err != nil {
				return err
			}
			opts, err := cfg.MergeOptions()
			if err != nil {
				return err
			}
			if err := overridePolicies(&opts, arrayPolicy, objectPolicy, nullPolicy); err != nil {
				return err
			}
			opts.FilterName = filterName
			opts.FilterValue = filterValue

			patch, err := readDocument(cmd, patchFile)
			if err != nil {
				return err
			}
			if partitionKey == "" {
				partitionKey = id
			}

			defer func() {
				if showTrace {
					fmt.Fprint(cmd.ErrOrStderr(), trace.FromContext(ctx).Dump())
				}
			}()

			switch {
			case dryRun:
				res, err := client.Preview(ctx, collection, partitionKey, id, patch, &opts)
				if err != nil {
					return err
				}
				status(cmd, warnColor, "dry run: document %s not written", id)
				return printValue(cmd.OutOrStdout(), res)

			case id != "":
				res, err := client.ExecuteUpdate(ctx, collection, partitionKey, id, patch, &opts)
				if err != nil {
					return err
				}
				status(cmd, okColor, "updated document %s at %s", res.ID, res.Path.Pointer())
				return printValue(cmd.OutOrStdout(), res)

			default:
				results, err := client.ExecuteQueryUpdate(ctx, collection, query, patch, &opts)
				if len(results) > 0 {
					if perr := printValue(cmd.OutOrStdout(), results); perr != nil && err == nil {
						err = perr
					}
				}
				if err != nil {
					status(cmd, warnColor, "updated %d document(s) before failing", len(results))
					return err
				}
				status(cmd, okColor, "updated %d document(s)", len(results))
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection name (required)")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.Flags().StringVar(&partitionKey, "partition-key", "", "partition key (default is the id)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "update every document matching this query")
	cmd.Flags().StringVarP(&patchFile, "patch", "p", "", "patch file, or - for stdin (required)")
	cmd.Flags().StringVar(&arrayPolicy, "array", "", "array policy: UNION, CONCAT, MERGE, REPLACE")
	cmd.Flags().StringVar(&objectPolicy, "object", "", "object policy: UPDATE, REPLACE")
	cmd.Flags().StringVar(&nullPolicy, "null", "", "null policy: IGNORE, MERGE")
	cmd.Flags().StringVar(&filterName, "filter-name", "", "property that selects the nested object to update")
	cmd.Flags().StringVar(&filterValue, "filter-value", "", "value of --filter-name, compared as a string")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the result without writing it")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "retries on rate limiting (default from config)")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print step timings on stderr")

	return cmd
}

// overridePolicies applies the policy flags that were given.
func overridePolicies(opts *docpatch.MergeOptions, array, object, null string) error {
	var err error
	if array != "" {
		if opts.ArrayPolicy, err = docpatch.ParseArrayPolicy(array); err != nil {
			return err
		}
	}
	if object != "" {
		if opts.ObjectPolicy, err = docpatch.ParseObjectPolicy(object); err != nil {
			return err
		}
	}
	if null != "" {
		if opts.NullPolicy, err = docpatch.ParseNullPolicy(null); err != nil {
			return err
		}
	}
	return nil
}
