package solr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dSolr/cmd/util"
	"github.com/ValentinKolb/dSolr/lib/solr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	queryCmd = &cobra.Command{
		Use:   "query [json]",
		Short: "Sends a json query to the follower",
		Long:  `Sends a json query (e.g. '{"query":"name:acme"}') to the follower and prints the response. Without an argument all documents are matched.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"query": "*:*"}
			if len(args) == 1 {
				payload = nil
				if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
					return fmt.Errorf("query must be a json object: %w", err)
				}
			}

			var opts []solr.QueryOption
			if cmd.Flags().Changed("start") {
				start, _ := cmd.Flags().GetInt("start")
				opts = append(opts, solr.WithOffset(start))
			}
			if cmd.Flags().Changed("rows") {
				rows, _ := cmd.Flags().GetInt("rows")
				opts = append(opts, solr.WithLimit(rows))
			}

			result, err := solrClient.Query(cmd.Context(), payload, opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [file]",
		Short: "Adds or replaces the documents of a json file (- for stdin) on the leader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []any
			if err := readJSONInput(args[0], cmd.InOrStdin(), &docs); err != nil {
				return err
			}
			commit, _ := cmd.Flags().GetBool("commit")

			resp, err := solrClient.CreateOrReplaceDocs(cmd.Context(), docs, commit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents sent (commit=%t)\n", len(docs), commit)
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [key...]",
		Short: "Deletes the documents with the given ids from the leader",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := solrClient.DeleteDocs(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	deleteAllCmd = &cobra.Command{
		Use:   "delete-all",
		Short: "Deletes every document of the leader core",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to delete all documents without --yes")
			}
			resp, err := solrClient.DeleteAllDocs(cmd.Context())
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	synonymsCmd = &cobra.Command{
		Use:   "synonyms [type] [file]",
		Short: "Stores the synonyms of a json file (- for stdin) in a managed dictionary (all, exact, stem)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			synonymType, err := solr.ParseSynonymType(args[0])
			if err != nil {
				return err
			}
			var synonyms map[string][]string
			if err := readJSONInput(args[1], cmd.InOrStdin(), &synonyms); err != nil {
				return err
			}

			resp, err := solrClient.CreateOrUpdateSynonyms(cmd.Context(), synonymType, synonyms)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	reloadCmd = &cobra.Command{
		Use:   "reload",
		Short: "Reloads the core of the leader or the follower",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := roleFlag(cmd)
			if err != nil {
				return err
			}
			resp, err := solrClient.ReloadCore(cmd.Context(), role)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	replicationCmd = &cobra.Command{
		Use:   "replication [command]",
		Short: "Sends a replication command (e.g. fetchindex, details) to the leader or the follower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := solr.ParseReplicationCommand(args[0])
			if err != nil {
				return err
			}
			role, err := roleFlag(cmd)
			if err != nil {
				return err
			}
			resp, err := solrClient.Replication(cmd.Context(), command, role)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks that leader and follower answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roles := []solr.Role{solr.Leader, solr.Follower}
			results := make([]error, len(roles))

			var g errgroup.Group
			for i, role := range roles {
				g.Go(func() error {
					results[i] = solrClient.Ping(cmd.Context(), role)
					return results[i]
				})
			}
			err := g.Wait()

			for i, role := range roles {
				if results[i] != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s down (%s)\n", role, solr.AsSolrError(results[i]).Message)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s ok\n", role)
				}
			}
			return err
		},
	}
)

func init() {
	queryCmd.Flags().Int("start", 0, util.WrapString("Offset of the first returned document (default: configured offset)"))
	queryCmd.Flags().Int("rows", 0, util.WrapString("Number of returned documents (default: configured limit)"))
	updateCmd.Flags().Bool("commit", true, util.WrapString("Commit after the update. Without commit the bulk endpoint is used"))
	deleteAllCmd.Flags().Bool("yes", false, util.WrapString("Confirm the deletion of all documents"))
	reloadCmd.Flags().String("role", "leader", util.WrapString("Node to send the command to (leader, follower)"))
	replicationCmd.Flags().String("role", "leader", util.WrapString("Node to send the command to (leader, follower)"))
}

// roleFlag parses the role flag of cmd
func roleFlag(cmd *cobra.Command) (solr.Role, error) {
	value, err := cmd.Flags().GetString("role")
	if err != nil {
		return solr.Leader, err
	}
	return solr.ParseRole(value)
}
