package solr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dSolr/api/common"
	"github.com/ValentinKolb/dSolr/cmd/util"
	"github.com/ValentinKolb/dSolr/lib/solr"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

var (
	solrClient *solr.Client

	// SolrCommands represents the solr command group
	SolrCommands = &cobra.Command{
		Use:               "solr",
		Short:             "Perform solr operations directly, without the API server",
		PersistentPreRunE: setupSolrClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add the solr transport flags to the solr command
	util.SetupSolrClientFlags(SolrCommands)

	// Add subcommands
	SolrCommands.AddCommand(queryCmd)
	SolrCommands.AddCommand(updateCmd)
	SolrCommands.AddCommand(deleteCmd)
	SolrCommands.AddCommand(deleteAllCmd)
	SolrCommands.AddCommand(synonymsCmd)
	SolrCommands.AddCommand(reloadCmd)
	SolrCommands.AddCommand(replicationCmd)
	SolrCommands.AddCommand(pingCmd)
	SolrCommands.AddCommand(perfTestCmd)
}

// setupSolrClient initializes the loggers and the solr client
func setupSolrClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	var err error
	solrClient, err = util.NewSolrClient()
	return err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// printJSON prints v as indented json
func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// printResponse prints the body of a solr response
func printResponse(out io.Writer, resp *solr.Response) error {
	var body any
	if err := resp.Decode(&body); err != nil {
		_, err = fmt.Fprintln(out, string(resp.Body))
		return err
	}
	return printJSON(out, body)
}

// readJSONInput decodes the json file at path into v, "-" reads from stdin
func readJSONInput(path string, in io.Reader, v any) error {
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()
		in = file
	}
	if err := json.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("failed to decode json from %s: %w", path, err)
	}
	return nil
}
