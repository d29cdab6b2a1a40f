package serve

import (
	"fmt"

	"github.com/ValentinKolb/dSolr/api/common"
	"github.com/ValentinKolb/dSolr/api/server"
	cmdUtil "github.com/ValentinKolb/dSolr/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set by the root command and reported in the API header
var Version = "dev"

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dSolr API server",
		Long:    `Start the dSolr API server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DSOLR_<flag> (e.g. DSOLR_SOLR_LEADER_URL=http://solr:8983/solr)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add the solr transport flags
	cmdUtil.SetupSolrClientFlags(ServeCmd)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080)"))

	key = "api-keys"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of api keys accepted in the x-apikey header. If empty, authentication is disabled"))

	key = "shutdown-timeout"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Time in seconds in-flight requests get to finish on shutdown"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.APIKeys = cmdUtil.SplitList(viper.GetString("api-keys"))
	serveCmdConfig.ShutdownTimeoutSecond = viper.GetInt("shutdown-timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Version = Version

	if serveCmdConfig.ShutdownTimeoutSecond < 0 {
		return fmt.Errorf("shutdown timeout must not be negative (got %d)", serveCmdConfig.ShutdownTimeoutSecond)
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the API server and blocks until the command context is canceled (SIGINT or SIGTERM)
func run(cmd *cobra.Command, _ []string) error {
	clientConfig := cmdUtil.GetClientConfig()
	client, err := cmdUtil.NewSolrClient()
	if err != nil {
		return err
	}
	server.Logger.Infof("Solr client configuration:%s", clientConfig.String())

	return server.NewServer(*serveCmdConfig, client).Serve(cmd.Context())
}
