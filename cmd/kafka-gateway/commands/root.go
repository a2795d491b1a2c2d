package commands

import (
	"fmt"
	"os"

	"github.com/jamiealquiza/envy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix prefixes the environment variable overrides of every flag,
// e.g. KAFKA_GATEWAY_CLUSTERS_CONFIG.
const envPrefix = "KAFKA_GATEWAY"

var rootCmd = &cobra.Command{
	Use:   "kafka-gateway",
	Short: "Kafka cluster administration for MCP hosts",
	Long: `kafka-gateway exposes Kafka cluster administration (topics, consumer groups,
brokers) as MCP tools. It serves over stdio by default, or over SSE with --sse.

Clusters are read from a YAML file (--clusters-config) or, for a single
cluster, from the --bootstrap-servers family of flags. Every flag can be set
from the environment as ` + envPrefix + `_<FLAG_NAME>; a .env file in the working
directory (or at ` + envPrefix + `_ENV_FILE) is loaded first.`,
	SilenceUsage: true,
	RunE:         serve,
}

// Execute runs the root command.
func Execute() {
	if err := loadEnvFile(os.Getenv(envPrefix + "_ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	envy.ParseCobra(rootCmd, envy.CobraConfig{Prefix: envPrefix, Persistent: true, Recursive: true})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	addClusterFlags(rootCmd.PersistentFlags())

	// Server.
	rootCmd.Flags().Bool("sse", false, "Serve MCP over SSE instead of stdio")
	rootCmd.Flags().String("host", "localhost", "SSE listen host")
	rootCmd.Flags().Int("port", 8888, "SSE listen port")
	rootCmd.Flags().String("base-url", "", "SSE base URL advertised to clients [default http://<host>:<port>]")
	rootCmd.Flags().String("metrics-listen", "", "Serve Prometheus metrics on this address if set, e.g. localhost:9090")
	rootCmd.Flags().Int("read-rate-limit", 5, "Read request rate limit (reqs/s)")
	rootCmd.Flags().Int("write-rate-limit", 1, "Write request rate limit (reqs/s)")
	rootCmd.Flags().Int64("max-in-flight", 8, "Maximum concurrent operations per cluster; 0 is unbounded")
	rootCmd.Flags().Bool("read-only", false, "Only expose tools that do not modify clusters")
}

// addClusterFlags adds the flags shared by every command.
func addClusterFlags(fs *pflag.FlagSet) {
	// Cluster selection.
	fs.String("clusters-config", "", "Path to a YAML file of named cluster configurations")
	fs.String("bootstrap-servers", "", "Bootstrap servers (comma delim. list) of a single cluster named 'default' [default localhost:9092]")
	fs.String("security-protocol", "PLAINTEXT", "Security protocol of the 'default' cluster: [PLAINTEXT, SSL, SASL_PLAINTEXT, SASL_SSL]")
	fs.String("sasl-mechanism", "", "SASL mechanism of the 'default' cluster: [PLAIN, SCRAM-SHA-256, SCRAM-SHA-512]")
	fs.String("sasl-username", "", "SASL username of the 'default' cluster")
	fs.String("sasl-password", "", "SASL password of the 'default' cluster")
	fs.String("ssl-ca-location", "", "CA certificate file of the 'default' cluster")
	fs.String("ssl-cert-location", "", "Client certificate file of the 'default' cluster")
	fs.String("ssl-key-location", "", "Client key file of the 'default' cluster")

	// Client behavior.
	fs.String("client-id", "kafka-gateway", "Kafka client ID")
	fs.Duration("request-timeout", 0, "Default per-operation timeout; clusters may override it [default 30s]")
	fs.String("log-level", "warn", "Log level: [debug, info, warn, error]")
}
