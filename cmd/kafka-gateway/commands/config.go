package commands

import (
	"os"
	"strings"

	"github.com/DataDog/kafka-gateway/cluster"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultClusterName      = "default"
	defaultBootstrapServers = "localhost:9092"
)

// Flags that only configure the 'default' cluster.
var defaultClusterFlags = []string{
	"security-protocol",
	"sasl-mechanism",
	"sasl-username",
	"sasl-password",
	"ssl-ca-location",
	"ssl-cert-location",
	"ssl-key-location",
}

// loadEnvFile loads environment variables from path, or from .env in the
// working directory if path is empty. Variables already set are kept. A
// missing default .env is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load env file %s", path)
	}

	return nil
}

// loadProfiles returns the cluster profiles named by the flags: either those
// in --clusters-config or a single 'default' cluster.
func loadProfiles(cmd *cobra.Command) ([]cluster.Profile, error) {
	path, _ := cmd.Flags().GetString("clusters-config")
	servers, _ := cmd.Flags().GetString("bootstrap-servers")

	switch {
	case path != "" && servers != "":
		return nil, errors.New("--clusters-config and --bootstrap-servers are mutually exclusive")
	case path != "":
		for _, name := range defaultClusterFlags {
			if cmd.Flags().Changed(name) {
				return nil, errors.Errorf("--clusters-config and --%s are mutually exclusive; configure security per cluster in the file", name)
			}
		}
		return cluster.LoadConfigFile(path)
	case servers == "":
		servers = defaultBootstrapServers
	}

	p := cluster.Profile{
		Name:             defaultClusterName,
		BootstrapServers: splitList(servers),
	}

	p.SecurityProtocol, _ = cmd.Flags().GetString("security-protocol")
	p.SASLMechanism, _ = cmd.Flags().GetString("sasl-mechanism")
	p.SASLUsername, _ = cmd.Flags().GetString("sasl-username")
	p.SASLPassword, _ = cmd.Flags().GetString("sasl-password")
	p.SSLCALocation, _ = cmd.Flags().GetString("ssl-ca-location")
	p.SSLCertLocation, _ = cmd.Flags().GetString("ssl-cert-location")
	p.SSLKeyLocation, _ = cmd.Flags().GetString("ssl-key-location")

	p.SecurityProtocol = strings.ToUpper(p.SecurityProtocol)
	p.SASLMechanism = strings.ToUpper(p.SASLMechanism)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return []cluster.Profile{p}, nil
}

// newRegistry builds the cluster registry from the flags.
func newRegistry(cmd *cobra.Command) (*cluster.Registry, error) {
	profiles, err := loadProfiles(cmd)
	if err != nil {
		return nil, err
	}

	return cluster.NewRegistry(profiles...)
}

// newLogger builds a JSON logger writing to stderr; stdout carries the
// stdio transport.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	lvl, _ := cmd.Flags().GetString("log-level")

	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --log-level")
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
