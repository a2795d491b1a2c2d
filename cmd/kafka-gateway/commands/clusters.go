package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/gateway"
	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clustersCmd)
	clustersCmd.Flags().Bool("check", false, "Connect to each cluster and report its controller and broker count")
	clustersCmd.Flags().Duration("check-timeout", 10*time.Second, "Per-cluster timeout for --check")
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List the configured clusters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := newRegistry(cmd)
		if err != nil {
			return err
		}

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return printClusters(cmd.OutOrStdout(), registry, nil)
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}

		clientID, _ := cmd.Flags().GetString("client-id")
		pool := cluster.NewPool(cluster.DefaultFactory, cluster.PoolConfig{ClientID: clientID}, log)
		defer pool.Close()

		timeout, _ := cmd.Flags().GetDuration("check-timeout")
		d := gateway.NewDispatcher(registry, pool, gateway.DispatcherConfig{}, log)

		results := checkClusters(cmd.Context(), d, registry.Names(), timeout)

		return printClusters(cmd.OutOrStdout(), registry, results)
	},
}

// checkClusters runs DescribeCluster against each cluster.
func checkClusters(ctx context.Context, exec executor, names []string, timeout time.Duration) map[string]gateway.Result {
	if ctx == nil {
		ctx = context.Background()
	}

	var results = make(map[string]gateway.Result, len(names))
	for _, name := range names {
		results[name] = exec.Execute(ctx, name, gateway.DescribeCluster{}, timeout)
	}

	return results
}

// executor is the subset of *gateway.Dispatcher used by checkClusters.
type executor interface {
	Execute(ctx context.Context, clusterName string, req gateway.Request, timeout time.Duration) gateway.Result
}

// printClusters writes a table of clusters. Check results are included if
// results is non-nil.
func printClusters(w io.Writer, registry *cluster.Registry, results map[string]gateway.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := "NAME\tBOOTSTRAP SERVERS\tPROTOCOL"
	if results != nil {
		header += "\tSTATUS"
	}
	fmt.Fprintln(tw, header)

	names := registry.Names()
	sort.Strings(names)

	for _, name := range names {
		p, err := registry.Resolve(name)
		if err != nil {
			return err
		}

		protocol := p.SecurityProtocol
		if protocol == "" {
			protocol = "PLAINTEXT"
		}

		line := fmt.Sprintf("%s\t%s\t%s", p.Name, strings.Join(p.BootstrapServers, ","), protocol)
		if results != nil {
			line += "\t" + checkStatus(results[name])
		}

		fmt.Fprintln(tw, line)
	}

	return tw.Flush()
}

func checkStatus(res gateway.Result) string {
	if !res.OK() {
		return fmt.Sprintf("error: %s (%s)", res.Err.Code, res.Err.Message)
	}

	cd, ok := res.Payload.(gateway.ClusterDescription)
	if !ok {
		return "ok"
	}

	controller := "none"
	if cd.ControllerID != kafkaadmin.NoLeader {
		controller = fmt.Sprint(cd.ControllerID)
	}

	return fmt.Sprintf("ok: %d brokers, controller %s", len(cd.Brokers), controller)
}
