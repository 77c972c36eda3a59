package cmd

import (
	"fmt"
	"log"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/netspec"
	"github.com/sarchlab/nsim/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run <network.yaml>",
	Short: "Run a network described in a YAML file.",
	Long: "`run` builds the network, advances time by each of its run " +
		"blocks and prints how many records every recording device holds. " +
		"NSIM_* variables from the environment or the env file override " +
		"the settings of the file.",
	Args: cobra.ExactArgs(1),
	RunE: runNetwork,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("env", ".env", "Env file with NSIM_* overrides")
	runCmd.Flags().Bool("export", false,
		"Export the recordings into an SQLite file")
	runCmd.Flags().String("output", "",
		"Name of the export file, without the .sqlite3 extension")
	runCmd.Flags().String("clickhouse", "",
		"Export to ClickHouse, e.g. clickhouse://localhost:9000/nsim")
	runCmd.Flags().Bool("monitor", false, "Serve the monitor while running")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitor, 0 picks a free port")
	runCmd.Flags().Bool("open-monitor", false,
		"Open the monitor in a browser")
}

func runNetwork(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env")

	n, err := netspec.Load(args[0], envFile)
	if err != nil {
		return err
	}

	fallback, err := n.Level()
	if err != nil {
		return err
	}

	level, err := logLevel(cmd, fallback)
	if err != nil {
		return err
	}

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	builder := simulation.MakeBuilder().WithKernelOptions(
		append(n.Options(), kernel.WithLogger(logger))...)

	export, _ := cmd.Flags().GetBool("export")
	output, _ := cmd.Flags().GetString("output")
	dsn, _ := cmd.Flags().GetString("clickhouse")
	switch {
	case dsn != "" && output != "":
		return fmt.Errorf("--output and --clickhouse cannot be combined")
	case dsn != "":
		builder = builder.WithClickHouse(dsn)
	case output != "":
		builder = builder.WithOutputFileName(output)
	case export:
		builder = builder.WithExport()
	}

	monitor, _ := cmd.Flags().GetBool("monitor")
	port, _ := cmd.Flags().GetInt("monitor-port")
	open, _ := cmd.Flags().GetBool("open-monitor")
	if monitor || port != 0 || open {
		builder = builder.WithMonitoring().WithMonitorPort(port)
	}

	sim, err := builder.Build()
	if err != nil {
		return err
	}
	defer sim.Terminate()

	if open {
		if err := browser.OpenURL(sim.MonitorAddress()); err != nil {
			log.Printf("Failed to open the monitor: %v", err)
		}
	}

	inst, err := n.Build(sim.GetKernel())
	if err != nil {
		return err
	}

	for _, d := range n.Run {
		if err := sim.Advance(d); err != nil {
			return err
		}
	}

	return report(cmd, sim, inst)
}

func report(
	cmd *cobra.Command,
	sim *simulation.Simulation,
	inst *netspec.Instance,
) error {
	out := cmd.OutOrStdout()

	status, err := sim.GetKernel().Status()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "simulated %g ms in %d steps\n", status.TimeMs, status.Step)

	devices, err := inst.Devices()
	if err != nil {
		return err
	}

	for _, d := range devices {
		total := 0
		for _, r := range d.Records {
			total += r
		}

		fmt.Fprintf(out, "%s (%s, %d nodes): %d records\n",
			d.Name, d.Model, len(d.IDs), total)
	}

	if sim.GetDataRecorder() != nil {
		target := sim.OutputPath()
		if target == "" {
			target = "ClickHouse"
		}

		fmt.Fprintf(out, "exported %d rows to %s\n", sim.Exported(), target)
	}

	if err := inst.Verify(); err != nil {
		return err
	}

	if checks := len(inst.Network.Checks); checks > 0 {
		fmt.Fprintf(out, "%d checks passed\n", checks)
	}

	return nil
}
