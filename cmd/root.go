package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endowment-sim/endowment-sim/api"
	sim "github.com/endowment-sim/endowment-sim/sim"
	"github.com/endowment-sim/endowment-sim/sim/recorder"
)

var (
	// CLI flags for the model configuration
	seed               int64   // Seed for all random draws
	numHolders         int     // Initial holder population
	numProposals       int     // Initial open proposals
	steps              int     // Simulation horizon (weeks)
	burnRate           float64 // Fraction of RSC burned per deployment
	successRate        float64 // Probability a funded proposal completes
	deployProbability  float64 // Scale on holder deployment probability
	yieldThresholdMean float64 // Mean APY demanded before exit
	configPath         string  // Optional YAML scenario file
	dbPath             string  // Optional SQLite metrics output
	logLevel           string  // Log verbosity level

	// CLI flags for the API server
	port int // HTTP listen port
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "endowment-sim",
	Short: "Agent-based simulator for a decentralized token endowment",
}

// buildConfig assembles the model Config from the scenario file (if any)
// with explicitly set flags layered on top.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("holders") {
		cfg.NumHolders = numHolders
	}
	if cmd.Flags().Changed("proposals") {
		cfg.NumProposals = numProposals
	}
	if cmd.Flags().Changed("burn-rate") {
		cfg.BurnRate = burnRate
	}
	if cmd.Flags().Changed("success-rate") {
		cfg.SuccessRate = successRate
	}
	if cmd.Flags().Changed("deploy-probability") {
		cfg.DeployProbability = deployProbability
	}
	if cmd.Flags().Changed("yield-threshold-mean") {
		cfg.YieldThresholdMean = yieldThresholdMean
	}
	return cfg, nil
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the endowment simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Loading configuration: %v", err)
		}

		var rec recorder.Recorder = recorder.NewNoop()
		if dbPath != "" {
			sqlRec, err := recorder.NewSQLite(dbPath)
			if err != nil {
				logrus.Fatalf("Opening metrics database %s: %v", dbPath, err)
			}
			defer sqlRec.Close()
			rec = sqlRec
		}

		model, err := sim.NewModel(cfg)
		if err != nil {
			logrus.Fatalf("Initializing model: %v", err)
		}

		logrus.Infof("Starting simulation: %d holders, %d proposals, %d steps, seed=%d",
			cfg.NumHolders, cfg.NumProposals, steps, cfg.Seed)

		history := model.History()
		if err := rec.RecordStep(history[len(history)-1]); err != nil {
			logrus.Fatalf("Recording step 0: %v", err)
		}
		for i := 0; i < steps; i++ {
			model.Step()
			history = model.History()
			row := history[len(history)-1]
			if err := rec.RecordStep(row); err != nil {
				logrus.Fatalf("Recording step %d: %v", row.Step, err)
			}
			if row.Step%52 == 0 {
				logrus.Infof("Year %.0f: participation=%.1f%% apy=%.2f%% holders=%d active, %d exited",
					row.Year, row.ParticipationRate*100, row.CurrentAPY*100,
					row.ActiveHolders, row.ExitedHolders)
			}
		}

		metrics := model.Metrics()
		logrus.Infof("Simulation complete at step %d (year %.1f)", metrics.Step, metrics.Year)
		logrus.Infof("Equilibrium participation rate: %.2f%%", metrics.ParticipationRate*100)
		logrus.Infof("Current APY: %.2f%%", metrics.CurrentAPY*100)
		logrus.Infof("Total RSC held: %.0f of %.0f circulating", metrics.TotalRSCHeld, metrics.CirculatingSupply)
		logrus.Infof("Credits generated=%.0f deployed=%.0f burned=%.0f RSC",
			metrics.TotalCreditsGenerated, metrics.TotalCreditsDeployed, metrics.TotalBurned)
		logrus.Infof("Proposals: %d open, %d funded, %d completed, %d failed",
			metrics.OpenProposals, metrics.FundedProposals, metrics.CompletedProposals, metrics.FailedProposals)
	},
}

// serveCmd starts the HTTP API for interactive exploration
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation over an HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		server, err := api.NewServer()
		if err != nil {
			logrus.Fatalf("Initializing server: %v", err)
		}
		if err := server.ListenAndServe(port); err != nil {
			logrus.Fatalf("HTTP server: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for all random draws")
	runCmd.Flags().IntVar(&numHolders, "holders", sim.DefaultNumHolders, "Initial holder population")
	runCmd.Flags().IntVar(&numProposals, "proposals", sim.DefaultNumProposals, "Initial open proposals")
	runCmd.Flags().IntVar(&steps, "steps", 260, "Number of weekly steps to run")
	runCmd.Flags().Float64Var(&burnRate, "burn-rate", sim.DefaultBurnRate, "Fraction of RSC burned per deployment")
	runCmd.Flags().Float64Var(&successRate, "success-rate", sim.DefaultSuccessRate, "Probability a funded proposal completes")
	runCmd.Flags().Float64Var(&deployProbability, "deploy-probability", sim.DefaultDeployProbability, "Scale on holder deployment probability")
	runCmd.Flags().Float64Var(&yieldThresholdMean, "yield-threshold-mean", sim.DefaultYieldThresholdMean, "Mean APY demanded before exit")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file (flags override it)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file for per-step metrics (omit to skip recording)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	serveCmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port")
	serveCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
