package main

import (
	"fmt"
	"os"

	"gouplift/adapters/excel"
	"gouplift/internal/config"
	"gouplift/internal/container"
	apperrors "gouplift/internal/errors"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command and override the loaded config
type globalFlags struct {
	configPath  string
	dataPath    string
	outcome     string
	seed        int64
	resamples   int
	ks          string
	margin      float64
	cost        float64
	calibration string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "uplift",
		Short: "A/B significance testing, uplift modelling and targeting ROI for e-mail campaigns",
		Long: `uplift evaluates a randomized e-mail experiment shaped like the Hillstrom
MineThatData data set: conversion and spend significance tests per arm pair,
a two-model uplift learner scored on a holdout split, Qini evaluation and
top-k targeting profit simulation.

Configuration is layered: defaults, then --config YAML, then .env and
UPLIFT_* environment variables, then command-line flags.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.dataPath, "data", "", "Hillstrom CSV or XLSX file")
	pf.StringVar(&flags.outcome, "outcome", "", "Modelled outcome: conversion or visit")
	pf.Int64Var(&flags.seed, "seed", 42, "Split and model seed")
	pf.IntVar(&flags.resamples, "resamples", 5000, "Bootstrap resamples for the spend interval")
	pf.StringVar(&flags.ks, "ks", "", "Comma-separated targeting fractions, e.g. 0.1,0.2,1")
	pf.Float64Var(&flags.margin, "margin", 15, "Margin per incremental conversion")
	pf.Float64Var(&flags.cost, "cost", 0.10, "Cost per e-mail sent")
	pf.StringVar(&flags.calibration, "calibration", "", "Probability calibration: isotonic or sigmoid")
	pf.StringVar(&flags.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE")

	rootCmd.AddCommand(
		newABTestCmd(&flags),
		newUpliftCmd(&flags),
		newRunCmd(&flags),
		newServeCmd(&flags),
		newMigrateCmd(&flags),
		newGenerateCmd(),
	)
	return rootCmd
}

// loadConfig layers the flags the user actually set over the loaded config
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("data") {
		cfg.Data.Path = flags.dataPath
	}
	if changed("outcome") {
		cfg.Data.Outcome = flags.outcome
	}
	if changed("seed") {
		cfg.Experiment.Seed = flags.seed
	}
	if changed("resamples") {
		cfg.Bootstrap.Resamples = flags.resamples
	}
	if changed("ks") {
		ks, err := config.ParseKs(flags.ks)
		if err != nil {
			return nil, err
		}
		cfg.Policy.Ks = ks
	}
	if changed("margin") {
		cfg.Policy.MarginPerConversion = flags.margin
	}
	if changed("cost") {
		cfg.Policy.CostPerEmail = flags.cost
	}
	if changed("calibration") {
		cfg.Model.Calibration = flags.calibration
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newContainer loads config and wires the computation services
func newContainer(cmd *cobra.Command, flags *globalFlags) (*container.Container, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func dataReader(c *container.Container) (*excel.DataReader, error) {
	if c.Config.Data.Path == "" {
		return nil, apperrors.ConfigError("no input data: pass --data or set UPLIFT_DATA_PATH")
	}
	reader := excel.NewDataReader(c.Config.Data.Path)
	reader.SetLogger(c.Logger)
	return reader, nil
}

// exitCode distinguishes bad input (2) from runtime failures (1)
func exitCode(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeConfigError, apperrors.CodeDataError:
		return 2
	}
	return 1
}
