package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shieldcare/internal/contract"
	"shieldcare/internal/eligibility"
	"shieldcare/internal/eligibility/metrics"
	"shieldcare/internal/fhe"
	"shieldcare/internal/platform/config"
	"shieldcare/internal/platform/logger"
	"shieldcare/internal/wallet"
)

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "shieldcare",
		Short:         "Privacy-preserving health insurance eligibility demo",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	cmd.AddCommand(
		newServeCmd(a),
		newCheckCmd(a),
		newTUICmd(a),
		newClassifyCmd(),
	)
	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log
	return nil
}

// newWorkflow builds a workflow over the mock collaborators using the
// configured delays. A nil registerer skips metrics.
func (a *app) newWorkflow(reg prometheus.Registerer, log *slog.Logger) (*eligibility.Workflow, error) {
	d := a.cfg.Delays
	opts := []eligibility.Option{
		eligibility.WithLogger(log),
		eligibility.WithStagePause(d.StagePause),
	}
	if reg != nil {
		opts = append(opts, eligibility.WithMetrics(metrics.New(reg)))
	}
	return eligibility.New(
		fhe.NewMock(fhe.WithEncryptDelay(d.Encrypt), fhe.WithDecryptDelay(d.Decrypt)),
		contract.NewMock(contract.WithDelay(d.Contract)),
		opts...,
	)
}

func (a *app) newWallet() (*wallet.Connector, error) {
	w := a.cfg.Wallet
	return wallet.New(w.SigningKey,
		wallet.WithIssuer(w.Issuer),
		wallet.WithTokenTTL(w.TokenTTL),
		wallet.WithConnectDelay(a.cfg.Delays.WalletConnect),
		wallet.WithLogger(a.logger),
	)
}

// quietLogger is used by the interactive commands, whose output would be
// garbled by log lines unless the user asked for them.
func (a *app) quietLogger(cmd *cobra.Command) *slog.Logger {
	if cmd.Flags().Changed("log-level") {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}
