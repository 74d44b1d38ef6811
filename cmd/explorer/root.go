package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmagro/sol-explorer/internal/config"
	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/logger"
	"github.com/dmagro/sol-explorer/internal/output"
	"github.com/dmagro/sol-explorer/internal/report"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

const (
	formatTerminal = "terminal"
	formatJSON     = "json"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	url           string
	configPath    string
	format        string
	raw           bool
	verbose       bool
	save          bool
	allExtensions bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "explorer",
		Short: "Read-only Solana account and transaction explorer",
		Long: `Inspect Solana accounts, token mints, transactions and blocks over JSON-RPC.

Token accounts, mints and multisigs of both token programs are decoded,
Token-2022 extensions are listed and token metadata is resolved from the
Metaplex program or the mint's own metadata extension.

The endpoint comes from --url, then SOLANA_RPC_URL, then rpc_url in the
config file, then mainnet-beta.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.url, "url", "u", "", "RPC endpoint URL or network: mainnet-beta|devnet|testnet|localhost")
	pf.StringVar(&flags.configPath, "config", "config/explorer.yaml", "Config file path")
	pf.StringVar(&flags.format, "format", formatTerminal, "Output format: terminal|json")
	pf.BoolVar(&flags.raw, "raw", false, "Include raw account data (base64) for unrecognized accounts")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log RPC calls and retries to stderr")
	pf.BoolVar(&flags.save, "save", false, "Also write a JSON report to reports/")
	pf.BoolVar(&flags.allExtensions, "all-extensions", false, "Show marker extensions such as ImmutableOwner")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", explorer.ErrInvalidInput, err)
	})

	cmd.AddCommand(
		accountCmd(flags),
		mintCmd(flags),
		txCmd(flags),
		accountsCmd(flags),
		blockCmd(flags),
	)
	return cmd
}

// exactArgs is cobra.ExactArgs with the error marked as invalid input.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", explorer.ErrInvalidInput, err)
		}
		return nil
	}
}

// session is everything a subcommand needs after flags and config are
// resolved.
type session struct {
	flags    *globalFlags
	cfg      *config.Config
	network  string
	explorer *explorer.Explorer
	out      io.Writer
	errOut   io.Writer
}

// newSession loads config with the precedence file < SOLANA_RPC_URL < --url,
// configures logging and builds the RPC client and explorer.
func newSession(cmd *cobra.Command, flags *globalFlags) (*session, error) {
	if flags.format != formatTerminal && flags.format != formatJSON {
		return nil, fmt.Errorf("%w: unknown format %q (expected terminal or json)", explorer.ErrInvalidInput, flags.format)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.url != "" {
		if cfg.RPCURL, err = config.ResolveURL(flags.url); err != nil {
			return nil, err
		}
	}

	level := cfg.LogLevel
	if flags.verbose {
		level = "debug"
	}
	if err := logger.Setup(logger.Options{Level: level, File: cfg.LogFile}); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	if flags.format == formatJSON || !output.IsTerminal() {
		output.DisableColors()
	}

	client := rpc.NewClient(cfg.RPCURL,
		rpc.WithTimeout(cfg.Timeout),
		rpc.WithMaxRetries(cfg.MaxRetries),
		rpc.WithRetryDelay(cfg.BackoffInitial),
		rpc.WithMaxDelay(cfg.BackoffMax),
		rpc.WithBatchSize(cfg.BatchSize),
		rpc.WithWorkers(cfg.Workers),
		rpc.WithRateLimit(cfg.RequestsPerSecond),
	)

	network := config.NetworkName(cfg.RPCURL)
	logger.WithField("network", network).Debugf("using %d workers, batch size %d", cfg.Workers, cfg.BatchSize)

	return &session{
		flags:    flags,
		cfg:      cfg,
		network:  network,
		explorer: explorer.New(client, explorer.WithWorkers(cfg.Workers)),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

func (s *session) options() output.Options {
	return output.Options{
		Raw:           s.flags.raw,
		AllExtensions: s.flags.allExtensions,
		Network:       s.network,
	}
}

// emit writes result in the selected format. jsonValue is the report DTO,
// terminal renders the human view.
func (s *session) emit(jsonValue any, terminal func(io.Writer)) error {
	if s.flags.format == formatJSON {
		return output.WriteJSON(s.out, jsonValue)
	}
	terminal(s.out)
	return nil
}

// save writes rep when --save is set. A failed query is saved too, with its
// error category.
func (s *session) save(rep *report.Report, result any, queryErr error) {
	if !s.flags.save {
		return
	}
	rep.Finish(result, explorer.Category(queryErr), queryErr)
	path, err := report.WriteJSON(report.DefaultDir, rep, rep.Command)
	if err != nil {
		fmt.Fprintf(s.errOut, "Warning: %v\n", err)
		return
	}
	fmt.Fprintf(s.errOut, "Report saved to %s\n", path)
}
