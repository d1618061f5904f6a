package update

import (
	"fmt"
	"strconv"

	"github.com/ddr4869/bftconfig/common/cert"
	"github.com/ddr4869/bftconfig/common/changelog"
	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/ddr4869/bftconfig/common/policies"
	"github.com/ddr4869/bftconfig/config"
	"github.com/ddr4869/bftconfig/orderer/consenters"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewCommand returns the root command of the configupdate tool.
func NewCommand() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "configupdate",
		Short: "Edit the orderer sections of a channel configuration",
		Long: `configupdate edits a decoded channel configuration (the JSON produced by
configtxlator proto_decode --type common.Config) to change the membership of a
BFT ordering service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(cmd.Flags()); err != nil {
				return err
			}
			if err := logger.Initialize(cfg.Log); err != nil {
				return errors.WithMessage(err, "failed to initialize logger")
			}
			cfg.PrintConfig()
			return nil
		},
	}

	rootCmd.PersistentFlags().String(config.FlagName(config.LogLevelKey), "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(config.FlagName(config.LogEncodingKey), logger.ConsoleEncoding, "Log encoding (console, json, logfmt)")
	rootCmd.PersistentFlags().Bool(config.FlagName(config.LogDevelopmentKey), false, "Use development logging")
	rootCmd.PersistentFlags().String(config.FlagName(config.OrdererOrgKey), configtx.DefaultOrdererOrg, "Orderer organization group holding the endpoints")

	rootCmd.AddCommand(addConsenterCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(verifyCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(quorumCmd())

	return rootCmd
}

func addConsenterCmd(cfg func() *config.Config) *cobra.Command {
	params := &AddConsenterParams{}

	cmd := &cobra.Command{
		Use:     "add-consenter <config_path> <updated_config_path>",
		Aliases: []string{"add-orderer"},
		Short:   "Admit a new node into the BFT ordering service",
		Long: `Append a node to the orderer endpoints, the BlockValidation policy and the
consenter mapping, and recompute the BlockValidation quorum.

The endpoint entry reuses the host of the first existing endpoint with the port
of --address; the consenter mapping entry uses the host and port of --address.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.ConfigPath = args[0]
			params.OutputPath = args[1]

			c := cfg()
			log, closeLog, err := changelog.Open(c.ChangeLog.Output)
			if err != nil {
				return err
			}
			defer closeLog()

			updater := &Updater{
				Store:     &configtx.FileStore{Indent: c.Output.Indent},
				Encoder:   cert.FileEncoder{},
				Mutator:   consenters.NewMutator(c.Orderer.Org),
				ChangeLog: log,
			}
			res, err := updater.AddConsenter(params)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added consenter %d; %d nodes, quorum %d\n",
				res.Node.Consenter.ID, res.Membership.Len(), res.Membership.Quorum())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&params.Address, "address", "a", "", "host:port of the new orderer")
	flags.StringVarP(&params.IdentityPath, "identity", "i", "", "Enrollment certificate of the new orderer, or its signcerts directory")
	flags.StringVarP(&params.ServerCertPath, "server-cert", "s", "", "TLS server certificate of the new orderer")
	flags.StringVarP(&params.ClientCertPath, "client-cert", "c", "", "TLS client certificate of the new orderer")
	flags.Bool(config.FlagName(config.OutputIndentKey), false, "Indent the JSON output")
	flags.String(config.FlagName(config.ChangeLogKey), changelog.Stdout, "Where to print section changes: stdout, stderr, none or a file path")
	for _, name := range []string{"address", "identity", "server-cert", "client-cert"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func verifyCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <config_path>",
		Short: "Check that the orderer sections describe a consistent BFT membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			store := &configtx.FileStore{}
			doc, err := store.Load(args[0])
			if err != nil {
				return err
			}

			m, err := consenters.Validate(doc, c.Orderer.Org)
			if err != nil {
				return errors.WithMessagef(err, "%s is inconsistent", args[0])
			}

			f, err := policies.MaxFaulty(m.Len())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d nodes, tolerates %d faulty, quorum %d\n", m.Len(), f, m.Quorum())
			for _, node := range m.Nodes() {
				fmt.Fprintf(out, "  %d\t%s\t%s:%d\t%s\n",
					node.Consenter.ID, node.Endpoint, node.Consenter.Host, node.Consenter.Port, node.Consenter.MSPID)
			}
			return nil
		},
	}
}

func quorumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quorum <node_count>",
		Short: "Print the BFT quorum for a number of nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid node count %q", args[0])
			}
			q, err := policies.ComputeBFTQuorum(n)
			if err != nil {
				return err
			}
			f, err := policies.MaxFaulty(n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "n=%d f=%d quorum=%d\n", n, f, q)
			return nil
		},
	}
}
