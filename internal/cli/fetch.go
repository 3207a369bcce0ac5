package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
	"github.com/roach88/anchorgo/internal/transport"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	RPC        string
	Commitment string
	ProgramID  string
	Timeout    time.Duration
}

// FetchResult is the output of the fetch command.
type FetchResult struct {
	Address string          `json:"address"`
	Account string          `json:"account"`
	Value   json.RawMessage `json:"value"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <idl> <address> [account]",
		Short: "Fetch an account over RPC and decode it",
		Long: `Fetch an account through a Solana JSON-RPC endpoint and decode it with
the program's layout. Without an account name the layout is picked by
matching the discriminator.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 3 {
				name = args[2]
			}
			return runFetch(opts, args[0], args[1], name, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RPC, "rpc", "", "RPC endpoint (default from config)")
	cmd.Flags().StringVar(&opts.Commitment, "commitment", "", "commitment (processed|confirmed|finalized)")
	cmd.Flags().StringVar(&opts.ProgramID, "program-id", "", "program address when the IDL declares none")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	return cmd
}

func runFetch(opts *FetchOptions, path, address, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()
	cfg := opts.settings()

	l, err := opts.loadOrFail(formatter, path, log)
	if err != nil {
		return err
	}
	addr, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			ir.Errorf(ir.KindMalformedAddress, ir.StageDecode, []string{address}, "%v", err))
	}
	commitment, err := transport.ParseCommitment(firstNonEmpty(opts.Commitment, cfg.Commitment))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	endpoint := firstNonEmpty(opts.RPC, cfg.RPCEndpoint)
	source := transport.NewRPCSource(endpoint,
		transport.WithCommitment(commitment),
		transport.WithLogger(log),
		transport.WithObserver(opts.fetchObs))
	popts := []transport.ProgramOption{transport.WithProgramLogger(log)}
	if opts.ProgramID != "" {
		id, err := solana.PublicKeyFromBase58(opts.ProgramID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("--program-id: %w", err))
		}
		popts = append(popts, transport.WithProgramID(id))
	} else if l.Idl.Metadata.Address == "" {
		// Fetching never uses the program ID; any key satisfies the client.
		popts = append(popts, transport.WithProgramID(solana.SystemProgramID))
	}
	program, err := transport.NewProgram(l.Idl, source, popts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	log.WithFields(logging.Fields{"endpoint": endpoint, "address": address}).Debug("fetching account")
	var v codec.Value
	if name == "" {
		name, v, err = program.FetchAny(ctx, addr)
	} else {
		v, err = program.FetchAccount(ctx, name, addr)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRPC, err)
	}

	out, err := codec.MarshalJSON(v)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(FetchResult{Address: address, Account: name, Value: out})
	}
	fmt.Fprintf(formatter.Writer, "%s %s\n%s\n", name, address, out)
	return nil
}
