// Package main is the bounty board CLI: a thin presentation layer over the
// client packages. All business rules live below internal/.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"bounty-board/internal/app"
	"bounty-board/internal/config"
	"bounty-board/internal/domain"
	"bounty-board/internal/history"
	"bounty-board/internal/history/memory"
	"bounty-board/internal/history/postgres"
	"bounty-board/internal/observability"
	"bounty-board/internal/wallet"
	"bounty-board/internal/wallet/keysigner"
	"bounty-board/internal/wallet/walletbridge"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bounty",
	Short: "Bounty board client",
	Long:  "Client for the on-ledger bounty board: browse bounties, submit work, and manage escrow.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(awardCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(refundCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime is the wired process: config, provider, stores, app.
type runtime struct {
	cfg *config.Config
	app *app.App

	closers []func()
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	r := &runtime{cfg: cfg}

	var metrics *observability.Metrics
	if cfg.MetricsListen != "" {
		metrics = observability.NewMetrics("")
		go func() {
			if err := http.ListenAndServe(cfg.MetricsListen, observability.Handler()); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	var provider wallet.Provider
	switch {
	case cfg.WalletWSURL != "":
		bridge, err := walletbridge.Dial(ctx, cfg.WalletWSURL, nil, logger)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func() { bridge.Close() })
		provider = bridge
	case cfg.KeyHex != "":
		signer, err := keysigner.Dial(ctx, cfg.RPCURL, cfg.KeyHex)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, signer.Close)
		provider = signer
	}

	var store history.Store
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		r.closers = append(r.closers, pool.Close)
		store = postgres.NewStore(pool)
	} else {
		store = memory.NewStore()
	}

	r.app = app.New(app.Options{
		Provider:         provider,
		Descriptor:       cfg.Descriptor(),
		Contract:         common.HexToAddress(cfg.ContractAddress),
		History:          store,
		Logger:           logger,
		Metrics:          metrics,
		FetchConcurrency: cfg.FetchConcurrency,
	})
	return r, nil
}

// connect wires the runtime and opens the wallet session.
func connect(ctx context.Context) (*runtime, error) {
	r, err := setup(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.app.Connect(ctx); err != nil {
		r.close()
		return nil, err
	}
	return r, nil
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bounty id %q", arg)
	}
	return id, nil
}

func printBounty(b domain.Bounty, now int64) {
	fmt.Printf("#%d  %s\n", b.ID, b.Title)
	fmt.Printf("    reward %s  status %s  creator %s\n",
		b.DisplayReward(), b.Effective(now), b.Creator.Hex())
	fmt.Printf("    deadline %s  submissions %d\n",
		time.Unix(b.Deadline, 0).Format(time.RFC3339), b.SubmissionCount)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bounties",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		repo, err := r.app.Repository()
		if err != nil {
			return err
		}
		bounties, err := repo.FetchAll(cmd.Context())
		if err != nil {
			return err
		}
		now := time.Now().Unix()
		for _, b := range bounties {
			printBounty(b, now)
		}
		fmt.Printf("%d bounties\n", len(bounties))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one bounty with its submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		repo, err := r.app.Repository()
		if err != nil {
			return err
		}
		b, err := repo.FetchOne(cmd.Context(), id)
		if err != nil {
			return err
		}
		now := time.Now().Unix()
		printBounty(b, now)
		fmt.Printf("    %s\n", b.Description)
		if b.WinnerSet() {
			fmt.Printf("    winner %s  paid %v\n", b.Winner.Hex(), b.Paid)
		}

		subs, err := repo.FetchSubmissions(cmd.Context(), id)
		if err != nil {
			return err
		}
		for i, s := range subs {
			fmt.Printf("  [%d] %s  %s\n", i, s.Submitter.Hex(), s.Evidence)
			if s.Note != "" {
				fmt.Printf("      %s\n", s.Note)
			}
		}

		p, err := r.app.Permissions(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("    you: creator=%v submit=%v award=%v cancel=%v refund=%v\n",
			p.IsCreator, p.CanSubmit, p.CanAward, p.CanCancel, p.CanRefund)
		return nil
	},
}

var (
	createTitle       string
	createDescription string
	createReward      string
	createDeadline    time.Duration
	createReview      time.Duration
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a bounty, escrowing the reward",
	RunE: func(cmd *cobra.Command, args []string) error {
		reward, err := domain.ParseReward(createReward)
		if err != nil {
			return err
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		orch, err := r.app.Orchestrator()
		if err != nil {
			return err
		}
		deadline := time.Now().Add(createDeadline).Unix()
		id, err := orch.CreateBounty(cmd.Context(), createTitle, createDescription,
			deadline, int64(createReview.Seconds()), reward)
		if err != nil {
			return err
		}
		fmt.Printf("created bounty #%d\n", id)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "bounty title")
	createCmd.Flags().StringVar(&createDescription, "description", "", "bounty description")
	createCmd.Flags().StringVar(&createReward, "reward", "", "reward in display units, e.g. 2.5")
	createCmd.Flags().DurationVar(&createDeadline, "deadline", 7*24*time.Hour, "time until the submission deadline")
	createCmd.Flags().DurationVar(&createReview, "review", 72*time.Hour, "review window after the deadline")
	createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagRequired("reward")
}

var (
	submitEvidence string
	submitNote     string
)

var submitCmd = &cobra.Command{
	Use:   "submit <id>",
	Short: "Submit a solution to a bounty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		orch, err := r.app.Orchestrator()
		if err != nil {
			return err
		}
		if err := orch.SubmitSolution(cmd.Context(), id, submitEvidence, submitNote); err != nil {
			return err
		}
		fmt.Println("solution submitted")
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitEvidence, "evidence", "", "evidence reference, e.g. a link")
	submitCmd.Flags().StringVar(&submitNote, "note", "", "optional note for the reviewer")
	submitCmd.MarkFlagRequired("evidence")
}

var awardCmd = &cobra.Command{
	Use:   "award <id> <winner>",
	Short: "Award a bounty to a submitter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if !common.IsHexAddress(args[1]) {
			return fmt.Errorf("invalid winner address %q", args[1])
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		orch, err := r.app.Orchestrator()
		if err != nil {
			return err
		}
		if err := orch.AwardWinner(cmd.Context(), id, common.HexToAddress(args[1])); err != nil {
			return err
		}
		fmt.Println("winner awarded")
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a bounty with no submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		orch, err := r.app.Orchestrator()
		if err != nil {
			return err
		}
		if err := orch.CancelBounty(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println("bounty cancelled")
		return nil
	},
}

var refundCmd = &cobra.Command{
	Use:   "refund <id>",
	Short: "Reclaim the escrow of an expired bounty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		orch, err := r.app.Orchestrator()
		if err != nil {
			return err
		}
		if err := orch.ClaimRefund(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println("refund claimed")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the connected account's bounties",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		p, err := r.app.Profile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s  balance %s  reputation %d\n", p.Address.Hex(), p.Balance, p.Reputation)
		now := time.Now().Unix()
		sections := []struct {
			name     string
			bounties []domain.Bounty
		}{
			{"created", p.Created},
			{"submitted", p.Submitted},
			{"won", p.Won},
		}
		for _, s := range sections {
			fmt.Printf("%s (%d):\n", s.name, len(s.bounties))
			for _, b := range s.bounties {
				printBounty(b, now)
			}
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the connected account's transaction history",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer r.close()

		addr, ok := r.app.Session().Address()
		if !ok {
			return app.ErrNotConnected
		}
		activities, err := r.app.History().ByActor(cmd.Context(), addr)
		if err != nil {
			return err
		}
		for _, a := range activities {
			fmt.Printf("%s  %-7s  bounty #%d  %-9s  %s\n",
				a.CreatedAt.Format(time.RFC3339), a.Action, a.BountyID, a.Outcome, a.TxHash.Hex())
			if a.Detail != "" {
				fmt.Printf("    %s\n", a.Detail)
			}
		}
		return nil
	},
}
