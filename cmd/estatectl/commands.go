package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"greendrake/estate/internal/api"
	"greendrake/estate/internal/app"
	"greendrake/estate/internal/cache"
	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/tasks"
	"greendrake/estate/internal/utils"
)

// session holds the connections opened for one command.
type session struct {
	svc   api.Services
	st    store.Store
	rdb   *redis.Client
	queue *asynq.Client
}

func (s *session) close(ctx context.Context) {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	_ = cache.DisconnectRedis(s.rdb)
	_ = s.st.Close(ctx)
}

type sessionKey struct{}

// newRootCmd builds the command tree. The returned func releases whatever
// the executed command opened and must be called after Execute.
func newRootCmd() (*cobra.Command, func()) {
	var opened *session
	rootCmd := &cobra.Command{
		Use:           "estatectl",
		Short:         "Real estate record actions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			noQueue, _ := cmd.Flags().GetBool("no-queue")
			s, err := openSession(cmd.Context(), noQueue)
			if err != nil {
				return err
			}
			opened = s
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
			return nil
		},
	}
	rootCmd.PersistentFlags().Bool("no-queue", false, "Do not enqueue invoice emails for sold properties")

	rootCmd.AddCommand(propertyCmd(), offerCmd(), journalCmd(), userCmd())
	return rootCmd, func() {
		if opened != nil {
			opened.close(context.Background())
			opened = nil
		}
	}
}

func openSession(ctx context.Context, noQueue bool) (*session, error) {
	cfg, err := config.Load("cli")
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &session{st: st}

	var enqueuer services.InvoiceDeliveryEnqueuer
	if !noQueue {
		rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("invoices will not be emailed", zap.Error(err))
		} else {
			s.rdb = rdb
			s.queue = tasks.NewClient(rdb)
			enqueuer = tasks.NewEnqueuer(s.queue, logger)
		}
	}
	s.svc = app.NewServices(st, cfg, enqueuer, logger)
	return s, nil
}

func sessionFrom(cmd *cobra.Command) *session {
	return cmd.Context().Value(sessionKey{}).(*session)
}

func parseIDs(args []string) ([]utils.SixID, error) {
	ids := make([]utils.SixID, 0, len(args))
	for _, a := range args {
		id, err := utils.ParseSixID(a)
		if err != nil || id.IsZero() {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// printResults writes one line per record and fails when any record failed.
func printResults(w io.Writer, verb string, rs services.Results) error {
	for _, r := range rs {
		if r.OK() {
			fmt.Fprintf(w, "%s\t%s\n", r.ID, verb)
		} else {
			fmt.Fprintf(w, "%s\tfailed: %v\n", r.ID, r.Err)
		}
	}
	if n := len(rs.Failed()); n > 0 {
		return fmt.Errorf("%d of %d records failed", n, len(rs))
	}
	return nil
}

func propertyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "property", Short: "Property actions"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.PropertyFilter{Visibility: store.VisibilityActive}
			if all, _ := cmd.Flags().GetBool("all"); all {
				filter.Visibility = store.VisibilityAll
			}
			states, _ := cmd.Flags().GetStringSlice("state")
			for _, s := range states {
				state := models.PropertyState(strings.TrimSpace(s))
				if !state.Valid() {
					return fmt.Errorf("unknown state %q", s)
				}
				filter.States = append(filter.States, state)
			}
			props, err := sessionFrom(cmd).svc.Properties.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATE\tEXPECTED\tBEST\tSELLING")
			for _, p := range props {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\n", p.ID, p.Name, p.State, p.ExpectedPrice, p.BestPrice, p.SellingPrice)
			}
			return tw.Flush()
		},
	}
	list.Flags().Bool("all", false, "Include archived properties")
	list.Flags().StringSlice("state", nil, "Only list these states")

	sell := &cobra.Command{
		Use:   "sell ID...",
		Short: "Mark properties as sold and invoice their buyers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), "sold", sessionFrom(cmd).svc.Properties.Sell(cmd.Context(), ids))
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel ID...",
		Short: "Cancel properties",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), "cancelled", sessionFrom(cmd).svc.Properties.Cancel(cmd.Context(), ids))
		},
	}

	cmd.AddCommand(list, sell, cancel)
	return cmd
}

func offerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "offer", Short: "Offer actions"}

	accept := &cobra.Command{
		Use:   "accept ID",
		Short: "Accept an offer, refusing its siblings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			o, err := sessionFrom(cmd).svc.Offers.Accept(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\taccepted\t%.2f\n", o.ID, o.Price)
			return nil
		},
	}

	refuse := &cobra.Command{
		Use:   "refuse ID...",
		Short: "Refuse offers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), "refused", sessionFrom(cmd).svc.Offers.Refuse(cmd.Context(), ids))
		},
	}

	cmd.AddCommand(accept, refuse)
	return cmd
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "journal", Short: "Billing journals"}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("code")
			typ, _ := cmd.Flags().GetString("type")
			j, err := sessionFrom(cmd).svc.Billing.CreateJournal(cmd.Context(), args[0], code, models.JournalType(typ))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", j.ID, j.Name, j.Type)
			return nil
		},
	}
	create.Flags().String("code", "INV", "Journal code")
	create.Flags().String("type", string(models.JournalSale), "Journal type: sale or purchase")

	cmd.AddCommand(create)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Users"}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			admin, _ := cmd.Flags().GetBool("admin")
			u, err := sessionFrom(cmd).svc.Parties.CreateUser(cmd.Context(), services.UserInput{
				Name: args[0], Email: email, Password: password, IsAdmin: admin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Email)
			return nil
		},
	}
	create.Flags().String("email", "", "Login email")
	create.Flags().String("password", "", "Login password")
	create.Flags().Bool("admin", false, "Grant administrator privileges")

	cmd.AddCommand(create)
	return cmd
}
