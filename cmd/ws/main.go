package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cl "wealthsprint/internal/cli"
	"wealthsprint/internal/config"
	"wealthsprint/internal/game"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ws",
		Short:        "Wealth Sprint CLI client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newPlayCmd(),
		newLogoutCmd(),
		newDashCmd(&apiBase),
		newRolesCmd(&apiBase),
		newNextCmd(&apiBase),
		newChooseCmd(&apiBase),
		newTeamCmd(&apiBase),
		newAdvanceCmd(&apiBase),
		newPayrollCmd(&apiBase),
		newRestCmd(&apiBase),
		newWatchCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("no player selected, run `ws login` or `ws play <name>`: %w", err)
	}
	return sess, nil
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `ws login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				PlayerID:     session.User.ID,
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and play as your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				PlayerID:     session.User.ID,
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <player>",
		Short: "Play as a named player on a server without auth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player := strings.TrimSpace(args[0])
			if err := game.ValidatePlayerID(player); err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{PlayerID: player}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Playing as %s.", player))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			d, err := newClient(apiBase).Dashboard(ctx, sess)
			if err != nil {
				return err
			}
			renderDashboard(d)
			return nil
		},
	}
}

func newRolesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List hireable roles and sectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			roles, err := client.Roles(ctx, sess)
			if err != nil {
				return err
			}
			sectors, err := client.Sectors(ctx)
			if err != nil {
				return err
			}
			renderRoles(roles, sectors)
			return nil
		},
	}
}

func newNextCmd(apiBase *string) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Draw the next scenario and answer it",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			client := newClient(apiBase)
			inst, err := client.NextScenario(ctx, sess)
			if err != nil {
				return err
			}
			renderScenario(inst)
			if show {
				return nil
			}
			ids := make([]string, 0, len(inst.Template.Options))
			for _, o := range inst.Template.Options {
				ids = append(ids, o.ID)
			}
			optionID, err := promptChoice("Choose", ids, ids[0])
			if err != nil {
				return err
			}
			res, err := client.Choose(ctx, sess, inst.ID, optionID)
			if err != nil {
				return err
			}
			renderChoice(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "only show the scenario")
	return cmd
}

func newChooseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "choose <instance-id> <option-id>",
		Short: "Answer a scenario shown earlier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).Choose(ctx, sess, args[0], args[1])
			if err != nil {
				return err
			}
			renderChoice(res)
			return nil
		},
	}
}

func newTeamCmd(apiBase *string) *cobra.Command {
	team := &cobra.Command{
		Use:     "team",
		Short:   "Manage your staff",
		Aliases: []string{"staff"},
	}
	team.AddCommand(
		newHireCmd(apiBase),
		newRecordActionCmd(apiBase, "promote", "Promote one level"),
		newRecordActionCmd(apiBase, "demote", "Demote one level"),
		newRecordActionCmd(apiBase, "fire", "Let someone go"),
		newSectorCmd(apiBase),
		newBonusCmd(apiBase),
	)
	return team
}

func newHireCmd(apiBase *string) *cobra.Command {
	var (
		name       string
		department string
		experience int
	)
	cmd := &cobra.Command{
		Use:   "hire [role]",
		Short: "Hire for a role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var role string
			if len(args) > 0 {
				role = strings.TrimSpace(args[0])
			} else if role, err = promptRequired("Role id"); err != nil {
				return err
			}
			in := game.HireInput{
				RoleID:     game.RoleID(role),
				Department: game.Department(department),
				Name:       strings.TrimSpace(name),
			}
			if cmd.Flags().Changed("experience") {
				in.Experience = &experience
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rec, err := newClient(apiBase).Hire(ctx, sess, in)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Hired %s as %s.", rec.Name, rec.RoleID))
			renderRecord(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the hire (random when empty)")
	cmd.Flags().StringVar(&department, "department", "", "override the role's department")
	cmd.Flags().IntVar(&experience, "experience", game.DefaultExperience, "experience score 0-10 (rolled when unset)")
	return cmd
}

func newRecordActionCmd(apiBase *string, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <staff-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rec, err := newClient(apiBase).RecordAction(ctx, sess, args[0], action)
			if err != nil {
				return err
			}
			renderRecord(rec)
			return nil
		},
	}
}

func newSectorCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sector <staff-id> [sector]",
		Short: "Assign a sector, or clear it when none is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var sector game.SectorID
			if len(args) > 1 {
				sector = game.SectorID(strings.TrimSpace(args[1]))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rec, err := newClient(apiBase).AssignSector(ctx, sess, args[0], sector)
			if err != nil {
				return err
			}
			renderRecord(rec)
			return nil
		},
	}
}

func newBonusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bonus <staff-id> [amount]",
		Short: "Pay a bonus (performance based when no amount is given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var amount int64
			if len(args) > 1 {
				amount, err = strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
				if err != nil || amount < 0 {
					return fmt.Errorf("invalid amount %q", args[1])
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Bonus(ctx, sess, args[0], amount)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Paid %s to %s.", formatMoney(out.Paid), out.Staff.Name))
			return nil
		},
	}
}

func newAdvanceCmd(apiBase *string) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "advance [years]",
		Short: "Move time forward",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			years := float64(months) / 12
			if len(args) > 0 {
				years, err = strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
				if err != nil || years <= 0 {
					return fmt.Errorf("invalid years %q", args[0])
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			report, err := newClient(apiBase).Advance(ctx, sess, years)
			if err != nil {
				return err
			}
			renderAdvance(report)
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 1, "months to advance when no years are given")
	return cmd
}

func newPayrollCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "payroll",
		Short: "Pay one month of salaries now",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			report, err := newClient(apiBase).Payroll(ctx, sess)
			if err != nil {
				return err
			}
			if report.Missed {
				printError("Payroll missed: not enough cash. Morale took a hit.")
				return nil
			}
			printSuccess(fmt.Sprintf("Paid %s across %d staff.", formatMoney(report.Paid), report.Records))
			return nil
		},
	}
}

func newRestCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rest",
		Short: "Take a break",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err := newClient(apiBase).Rest(ctx, sess)
			if err != nil {
				return err
			}
			printSuccess("Rested.")
			renderStats(snap.Stats)
			return nil
		},
	}
}

func newWatchCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow live session events",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			printInfo("Watching " + sess.PlayerID + ", Ctrl-C to stop.")
			return newClient(apiBase).Watch(ctx, sess, renderEvent)
		},
	}
}
