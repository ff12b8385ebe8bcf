package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/0ad/0ad-sub001/agent"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/sandbox"
)

func simulateCmd(f *flags) *cobra.Command {
	var (
		turns   int
		seed    int64
		ranking bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a headless sandbox match and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			defer setupLogging(cfg.Log).Close()

			if cmd.Flags().Changed("turns") {
				cfg.Turns = max(1, turns)
			}
			if cmd.Flags().Changed("seed") {
				cfg.Match.Seed = seed
			}

			m, err := sandbox.New(cfg.Match, cfg.LaunchTriggers(), cfg.CampaignProfiles())
			if err != nil {
				return fmt.Errorf("set up match: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := m.Run(ctx, cfg.Turns)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			printResult(res, ranking)
			if err != nil {
				color.Yellow("Match interrupted, report is partial")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&turns, "turns", "t", 0, "Turn limit override")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed override")
	cmd.Flags().BoolVar(&ranking, "ranking", false, "Also print each player's resource ranking")
	return cmd
}

func printResult(res sandbox.Result, ranking bool) {
	titleColor := color.New(color.FgCyan, color.Bold)
	successColor := color.New(color.FgGreen, color.Bold)

	titleColor.Printf("\nMatch over after %d turns (%.1f game minutes)\n", res.Turns, res.Elapsed.Minutes())
	if res.Winner != 0 {
		successColor.Printf("Winner: player %d\n", res.Winner)
	} else {
		fmt.Println("No winner: turn limit reached")
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Player", "Name", "Status", "Units", "Structures", "Food", "Wood", "Stone", "Metal", "Launched"}),
	)
	for _, p := range res.Players {
		status := "standing"
		if p.Lost {
			status = fmt.Sprintf("lost (turn %d)", p.LostOnTurn)
		}
		launched := "-"
		if p.Stats != nil {
			launched = launchedSummary(p.Stats)
		}
		table.Append([]string{
			fmt.Sprintf("%d", p.ID),
			p.Name,
			status,
			fmt.Sprintf("%d", p.Units),
			fmt.Sprintf("%d", p.Structures),
			fmt.Sprintf("%.0f", p.Stock.Get(model.Food)),
			fmt.Sprintf("%.0f", p.Stock.Get(model.Wood)),
			fmt.Sprintf("%.0f", p.Stock.Get(model.Stone)),
			fmt.Sprintf("%.0f", p.Stock.Get(model.Metal)),
			launched,
		})
	}
	table.Render()

	for _, p := range res.Players {
		if p.Stats == nil {
			continue
		}
		titleColor.Printf("\nPlans of %s (player %d)\n", p.Name, p.ID)
		printPlans(append(p.Stats.Plans, p.Stats.Finished...))
		if ranking {
			printRanking(p.Stats)
		}
	}
}

func launchedSummary(st *agent.Stats) string {
	var parts []string
	for kind, n := range st.Launched {
		parts = append(parts, fmt.Sprintf("%s:%d", kind, n))
	}
	if len(parts) == 0 {
		return "-"
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func printPlans(plans []agent.PlanReport) {
	if len(plans) == 0 {
		fmt.Println("  none")
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Kind", "Target", "State", "Reason", "Roster"}),
	)
	for _, p := range plans {
		reason := "-"
		if p.Reason != military.ReasonNone {
			reason = p.Reason.String()
		}
		table.Append([]string{
			fmt.Sprintf("%d", p.ID),
			p.Kind.String(),
			fmt.Sprintf("%d", p.Target),
			p.State.String(),
			reason,
			fmt.Sprintf("%d", p.Roster),
		})
	}
	table.Render()
}

func printRanking(st *agent.Stats) {
	if len(st.Ranking) == 0 {
		return
	}
	fmt.Println("\nResource ranking:")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Resource", "Wanted", "Current", "Score"}),
	)
	for _, n := range st.Ranking {
		table.Append([]string{
			string(n.Type),
			fmt.Sprintf("%.0f", n.Wanted),
			fmt.Sprintf("%.1f", n.Current),
			fmt.Sprintf("%.2f", n.Score),
		})
	}
	table.Render()
}
