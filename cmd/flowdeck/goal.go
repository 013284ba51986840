package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkeller/flowdeck/internal/model"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goals",
}

var goalAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a goal",
	Long: `Add a goal to the local collection and sync it when possible.

Goals are categorized by horizon: short, long, or life.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		category, _ := cmd.Flags().GetString("category")
		goal := model.Goal{
			Title:    strings.Join(args, " "),
			Category: model.GoalCategory(category),
		}
		goal.Description, _ = cmd.Flags().GetString("desc")

		if target, _ := cmd.Flags().GetString("target"); target != "" {
			date, err := parseDate(target)
			if err != nil {
				return err
			}
			goal.TargetDate = date
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		added, err := s.goals.Add(ctx, goal)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s-term goal %d: %s%s\n", added.Category, added.ID, added.Title, syncSuffix(added.SyncState))
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		var goals []model.Goal
		if category, _ := cmd.Flags().GetString("category"); category != "" {
			goals = s.goals.ByCategory(model.GoalCategory(category))
		} else {
			goals = s.goals.List()
		}
		if len(goals) == 0 {
			fmt.Println("No goals")
			return nil
		}

		for _, g := range goals {
			mark := " "
			if g.Completed {
				mark = "x"
			}
			target := ""
			if g.TargetDate != "" {
				target = " (by " + g.TargetDate + ")"
			}
			fmt.Printf("[%s] %3d [%s] %s%s%s\n", mark, g.ID, g.Category, g.Title, target, syncSuffix(g.SyncState))
		}
		return nil
	},
}

var goalDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a goal's completed state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		completed, err := s.goals.ToggleComplete(ctx, id)
		if err != nil {
			return err
		}
		if completed {
			fmt.Printf("Completed goal %d\n", id)
		} else {
			fmt.Printf("Reopened goal %d\n", id)
		}
		return nil
	},
}

var goalRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.goals.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted goal %d\n", id)
		return nil
	},
}

func init() {
	goalAddCmd.Flags().String("category", "short", "goal horizon: short, long, or life")
	goalAddCmd.Flags().String("desc", "", "goal description")
	goalAddCmd.Flags().String("target", "", "target date (natural language or YYYY-MM-DD)")
	goalListCmd.Flags().String("category", "", "filter by horizon")

	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalDoneCmd)
	goalCmd.AddCommand(goalRmCmd)
}
