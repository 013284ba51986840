package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mkeller/flowdeck/internal/model"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task to the local collection and sync it when possible.

The --date flag accepts natural language ("tomorrow", "next friday") as
well as YYYY-MM-DD.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		task := model.Task{Title: strings.Join(args, " ")}
		task.Description, _ = cmd.Flags().GetString("desc")
		task.Time, _ = cmd.Flags().GetString("time")

		if dateFlag, _ := cmd.Flags().GetString("date"); dateFlag != "" {
			date, err := parseDate(dateFlag)
			if err != nil {
				return err
			}
			task.Date = date
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		added, err := s.tasks.Add(ctx, task)
		if err != nil {
			return err
		}
		fmt.Printf("Added task %d: %s%s\n", added.ID, added.Title, syncSuffix(added.SyncState))
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		tasks := s.tasks.List()
		if len(tasks) == 0 {
			fmt.Println("No tasks")
			return nil
		}

		for _, t := range tasks {
			if t.Completed && !all {
				continue
			}
			mark := " "
			if t.Completed {
				mark = "x"
			}
			star := ""
			if t.Favorited {
				star = " *"
			}
			due := ""
			if t.Date != "" {
				due = " (" + t.Date
				if t.Time != "" {
					due += " " + t.Time
				}
				due += ")"
			}
			fmt.Printf("[%s] %3d %s%s%s%s\n", mark, t.ID, t.Title, star, due, syncSuffix(t.SyncState))
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a task's completed state",
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

		completed, err := s.tasks.ToggleComplete(ctx, id)
		if err != nil {
			return err
		}

		if completed {
			// Completions feed the streak and activity statistics.
			done, total := taskCounts(s.tasks.List())
			if err := s.stats.RecordCompletion(ctx, done, total); err != nil {
				return err
			}
			fmt.Printf("Completed task %d\n", id)
		} else {
			fmt.Printf("Reopened task %d\n", id)
		}
		return nil
	},
}

var taskFavCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle a task's favorite flag",
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

		fav, err := s.tasks.ToggleFavorite(ctx, id)
		if err != nil {
			return err
		}
		if fav {
			fmt.Printf("Favorited task %d\n", id)
		} else {
			fmt.Printf("Unfavorited task %d\n", id)
		}
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
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

		if err := s.tasks.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %d\n", id)
		return nil
	},
}

var taskClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all completed tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(quietLogger())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		n, err := s.tasks.ClearCompleted(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d completed tasks\n", n)
		return nil
	},
}

func init() {
	taskAddCmd.Flags().String("desc", "", "task description")
	taskAddCmd.Flags().String("date", "", "due date (natural language or YYYY-MM-DD)")
	taskAddCmd.Flags().String("time", "", "due time (HH:MM)")
	taskListCmd.Flags().Bool("all", false, "include completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskFavCmd)
	taskCmd.AddCommand(taskRmCmd)
	taskCmd.AddCommand(taskClearCmd)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// parseDate resolves natural language like "tomorrow" or "next friday" to
// YYYY-MM-DD. Exact dates pass through.
func parseDate(input string) (string, error) {
	if _, err := time.Parse("2006-01-02", input); err == nil {
		return input, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(input, time.Now())
	if err != nil || result == nil {
		return "", fmt.Errorf("could not understand date %q", input)
	}
	return model.DateString(result.Time), nil
}

func taskCounts(tasks []model.Task) (completed, total int) {
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	return completed, len(tasks)
}

func syncSuffix(state model.SyncState) string {
	if state.Unsynced() {
		return " (not synced)"
	}
	return ""
}
