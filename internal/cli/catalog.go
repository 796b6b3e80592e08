package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sadopc/timekeep/internal/models"
	"github.com/spf13/cobra"
)

func newCategoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	var sortOrder int
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.store.CreateCategory(args[0], sortOrder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category #%d %s\n", c.ID, c.Name)
			return nil
		},
	}
	add.Flags().IntVar(&sortOrder, "sort", 0, "Sort order")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := e.store.ListCategories()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	}

	rm := &cobra.Command{
		Use:   "rm <category-id>",
		Short: "Delete a category with its projects, tasks and entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			if err := e.store.DeleteCategory(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category #%d\n", id)
			return e.timer.Refresh()
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func newProjectCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"proj"},
		Short:   "Manage projects",
	}

	var (
		color     string
		sortOrder int
	)
	add := &cobra.Command{
		Use:   "add <category-id> <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catID, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			p, err := e.store.CreateProject(catID, args[1], color, sortOrder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project #%d %s\n", p.ID, p.Name)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "Display color, e.g. #7C3AED")
	add.Flags().IntVar(&sortOrder, "sort", 0, "Sort order")

	var (
		categoryID int64
		all        bool
	)
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := e.store.ListProjects(categoryID, all)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME\tCOLOR")
			for _, p := range projects {
				name := p.Name
				if p.Archived {
					name += " (archived)"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", p.ID, p.CategoryID, name, p.Color)
			}
			return w.Flush()
		},
	}
	list.Flags().Int64Var(&categoryID, "category", 0, "Only projects of this category")
	list.Flags().BoolVarP(&all, "all", "a", false, "Include archived projects")

	cmd.AddCommand(add, list,
		archiveCmd("project", func(id int64, v bool) error { return e.store.ArchiveProject(id, v) }),
		removeCmd(e, "project", func(id int64) error { return e.store.DeleteProject(id) }),
	)
	return cmd
}

func newTaskCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks and subtasks",
	}

	var (
		parent    int64
		note      string
		tags      []string
		sortOrder int
	)
	add := &cobra.Command{
		Use:   "add <project-id> <name>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			var parentID *int64
			if parent > 0 {
				parentID = &parent
			}
			t, err := e.store.CreateTask(projectID, parentID, args[1], note, sortOrder)
			if err != nil {
				return err
			}
			if len(tags) > 0 {
				if err := e.store.SetTaskTags(t.ID, tags); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d %s\n", t.ID, e.taskPath(t.ID))
			return nil
		},
	}
	add.Flags().Int64Var(&parent, "parent", 0, "Parent task id (creates a subtask)")
	add.Flags().StringVarP(&note, "note", "n", "", "Note")
	add.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tags (repeat or comma-separate)")
	add.Flags().IntVar(&sortOrder, "sort", 0, "Sort order")

	var (
		projectID int64
		all       bool
	)
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := e.store.ListTasks(projectID, all)
			if err != nil {
				return err
			}
			tagsByTask, err := e.store.TagsByTask()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTASK\tTAGS")
			for _, t := range tasks {
				path := e.taskPath(t.ID)
				if t.Archived {
					path += " (archived)"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, path, strings.Join(tagsByTask[t.ID], ","))
			}
			return w.Flush()
		},
	}
	list.Flags().Int64Var(&projectID, "project", 0, "Only tasks of this project")
	list.Flags().BoolVarP(&all, "all", "a", false, "Include archived tasks")

	cmd.AddCommand(add, list,
		archiveCmd("task", func(id int64, v bool) error { return e.store.ArchiveTask(id, v) }),
		removeCmd(e, "task", func(id int64) error { return e.store.DeleteTask(id) }),
	)
	return cmd
}

// archiveCmd is shared by projects and tasks. The store is opened after the
// tree is built, so callers pass closures rather than method values.
func archiveCmd(kind string, archive func(id int64, archived bool) error) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "archive <" + kind + "-id>",
		Short: "Hide a " + kind + " from pickers (entries are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], kind)
			if err != nil {
				return err
			}
			if err := archive(id, !undo); err != nil {
				return err
			}
			verb := "Archived"
			if undo {
				verb = "Unarchived"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d\n", verb, kind, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Unarchive instead")
	return cmd
}

// removeCmd deletes a row; entries below it go with it.
func removeCmd(e *env, kind string, remove func(id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <" + kind + "-id>",
		Short: "Delete a " + kind + " and every entry recorded against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], kind)
			if err != nil {
				return err
			}
			if err := remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s #%d\n", kind, id)
			return e.timer.Refresh()
		},
	}
}

func newTagCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}

	set := &cobra.Command{
		Use:   "set <task-id> [tag...]",
		Short: "Replace a task's tags (no tags clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			if _, err := e.store.GetTask(taskID); err != nil {
				return err
			}
			if err := e.store.SetTaskTags(taskID, args[1:]); err != nil {
				return err
			}
			tags, err := e.store.TaskTags(taskID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.taskPath(taskID), joinTagNames(tags))
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list [prefix]",
		Aliases: []string{"ls"},
		Short:   "List tags, optionally by prefix",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			tags, err := e.store.SearchTags(prefix)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(set, list)
	return cmd
}

func joinTagNames(tags []models.Tag) string {
	if len(tags) == 0 {
		return "(no tags)"
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
