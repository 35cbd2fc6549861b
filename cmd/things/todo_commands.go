package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/thingsdev/thingscloud/history"
	"github.com/thingsdev/thingscloud/internal/ids"
	"github.com/thingsdev/thingscloud/internal/ui"
	"github.com/thingsdev/thingscloud/todo"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a todo in the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var addNote string
var addToday bool
var addSomeday bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached todos",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var listAll bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one todo, rendering its note as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a todo complete",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Complete),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Mark a todo cancelled",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Cancel),
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a completed or cancelled todo",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Reopen),
}

var trashCmd = &cobra.Command{
	Use:   "trash <id>",
	Short: "Move a todo to the trash",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Trash),
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a todo from the trash",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Restore),
}

var todayCmd = &cobra.Command{
	Use:   "today <id>",
	Short: "Move a todo into the Today list",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Today),
}

var eveningCmd = &cobra.Command{
	Use:   "evening <id>",
	Short: "Move a todo into This Evening",
	Args:  cobra.ExactArgs(1),
	RunE:  statusVerb((*todo.Todo).Evening),
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <inbox|anytime|someday>",
	Short: "Move a todo to another list",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func init() {
	addCmd.Flags().StringVar(&addNote, "note", "", "note body")
	addCmd.Flags().BoolVar(&addToday, "today", false, "schedule for today")
	addCmd.Flags().BoolVar(&addSomeday, "someday", false, "file under someday")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include completed, cancelled, and trashed todos")
	addNoteFlagAliases(addCmd)
	rootCmd.AddCommand(addCmd, listCmd, showCmd, completeCmd, cancelCmd, reopenCmd,
		trashCmd, restoreCmd, todayCmd, eveningCmd, moveCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}

	t := todo.New(strings.Join(args, " "), todo.Options{})
	if addNote != "" {
		t.SetNote(addNote)
	}
	switch {
	case addToday:
		if err := t.Today(); err != nil {
			return err
		}
	case addSomeday:
		if err := t.SetDestination(todo.DestinationSomeday); err != nil {
			return err
		}
	}
	table.Add(t)

	if err := store.Save(table); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", ui.ID(t.ID()), t.Title())
	fmt.Println("created locally; run 'things sync' to commit")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}

	prefixLens := ids.UniquePrefixLengths(tableIDs(table))
	for _, it := range table.All() {
		t := it.Todo
		if !listAll && (t.Trashed() || t.Status() != todo.StatusTodo) {
			continue
		}
		marker := " "
		if pending, err := it.HasPendingChanges(); err == nil && pending {
			marker = "*"
		}
		where := t.Destination().String()
		if t.IsEvening() {
			where = "evening"
		} else if t.IsToday() {
			where = "today"
		}
		id := ui.HighlightedID(t.ID(), prefixLens[t.ID()])
		fmt.Printf("%s %s%s [%s] %s\n", id, marker, ui.StatusGlyph(t), where, ui.Title(t))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}
	it, err := findItem(table, args[0])
	if err != nil {
		return err
	}
	t := it.Todo

	now := time.Now()
	fmt.Printf("%s\n", wordwrap.String(t.Title(), 78))
	fmt.Printf("  id:      %s\n", t.ID())
	fmt.Printf("  type:    %s\n", t.Type())
	fmt.Printf("  status:  %s\n", t.Status())
	fmt.Printf("  list:    %s\n", t.Destination())
	fmt.Printf("  created: %s\n", ui.FormatTimeAgo(t.CreationDate(), now))
	if !t.ModificationDate().Equal(t.CreationDate()) {
		fmt.Printf("  edited:  %s\n", ui.FormatTimeAgo(t.ModificationDate(), now))
	}
	if t.IsToday() {
		fmt.Printf("  today:   yes (evening: %v)\n", t.IsEvening())
	}
	if d := t.ScheduledDate(); d != nil {
		fmt.Printf("  when:    %s\n", d.Format("2006-01-02"))
	}
	if d := t.DueDate(); d != nil {
		fmt.Printf("  due:     %s\n", d.Format("2006-01-02"))
	}
	if r := t.Reminder(); r != nil {
		fmt.Printf("  remind:  %s\n", r)
	}
	if p := t.Project(); p != "" {
		fmt.Printf("  project: %s\n", p)
	}
	if a := t.Area(); a != "" {
		fmt.Printf("  area:    %s\n", a)
	}
	if t.Trashed() {
		fmt.Printf("  trashed: yes\n")
	}

	if t.Note.Value != "" {
		out := t.Note.Value
		if ui.Enabled() {
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(78),
			)
			if err == nil {
				if rendered, err := renderer.Render(t.Note.Value); err == nil {
					out = rendered
				}
			}
		}
		fmt.Printf("\n%s\n", strings.TrimRight(out, "\n"))
	}
	return nil
}

// statusVerb wraps a single-item mutation into a RunE that loads the
// table, applies the verb, and saves.
func statusVerb(verb func(*todo.Todo) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withItem(args[0], func(it *history.Item) error {
			return verb(it.Todo)
		})
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	var dest todo.Destination
	switch args[1] {
	case "inbox":
		dest = todo.DestinationInbox
	case "anytime":
		dest = todo.DestinationAnytime
	case "someday":
		dest = todo.DestinationSomeday
	default:
		return fmt.Errorf("unknown list %q (want inbox, anytime, or someday)", args[1])
	}
	return withItem(args[0], func(it *history.Item) error {
		return it.Todo.SetDestination(dest)
	})
}

func withItem(idOrPrefix string, fn func(*history.Item) error) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	table, err := store.Load()
	if err != nil {
		return err
	}
	it, err := findItem(table, idOrPrefix)
	if err != nil {
		return err
	}
	if err := fn(it); err != nil {
		return err
	}
	if err := store.Save(table); err != nil {
		return err
	}
	fmt.Println("updated locally; run 'things sync' to commit")
	return nil
}
