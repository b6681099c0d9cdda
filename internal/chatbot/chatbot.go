package chatbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"RoutineBuilder/internal/advisor"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/chat"
	"RoutineBuilder/internal/errs"
	"RoutineBuilder/internal/selection"
	"RoutineBuilder/internal/storage"
)

// Placeholder is printed instead of a product list until a category or search is chosen.
const Placeholder = "Select a category to view products"

// SessionLister lists stored conversations.
type SessionLister interface {
	ListSessions(ctx context.Context, limit int) ([]storage.SessionSummary, error)
}

// ChatBot is the interactive terminal front end
type ChatBot struct {
	catalog   *catalog.Catalog
	selection *selection.Selection
	advisor   *advisor.Advisor
	sessions  SessionLister
	logger    *slog.Logger
	out       io.Writer
	criteria  catalog.Criteria
	images    bool
}

// New creates a ChatBot writing to out. sessions may be nil.
func New(cat *catalog.Catalog, sel *selection.Selection, adv *advisor.Advisor, sessions SessionLister, logger *slog.Logger, out io.Writer) *ChatBot {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatBot{
		catalog:   cat,
		selection: sel,
		advisor:   adv,
		sessions:  sessions,
		logger:    logger,
		out:       out,
	}
}

// Run reads lines from in until EOF, /quit or ctx is canceled.
func (cb *ChatBot) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(cb.out, "=== Routine Builder ===")
	fmt.Fprintf(cb.out, "Session: %s\n", cb.advisor.SessionID())
	fmt.Fprintf(cb.out, "Products: %d, selected: %d\n", len(cb.catalog.Products()), cb.selection.Len())
	fmt.Fprintln(cb.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(cb.out)
	fmt.Fprintln(cb.out, Placeholder)
	fmt.Fprintln(cb.out)

	stop := make(chan struct{})
	defer close(stop)
	lines, scanErr := readLines(in, stop)

	for {
		fmt.Fprint(cb.out, "You: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(cb.out)
			fmt.Fprintln(cb.out, "Goodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(cb.out, "Error: %v\n", err)
				cb.logger.Error("command error", "command", input, "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		fmt.Fprintln(cb.out, "Thinking...")
		reply := cb.advisor.Ask(ctx, input)
		fmt.Fprintf(cb.out, "%s %s\n\n", chat.AssistantLabel, reply)
	}

	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	default:
	}

	fmt.Fprintln(cb.out, "Goodbye!")
	return nil
}

// readLines scans in on its own goroutine so a blocked read never holds up cancellation.
// The goroutine stops sending once stop is closed.
func readLines(in io.Reader, stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		scanErr <- scanner.Err()
	}()
	return lines, scanErr
}

// handleCommand handles slash commands. It reports whether the loop should stop.
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/categories":
		categories := cb.catalog.Categories()
		if len(categories) == 0 {
			fmt.Fprintln(cb.out, "No categories available.")
			return false, nil
		}
		fmt.Fprintln(cb.out, "\nCategories:")
		for _, c := range categories {
			fmt.Fprintf(cb.out, "  %s\n", c)
		}
		fmt.Fprintln(cb.out)
		return false, nil

	case "/category":
		if arg == "" {
			return false, fmt.Errorf("usage: /category <name|all>")
		}
		cb.criteria.Category = arg
		return false, cb.printProducts()

	case "/search":
		cb.criteria.Search = arg
		return false, cb.printProducts()

	case "/products":
		return false, cb.printProducts()

	case "/select":
		id, err := parseID(parts, "/select <id>")
		if err != nil {
			return false, err
		}
		selected, err := cb.selection.ToggleID(ctx, cb.catalog, id)
		if err != nil {
			return false, err
		}
		if selected {
			fmt.Fprintf(cb.out, "Selected product %d (%d selected)\n", id, cb.selection.Len())
		} else {
			fmt.Fprintf(cb.out, "Unselected product %d (%d selected)\n", id, cb.selection.Len())
		}
		return false, nil

	case "/remove":
		id, err := parseID(parts, "/remove <id>")
		if err != nil {
			return false, err
		}
		if err := cb.selection.Remove(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintf(cb.out, "Removed product %d\n", id)
		return false, nil

	case "/selected":
		return false, cb.printSelection()

	case "/clear":
		if err := cb.selection.Clear(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(cb.out, "Selection cleared")
		return false, nil

	case "/generate":
		if cb.selection.Len() > 0 {
			fmt.Fprintln(cb.out, "Thinking...")
		}
		reply, err := cb.advisor.GenerateRoutine(ctx)
		if errors.Is(err, errs.ErrEmptySelection) {
			fmt.Fprintln(cb.out, reply)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintf(cb.out, "%s %s\n\n", chat.AssistantLabel, reply)
		return false, nil

	case "/history":
		visible := cb.advisor.Visible()
		if len(visible) == 0 {
			fmt.Fprintln(cb.out, "No messages yet.")
			return false, nil
		}
		fmt.Fprintln(cb.out)
		return false, chat.Render(cb.out, visible)

	case "/new-session":
		id := cb.advisor.NewConversation(ctx)
		fmt.Fprintln(cb.out, "Started new session:", id)
		return false, nil

	case "/sessions":
		if cb.sessions == nil {
			fmt.Fprintln(cb.out, "Session history is not available.")
			return false, nil
		}
		sums, err := cb.sessions.ListSessions(ctx, 10)
		if err != nil {
			return false, err
		}
		if len(sums) == 0 {
			fmt.Fprintln(cb.out, "No saved sessions.")
			return false, nil
		}
		table := tablewriter.NewTable(cb.out)
		table.Header("Session", "Started", "Messages")
		for _, s := range sums {
			if err := table.Append(s.ID, s.StartTime.Format("2006-01-02 15:04"), strconv.Itoa(s.MessageCount)); err != nil {
				return false, err
			}
		}
		return false, table.Render()

	case "/resume":
		if arg == "" {
			return false, fmt.Errorf("usage: /resume <session-id>")
		}
		if err := cb.advisor.Resume(ctx, arg); err != nil {
			return false, err
		}
		fmt.Fprintln(cb.out, "Resumed session:", arg)
		return false, nil

	case "/reload":
		if err := cb.catalog.Reload(); err != nil {
			return false, err
		}
		fmt.Fprintf(cb.out, "Catalog reloaded: %d products\n", len(cb.catalog.Products()))
		return false, nil

	case "/images":
		cb.images = !cb.images
		if cb.images {
			fmt.Fprintln(cb.out, "Image URLs shown in product lists")
		} else {
			fmt.Fprintln(cb.out, "Image URLs hidden")
		}
		return false, nil

	case "/status":
		fmt.Fprintf(cb.out, "Chat: %s, selected: %d\n", cb.advisor.Status(), cb.selection.Len())
		return false, nil

	case "/help":
		fmt.Fprintln(cb.out, "Available commands:")
		fmt.Fprintln(cb.out, "  /categories               - List product categories")
		fmt.Fprintln(cb.out, "  /category <name|all>      - Show products in a category")
		fmt.Fprintln(cb.out, "  /search <term>            - Filter products by name, brand or description (empty clears)")
		fmt.Fprintln(cb.out, "  /products                 - Show products for the current filter")
		fmt.Fprintln(cb.out, "  /select <id>              - Select or unselect a product")
		fmt.Fprintln(cb.out, "  /remove <id>              - Remove a selected product")
		fmt.Fprintln(cb.out, "  /selected                 - Show selected products")
		fmt.Fprintln(cb.out, "  /clear                    - Clear the selection")
		fmt.Fprintln(cb.out, "  /generate                 - Generate a routine from the selection")
		fmt.Fprintln(cb.out, "  /history                  - Show the conversation")
		fmt.Fprintln(cb.out, "  /new-session              - Start a new conversation")
		fmt.Fprintln(cb.out, "  /sessions                 - List saved conversations")
		fmt.Fprintln(cb.out, "  /resume <id>              - Resume a saved conversation")
		fmt.Fprintln(cb.out, "  /images                   - Show or hide image URLs in product lists")
		fmt.Fprintln(cb.out, "  /reload                   - Reload the product catalog")
		fmt.Fprintln(cb.out, "  /status                   - Show chat status")
		fmt.Fprintln(cb.out, "  /quit, /exit              - Exit")
		fmt.Fprintln(cb.out, "Anything else is sent to the advisor as a question.")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", parts[0])
	}
}

func (cb *ChatBot) printProducts() error {
	if cb.criteria.IsEmpty() {
		fmt.Fprintln(cb.out, Placeholder)
		return nil
	}
	products := cb.catalog.Filter(cb.criteria)
	if len(products) == 0 {
		fmt.Fprintln(cb.out, "No products match the current filter.")
		return nil
	}
	return WriteProducts(cb.out, products, cb.selection.Contains, cb.images)
}

func (cb *ChatBot) printSelection() error {
	items := cb.selection.Items()
	if len(items) == 0 {
		fmt.Fprintln(cb.out, "No products selected.")
		return nil
	}
	table := tablewriter.NewTable(cb.out)
	table.Header("ID", "Name", "Brand")
	for _, it := range items {
		if err := table.Append(strconv.Itoa(it.ID), it.Name, it.Brand); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteProducts renders products as a table. selected may be nil. withImages adds the
// image URL column.
func WriteProducts(w io.Writer, products []catalog.Product, selected func(id int) bool, withImages bool) error {
	table := tablewriter.NewTable(w)
	header := []any{"", "ID", "Name", "Brand", "Category"}
	if withImages {
		header = append(header, "Image")
	}
	table.Header(header...)
	for _, p := range products {
		mark := ""
		if selected != nil && selected(p.ID) {
			mark = "*"
		}
		row := []any{mark, strconv.Itoa(p.ID), p.Name, p.Brand, p.Category}
		if withImages {
			row = append(row, p.Image)
		}
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}

func parseID(parts []string, usage string) (int, error) {
	if len(parts) < 2 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errs.NewValidationError("id", parts[1], "product id must be a number")
	}
	return id, nil
}
