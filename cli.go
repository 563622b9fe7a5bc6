package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// App carries what every command needs once the root command has opened the store.
type App struct {
	configDir string
	cfg       *Config
	log       *slog.Logger
	logCloser io.Closer
	store     Store
	board     *Board

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
	// Confirm asks a yes/no question.
	Confirm func(title string) (bool, error)
	// RunTUI runs the board program until it exits.
	RunTUI func(app *App) error
}

func newApp() *App {
	return &App{
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		Confirm: huhConfirm,
		RunTUI:  runTUI,
	}
}

func huhConfirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// open loads config, logging and the store, then initialises the board.
func (a *App) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configDir, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a.log, a.logCloser = logger, closer

	store, err := OpenStore(cfg, logger)
	if err != nil {
		logger.Error("failed opening store", "backend", cfg.Backend, "error", err)
		return fmt.Errorf("opening store: %w", err)
	}
	a.store = store

	a.board = NewBoard(store, WithLogger(logger))
	if err := a.board.Init(); err != nil {
		logger.Error("initialization failed", "error", err)
		return err
	}
	return nil
}

// close releases the store and the log file. Calling it again is a no-op.
func (a *App) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

// execute runs the command tree with args (os.Args when nil) and closes what
// the root command opened, including when a command or its setup failed.
func execute(app *App, args []string, out io.Writer) error {
	cmd := NewRootCmd(app)
	if args != nil {
		cmd.SetArgs(args)
	}
	if out != nil {
		cmd.SetOut(out)
		cmd.SetErr(out)
	}
	err := cmd.Execute()
	if cerr := app.close(); err == nil {
		err = cerr
	}
	return err
}

// confirmOrYes runs a confirmation unless --yes was given. Without a terminal
// there is nobody to ask, so the command refuses.
func (a *App) confirmOrYes(yes bool, title string) (bool, error) {
	if yes {
		return true, nil
	}
	if !a.IsInteractive() {
		return false, fmt.Errorf("%s: pass --yes to confirm without a terminal", strings.TrimSuffix(title, "?"))
	}
	return a.Confirm(title)
}

// NewRootCmd builds the "stickies" command tree. Running it without a
// subcommand opens the board.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "stickies",
		Short:         "Sticky-notes board for the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.IsInteractive() {
				return errors.New("stickies needs a terminal; use a subcommand for scripted access")
			}
			return app.RunTUI(app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configDir, "config-dir", defaultConfigDir(), "Directory holding config.yaml")
	flags.String("backend", "", "Storage backend: sqlite, fs or memory")
	flags.String("data-dir", "", "Directory for the board data")
	flags.String("log-file", "", `Log file ("-" for stderr)`)
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newSheetsCmd(app),
		newNotesCmd(app),
		newLinkCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newThemeCmd(app),
		newGCCmd(app),
	)
	return root
}

func runTUI(app *App) error {
	p := tea.NewProgram(
		newModel(app.board, app.cfg, app.log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if w, ok := app.store.(Watcher); ok {
		go func() {
			err := w.Watch(ctx, func(key string) { p.Send(storeChangedMsg{key: key}) })
			if err != nil && !errors.Is(err, context.Canceled) {
				app.log.Warn("store watch stopped", "error", err)
			}
		}()
	}

	_, err := p.Run()
	app.board.Save()
	return err
}

func newSheetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Manage sheets",
	}
	cmd.AddCommand(
		newSheetsListCmd(app),
		newSheetsNewCmd(app),
		newSheetsRenameCmd(app),
		newSheetsDeleteCmd(app),
		newSheetsResizeCmd(app),
		newSheetsExcelCmd(app),
		newSheetsConvertBiggestCmd(app),
	)
	return cmd
}

func newSheetsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\tACTIVE")
			for _, s := range app.board.Sheets() {
				active := ""
				if s.ID == app.board.ActiveSheetID() {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Size.orDefault(), active)
			}
			return w.Flush()
		},
	}
}

func newSheetsNewCmd(app *App) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "new [NAME]",
		Short: "Create a sheet and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			s := app.board.CreateSheet(name, size)
			if err := app.board.SwitchSheet(s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created sheet %s (%s) %s\n", s.Name, s.Size, s.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", string(SizeBiggest), `Size: small, medium, large, biggest, excel (alias "damn big")`)
	return cmd
}

func newSheetsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename SHEET NAME",
		Short: "Rename a sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.board.FindSheet(args[0])
			if err != nil {
				return err
			}
			if err := app.board.RenameSheet(s.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", s.Name, strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newSheetsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete SHEET",
		Short: "Delete a sheet and all its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.board.FindSheet(args[0])
			if err != nil {
				return err
			}
			ok, err := app.confirmOrYes(yes, fmt.Sprintf("Delete sheet %q and all its notes?", s.Name))
			if err != nil || !ok {
				return err
			}
			if err := app.board.DeleteSheet(s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted sheet %s\n", s.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newSheetsResizeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resize SHEET SIZE",
		Short: "Change a sheet's size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.board.FindSheet(args[0])
			if err != nil {
				return err
			}
			if err := app.board.SetSheetSize(s.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sheet %s is now %s\n", s.Name, NormalizeSize(args[1]))
			return nil
		},
	}
}

func newSheetsExcelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "excel SHEET",
		Short: "Convert a sheet to excel size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.board.FindSheet(args[0])
			if err != nil {
				return err
			}
			if err := app.board.ConvertToExcel(s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sheet %s is now excel\n", s.Name)
			return nil
		},
	}
}

func newSheetsConvertBiggestCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "convert-biggest",
		Short: "Convert every biggest sheet to excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count := app.board.BiggestCount()
			if count == 0 {
				return ErrNoBiggestSheets
			}
			ok, err := app.confirmOrYes(yes, fmt.Sprintf("Convert %d sheet(s) from biggest → excel?", count))
			if err != nil || !ok {
				return err
			}
			n, err := app.board.ConvertAllBiggestToExcel()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d sheet(s) to excel\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// activate resolves a sheet reference and makes it the active sheet, which
// note and connection commands operate on.
func (a *App) activate(ref string) (Sheet, error) {
	s, err := a.board.FindSheet(ref)
	if err != nil {
		return Sheet{}, err
	}
	if s.ID != a.board.ActiveSheetID() {
		if err := a.board.SwitchSheet(s.ID); err != nil {
			return Sheet{}, err
		}
	}
	return s, nil
}

// resolveNote matches a note by exact id, then by unique id prefix.
func (a *App) resolveNote(ref string) (Note, error) {
	if n, ok := a.board.Note(ref); ok {
		return n, nil
	}
	var matches []Note
	for _, n := range a.board.Notes() {
		if strings.HasPrefix(n.ID, ref) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return Note{}, fmt.Errorf("note %q: %w", ref, ErrNoteNotFound)
	case 1:
		return matches[0], nil
	default:
		return Note{}, fmt.Errorf("note id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage the notes of a sheet",
	}
	cmd.AddCommand(newNotesListCmd(app), newNotesAddCmd(app), newNotesRmCmd(app))
	return cmd
}

func newNotesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list SHEET",
		Short: "List notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.activate(args[0]); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOLOR\tX\tY\tW\tH\tCONTENT")
			for _, n := range app.board.Notes() {
				first, _, _ := strings.Cut(n.Content, "\n")
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%s\n", n.ID, n.Color.Name(), n.X, n.Y, n.W, n.H, first)
			}
			return w.Flush()
		},
	}
}

func newNotesAddCmd(app *App) *cobra.Command {
	var text, color, x, y string
	cmd := &cobra.Command{
		Use:   "add SHEET",
		Short: "Add a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.activate(args[0]); err != nil {
				return err
			}
			opts := NoteOptions{Content: text}
			if color != "" {
				c, ok := parseColor(color)
				if !ok {
					return fmt.Errorf("unknown color %q", color)
				}
				opts.Color = c
			}
			if x != "" || y != "" {
				px, err := strconv.ParseFloat(orZero(x), 64)
				if err != nil {
					return fmt.Errorf("invalid x %q: %w", x, err)
				}
				py, err := strconv.ParseFloat(orZero(y), 64)
				if err != nil {
					return fmt.Errorf("invalid y %q: %w", y, err)
				}
				opts.Position = &Point{X: px, Y: py}
			}
			n := app.board.AddNote(opts)
			if text != "" {
				var err error
				if n, err = app.board.SetNoteText(n.ID, text); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Note content")
	cmd.Flags().StringVar(&color, "color", "", "yellow, pink, green, blue or peach")
	cmd.Flags().StringVar(&x, "x", "", "Left edge in board pixels")
	cmd.Flags().StringVar(&y, "y", "", "Top edge in board pixels")
	return cmd
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func newNotesRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm SHEET NOTE",
		Short: "Delete a note and its connections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.activate(args[0]); err != nil {
				return err
			}
			n, err := app.resolveNote(args[1])
			if err != nil {
				return err
			}
			removed, err := app.board.DeleteNote(n.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d connection(s))\n", n.ID, len(removed.Connections))
			return nil
		},
	}
}

func newLinkCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Connect or disconnect notes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add SHEET FROM TO",
			Short: "Connect two notes",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, to, err := app.resolvePair(args)
				if err != nil {
					return err
				}
				if _, err := app.board.AddConnection(from.ID, to.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected %s → %s\n", from.ID, to.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm SHEET FROM TO",
			Short: "Remove every connection from FROM to TO",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, to, err := app.resolvePair(args)
				if err != nil {
					return err
				}
				n := app.board.RemoveConnection(from.ID, to.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d connection(s)\n", n)
				return nil
			},
		},
	)
	return cmd
}

func (a *App) resolvePair(args []string) (Note, Note, error) {
	if _, err := a.activate(args[0]); err != nil {
		return Note{}, Note{}, err
	}
	from, err := a.resolveNote(args[1])
	if err != nil {
		return Note{}, Note{}, err
	}
	to, err := a.resolveNote(args[2])
	if err != nil {
		return Note{}, Note{}, err
	}
	return from, to, nil
}

func newExportCmd(app *App) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export SHEET",
		Short: "Export a sheet as json, yaml, png, svg or txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := ParseExportKind(format)
			if err != nil {
				return err
			}
			s, err := app.board.FindSheet(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = app.cfg.ExportDir()
			}
			path, err := app.board.ExportSheet(s.ID, kind, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, yaml, png, svg or txt")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: save_directory)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON or YAML export as a new sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.board.ImportFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported sheet %s %s\n", s.Name, s.ID)
			return nil
		},
	}
}

func newThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(ThemeLight), string(ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				switch Theme(args[0]) {
				case ThemeLight, ThemeDark:
					app.board.SetTheme(Theme(args[0]))
				default:
					return fmt.Errorf("unknown theme %q", args[0])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.board.Theme())
			return nil
		},
	}
}

func newGCCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove stored notes and connections of deleted sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := app.board.RemoveOrphans()
			if err != nil {
				return err
			}
			for _, k := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned key(s)\n", len(removed))
			return nil
		},
	}
}
