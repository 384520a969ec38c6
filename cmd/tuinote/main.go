// Package main provides the CLI entrypoint for tuinote.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuinote/internal/audio"
	"github.com/verte-zerg/tuinote/internal/config"
	"github.com/verte-zerg/tuinote/internal/game"
	"github.com/verte-zerg/tuinote/internal/history"
	"github.com/verte-zerg/tuinote/internal/historyui"
	"github.com/verte-zerg/tuinote/internal/midiin"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/notes"
	"github.com/verte-zerg/tuinote/internal/settings"
	"github.com/verte-zerg/tuinote/internal/stats"
	"github.com/verte-zerg/tuinote/internal/store"
	"github.com/verte-zerg/tuinote/internal/tui"
)

const (
	defaultRounds   = game.DefaultTotalRounds
	defaultClef     = string(model.ModeTreble)
	defaultNotation = string(model.NotationBoth)
)

var (
	quizRounds       int
	quizClef         string
	quizOctaves      []int
	quizNotation     string
	quizSound        bool
	quizAdvanceDelay time.Duration
	quizMIDI         bool
	quizMIDIDevice   string

	historyClef      string
	historyLast      int
	historyCompleted bool
	historyPlain     bool

	exportOut string

	toneClef string
	toneOut  string
	tonePlay bool

	notesClef string

	resetYes bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuinote",
		Short:         "TUI music note reading trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	defaults := settings.Defaults()
	rootCmd.Flags().IntVar(&quizRounds, "rounds", defaultRounds, "rounds per game")
	rootCmd.Flags().StringVar(&quizClef, "clef", defaultClef, "clef: treble, bass or both")
	rootCmd.Flags().IntSliceVar(&quizOctaves, "octaves", defaults.SelectedOctaves, "octaves to draw notes from")
	rootCmd.Flags().StringVar(&quizNotation, "notation", defaultNotation, "answer labels: solfeo, letter or both")
	rootCmd.Flags().BoolVar(&quizSound, "sound", defaults.SoundEnabled, "play the note and error tones")
	rootCmd.Flags().DurationVar(&quizAdvanceDelay, "advance-delay", game.AdvanceDelay, "pause before the next round")
	rootCmd.Flags().BoolVar(&quizMIDI, "midi", false, "answer with a MIDI keyboard")
	rootCmd.Flags().StringVar(&quizMIDIDevice, "midi-device", "", "MIDI input name (substring match)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newToneCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newMIDICmd())
	rootCmd.AddCommand(newResetHistoryCmd())

	return rootCmd
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	persisted := settings.Load(ctx, st, logErrf).Values()
	applyStringConfig(cmd, "clef", &quizClef, ptr(string(persisted.SelectedClef)))
	applyIntSliceConfig(cmd, "octaves", &quizOctaves, persisted.SelectedOctaves)
	applyStringConfig(cmd, "notation", &quizNotation, ptr(string(persisted.NotationType)))
	applyBoolConfig(cmd, "sound", &quizSound, &persisted.SoundEnabled)

	q := fileCfg.Quiz
	applyIntConfig(cmd, "rounds", &quizRounds, q.Rounds)
	applyStringConfig(cmd, "clef", &quizClef, q.Clef)
	applyIntSliceConfig(cmd, "octaves", &quizOctaves, q.Octaves)
	applyStringConfig(cmd, "notation", &quizNotation, q.Notation)
	applyBoolConfig(cmd, "sound", &quizSound, q.Sound)
	applyBoolConfig(cmd, "midi", &quizMIDI, q.MIDI)
	applyStringConfig(cmd, "midi-device", &quizMIDIDevice, q.MIDIDevice)
	if d, ok, _ := q.Delay(); ok && !cmd.Flags().Changed("advance-delay") {
		quizAdvanceDelay = d
	}

	if err := validateQuizFlags(); err != nil {
		return err
	}

	quizSettings := settings.FromValues(model.Settings{
		SoundEnabled:    quizSound,
		SelectedOctaves: quizOctaves,
		SelectedClef:    model.ClefMode(quizClef),
		NotationType:    model.NotationMode(quizNotation),
	})
	if err := quizSettings.Save(ctx, st); err != nil {
		logErrf("failed to save settings: %v\n", err)
	}
	log := history.Load(ctx, st, logErrf)

	player, closePlayer := newPlayer()
	defer closePlayer()

	session := game.New(quizSettings, notes.New(), log,
		game.WithPlayer(player),
		game.WithAdvanceDelay(quizAdvanceDelay),
		game.WithLogf(logErrf),
	)
	session.SetTotalRounds(quizRounds)
	defer session.Close()

	var program atomic.Pointer[tea.Program]
	var midiPort string
	if quizMIDI {
		listener, err := midiin.Open(quizMIDIDevice, func(key int) {
			if p := program.Load(); p != nil {
				p.Send(tui.MIDIKeyMsg{Key: key})
			}
		}, logErrf)
		if err != nil {
			return fmt.Errorf("failed to open MIDI input: %w", err)
		}
		defer func() {
			if cerr := listener.Close(); cerr != nil {
				logErrf("failed to close MIDI input: %v\n", cerr)
			}
		}()
		midiPort = listener.Name()
	}

	ui := tui.NewModel(session, tui.Options{KV: st, ExportDir: ".", MIDIPort: midiPort})
	p := tea.NewProgram(ui, tea.WithAltScreen())
	program.Store(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// newPlayer opens the audio device, falling back to rendering WAV files
// when no device is available.
func newPlayer() (audio.Player, func()) {
	dev, err := audio.NewDevicePlayer(logErrf)
	if err == nil {
		return dev, func() {
			if cerr := dev.Close(); cerr != nil {
				logErrf("failed to close audio: %v\n", cerr)
			}
		}
	}
	logErrf("audio device unavailable (%v); writing tones to %s\n", err, config.DefaultToneDir())
	wp := &audio.WAVPlayer{Path: filepath.Join(config.DefaultToneDir(), "last.wav"), Logf: logErrf}
	return wp, wp.Wait
}

func validateQuizFlags() error {
	if quizRounds <= 0 {
		return fmt.Errorf("--rounds must be > 0")
	}
	switch model.ClefMode(quizClef) {
	case model.ModeTreble, model.ModeBass, model.ModeBoth:
	default:
		return fmt.Errorf("--clef must be treble, bass or both")
	}
	switch model.NotationMode(quizNotation) {
	case model.NotationSolfeo, model.NotationLetter, model.NotationBoth:
	default:
		return fmt.Errorf("--notation must be solfeo, letter or both")
	}
	for _, o := range quizOctaves {
		if o < settings.MinOctave || o > settings.MaxOctave {
			return fmt.Errorf("--octaves must be between %d and %d", settings.MinOctave, settings.MaxOctave)
		}
	}
	if quizAdvanceDelay <= 0 {
		return fmt.Errorf("--advance-delay must be > 0")
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show game history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyClef, "clef", "", "clef filter: treble, bass or both")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N games")
	cmd.Flags().BoolVar(&historyCompleted, "completed", false, "hide unfinished games")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a plain text report instead of the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter, err := historyui.ParseFilter(historyClef, strconv.Itoa(historyLast), boolAnswer(historyCompleted))
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	entries := history.Load(ctx, st, logErrf).Entries()
	notation := settings.Load(ctx, st, logErrf).Notation()

	if historyPlain || !isTerminal(os.Stdout) {
		games := filter.Apply(entries)
		out := cmd.OutOrStdout()
		if err := stats.RenderSummary(out, stats.BuildReport(games)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderGameTable(out, games); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	ui := historyui.NewModel(entries, filter, notation)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed games as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file or directory, - for stdout (default: dated file in the current directory)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	log := history.Load(context.Background(), st, logErrf)
	if exportOut == "-" {
		n, err := history.WriteCSV(cmd.OutOrStdout(), log.Completed())
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if n == 0 {
			logErrln("No completed games to export.")
		}
		return nil
	}

	path := exportPath(exportOut, time.Now())
	ok, err := log.ExportFile(path)
	if err != nil {
		return err
	}
	if !ok {
		logErrln("No completed games to export.")
		return nil
	}
	logErrf("Wrote %s\n", path)
	return nil
}

// exportPath resolves --out. An existing directory or an empty value gets
// the dated default name.
func exportPath(out string, now time.Time) string {
	if out == "" {
		return history.ExportFileName(now)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, history.ExportFileName(now))
	}
	return out
}

func newToneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tone <note|frequency>",
		Short: "Render a note tone as a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE:  runToneCmd,
	}
	cmd.Flags().StringVar(&toneClef, "clef", defaultClef, "clef to look the note up in: treble or bass")
	cmd.Flags().StringVarP(&toneOut, "out", "o", "", "output WAV path (default: tone directory)")
	cmd.Flags().BoolVar(&tonePlay, "play", false, "also play the tone on the audio device")
	return cmd
}

func runToneCmd(_ *cobra.Command, args []string) error {
	freq, label, err := resolveTone(notes.New(), args[0], model.Clef(toneClef))
	if err != nil {
		return err
	}
	path := toneOut
	if path == "" {
		path = filepath.Join(config.DefaultToneDir(), label+".wav")
	}
	if err := audio.WriteToneFile(path, freq, audio.DefaultSampleRate); err != nil {
		return err
	}
	logErrf("Wrote %s (%.2f Hz)\n", path, freq)

	if !tonePlay {
		return nil
	}
	dev, err := audio.NewDevicePlayer(logErrf)
	if err != nil {
		return err
	}
	dev.PlayTone(freq)
	return dev.Close()
}

// resolveTone accepts a pitch name from the catalog or a frequency in Hz.
func resolveTone(catalog *notes.Catalog, arg string, clef model.Clef) (float64, string, error) {
	if clef != model.Treble && clef != model.Bass {
		return 0, "", fmt.Errorf("--clef must be treble or bass")
	}
	arg = strings.TrimSpace(arg)
	if n, ok := catalog.Find(arg, clef); ok {
		return n.FrequencyHz, n.PitchName, nil
	}
	freq, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(arg), "hz"), 64)
	if err != nil {
		return 0, "", fmt.Errorf("unknown note %q in the %s clef", arg, clef)
	}
	if freq <= 0 {
		return 0, "", fmt.Errorf("frequency must be > 0")
	}
	return freq, strconv.FormatFloat(freq, 'f', -1, 64) + "hz", nil
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List the note catalog",
		Args:  cobra.NoArgs,
		RunE:  runNotesCmd,
	}
	cmd.Flags().StringVar(&notesClef, "clef", defaultClef, "clef: treble or bass")
	return cmd
}

func runNotesCmd(cmd *cobra.Command, _ []string) error {
	clef := model.Clef(notesClef)
	if clef != model.Treble && clef != model.Bass {
		return fmt.Errorf("--clef must be treble or bass")
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(notes.New().ForClef(clef))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func renderCatalog(list []model.Note) string {
	rows := make([][]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		n := list[i]
		kind := "space"
		if n.OnLine {
			kind = "line"
		}
		ledger := ""
		if count, above := notes.LedgerLines(n.StaffPosition); count > 0 {
			where := "below"
			if above {
				where = "above"
			}
			ledger = fmt.Sprintf("%d %s", count, where)
		}
		rows = append(rows, []string{
			n.PitchName,
			n.SolfeoName,
			strconv.FormatFloat(n.StaffPosition, 'f', -1, 64),
			kind,
			ledger,
			fmt.Sprintf("%.2f", n.FrequencyHz),
			strconv.Itoa(notes.MIDINumber(n)),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Note", "Solfeo", "Position", "Kind", "Ledger", "Hz", "MIDI").
		Rows(rows...)
	return t.String()
}

func newMIDICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "midi",
		Short: "List MIDI input ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports := midiin.Ports()
			if len(ports) == 0 {
				logErrln("No MIDI inputs found.")
				return nil
			}
			for _, name := range ports {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func newResetHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-history",
		Short: "Delete all saved games",
		Args:  cobra.NoArgs,
		RunE:  runResetHistoryCmd,
	}
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runResetHistoryCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	log := history.Load(ctx, st, logErrf)
	if log.Len() == 0 {
		logErrln("History is already empty.")
		return nil
	}
	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), fmt.Sprintf("Delete %d saved games? [y/N] ", log.Len()))
		if err != nil {
			return err
		}
		if !ok {
			logErrln("Aborted.")
			return nil
		}
	}
	if err := log.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logErrln("History cleared.")
	return nil
}

func confirm(in io.Reader, prompt string) (bool, error) {
	logErrf("%s", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntSliceConfig(cmd *cobra.Command, name string, target *[]int, value []int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]int(nil), value...)
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func ptr[T any](v T) *T {
	return &v
}

func boolAnswer(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuinote configuration
# Uncomment a value to enable it. CLI flags override config values,
# config values override settings saved from the TUI.

[quiz]
# rounds = %d             # Rounds per game
# clef = %q         # treble, bass or both
# octaves = [4, 5]        # Octaves to draw notes from (2-6)
# notation = %q        # solfeo, letter or both
# sound = true            # Play the note and error tones
# advance-delay = %q   # Pause before the next round
# midi = false            # Answer with a MIDI keyboard
# midi-device = ""        # MIDI input name (substring match)
`,
		defaultRounds,
		defaultClef,
		defaultNotation,
		game.AdvanceDelay.String(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
