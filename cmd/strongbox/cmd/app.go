package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tmarsden/strongbox/container"
	"github.com/tmarsden/strongbox/internal/config"
	"github.com/tmarsden/strongbox/prefs"
	"github.com/tmarsden/strongbox/store"
	"github.com/tmarsden/strongbox/vault"
)

// prefsFile is the bookkeeping database kept next to the container. It
// is not vault data: wipe leaves it alone.
const prefsFile = "prefs.db"

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// app bundles what every command needs: configuration, the file store
// and the backup bookkeeping.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	prefs  *prefs.Prefs
}

// openApp loads the configuration, applies the flag overrides and opens
// the store and the preferences database.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if backupPathFlag != "" {
		cfg.BackupPath = backupPathFlag
	}
	if debugFlag {
		cfg.Debug = true
	}

	logger := zap.NewNop()
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
	}

	st, err := store.New(cfg.DataDir,
		store.WithLogger(logger),
		store.WithBackupPath(cfg.BackupPath))
	if err != nil {
		return nil, err
	}
	pr, err := prefs.NewFromFile(filepath.Join(cfg.DataDir, prefsFile))
	if err != nil {
		return nil, fmt.Errorf("opening preferences: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: st, prefs: pr}, nil
}

func (a *app) close() {
	if err := a.prefs.Close(); err != nil {
		a.logger.Warn("closing preferences", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// unlockedVault is an open vault: the session holding the key and the
// loaded collection.
type unlockedVault struct {
	session    *vault.Session
	collection *vault.Collection
}

// unlock runs the full open sequence: cleanup of leftover files, the
// backup age reminder, the password prompt, key derivation and the
// generation cascade. A container read in a legacy format is re-saved
// in the current one right away, while the key is at hand.
func (a *app) unlock(ctx context.Context) (*unlockedVault, error) {
	a.store.Cleanup()
	a.warnBackupAge()

	if !a.store.Exists() {
		return nil, fmt.Errorf("no vault at %s (run 'strongbox init' first)", a.cfg.DataDir)
	}
	data, err := a.store.Load()
	if err != nil {
		return nil, err
	}

	password, err := promptPassword("Enter password: ", os.Stdout)
	if err != nil {
		return nil, err
	}

	// A container without header parameters is a first generation file;
	// Unlock then calibrates fresh parameters for the re-save below.
	salt, rounds := container.ParseParams(data)

	stop := startSpinner("Unlocking vault...")
	session, err := vault.Unlock(ctx, password, salt, rounds,
		vault.WithSessionLogger(a.logger))
	if err != nil {
		stop()
		return nil, err
	}
	ci, err := session.CipherInfo()
	if err != nil {
		stop()
		session.Lock()
		return nil, err
	}
	secrets, format, err := container.Decode(data, password, ci)
	ci.Destroy()
	stop()
	if err != nil {
		session.Lock()
		if errors.Is(err, container.ErrInvalidPassword) {
			return nil, errors.New("invalid password")
		}
		return nil, err
	}

	collection := vault.NewCollection()
	collection.Replace(secrets)
	v := &unlockedVault{session: session, collection: collection}

	if !format.Current() {
		if err := a.save(v); err != nil {
			session.Lock()
			return nil, fmt.Errorf("rewriting %s format container: %w", format, err)
		}
		fmt.Printf("%s container upgraded from %s format\n", color.CyanString("→"), format)
	}
	return v, nil
}

// save encodes the collection with the session key and writes it through
// the store's three step save.
func (a *app) save(v *unlockedVault) error {
	ci, err := v.session.CipherInfo()
	if err != nil {
		return err
	}
	defer ci.Destroy()

	data, err := container.Encode(v.collection.All(), ci)
	if err != nil {
		return err
	}
	return a.store.Save(data)
}

// warnBackupAge nags at most once a week while the vault has never been
// backed up.
func (a *app) warnBackupAge() {
	old, err := a.prefs.BackupTooOld()
	if err != nil {
		a.logger.Warn("checking backup age", zap.Error(err))
		return
	}
	if old {
		fmt.Printf("%s no recent backup; run 'strongbox backup'\n", color.YellowString("!"))
	}
}

// promptPassword prints a prompt and reads a password from the terminal
// without echo. A newline is printed after the read to keep the UI tidy.
func promptPassword(prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// promptNewPassword asks for a password twice and reports its strength.
// The two reads must match; an empty password is rejected.
func promptNewPassword(w io.Writer) (string, error) {
	password, err := promptPassword("New password: ", w)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	again, err := promptPassword("Repeat password: ", w)
	if err != nil {
		return "", err
	}
	if password != again {
		return "", errors.New("passwords do not match")
	}
	fmt.Fprintf(w, "Password strength: %s\n", strengthLabel(vault.CheckStrength(password)))
	return password, nil
}

// promptLine prints a label and reads one line of input, trimmed. A
// partial line before EOF still counts.
func promptLine(r *bufio.Reader, label string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm prints a yes/no question and reads one line. Anything but
// "y" or "yes" counts as no.
func confirm(r *bufio.Reader, question string, w io.Writer) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// strengthLabel colors a strength score, red through green.
func strengthLabel(s vault.Strength) string {
	switch {
	case s <= vault.Medium:
		return color.RedString(s.String())
	case s == vault.Strong:
		return color.YellowString(s.String())
	default:
		return color.GreenString(s.String())
	}
}

// startSpinner shows a spinner while slow work runs. The returned stop
// function clears it.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
