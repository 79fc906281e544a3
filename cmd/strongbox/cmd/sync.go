package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/agent"
	"github.com/tmarsden/strongbox/container"
	"github.com/tmarsden/strongbox/vault"
)

var syncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Merge secrets from another vault",
	Long: `Runs a sync round against another container file, for example a copy
brought over from a second machine. The other vault's secrets are
merged into this one: its copies overwrite matching fields, its
deletions carry over, local history is kept. The other file is not
modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

// containerAgent adapts a second container file to the sync transport.
// It behaves the way an agent process would: it announces itself on
// roll call and answers a secrets delivery with its own full list,
// echoing the one-time token. The command plays the message bus.
type containerAgent struct {
	classID string
	name    string
	secrets []*vault.Secret

	response *agentResponse
}

type agentResponse struct {
	classID string
	token   string
	payload []byte
}

func (c *containerAgent) RollCall(ctx context.Context) error { return nil }

func (c *containerAgent) SendSecrets(ctx context.Context, classID, token string, payload []byte) error {
	if classID != c.classID {
		return fmt.Errorf("no agent %s", classID)
	}
	body, err := container.MarshalSecrets(c.secrets)
	if err != nil {
		return err
	}
	c.response = &agentResponse{classID: c.classID, token: token, payload: body}
	return nil
}

func (c *containerAgent) Cancel(ctx context.Context, classID string) error {
	c.response = nil
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	defer v.session.Lock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	password, err := promptPassword(fmt.Sprintf("Enter password for %s: ", path), os.Stdout)
	if err != nil {
		return err
	}

	salt, rounds := container.ParseParams(data)
	stop := startSpinner("Opening the other vault...")
	other, err := vault.Unlock(ctx, password, salt, rounds,
		vault.WithSessionLogger(a.logger))
	if err != nil {
		stop()
		return err
	}
	defer other.Lock()
	ci, err := other.CipherInfo()
	if err != nil {
		stop()
		return err
	}
	theirs, _, err := container.Decode(data, password, ci)
	ci.Destroy()
	stop()
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	fileAgent := &containerAgent{
		classID: "file:" + path,
		name:    filepath.Base(path),
		secrets: theirs,
	}
	mgr := agent.NewManager(fileAgent, agent.WithLogger(a.logger))
	if err := mgr.RollCall(ctx); err != nil {
		return err
	}
	mgr.HandleRollCallResponse(fileAgent.classID, fileAgent.name)

	if err := mgr.SendSecrets(ctx, fileAgent.classID, v.collection.All()); err != nil {
		return err
	}
	resp := fileAgent.response
	if resp == nil {
		return errors.New("no sync response")
	}
	changes, ok := mgr.HandleResponse(resp.classID, resp.token, resp.payload)
	if !ok || changes == nil {
		return errors.New("sync response rejected")
	}

	before := v.collection.Len()
	v.collection.Merge(changes)
	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s merged %d entries from %s (%d secrets before, %d after)\n",
		color.GreenString("✓"), len(changes), path, before, v.collection.Len())
	return nil
}
