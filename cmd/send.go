// File: cmd/send.go
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/presets"
)

// sendFlagBindings maps config keys to the send flags that override them.
var sendFlagBindings = map[string]string{
	"dispatch.repeat_count":      "repeat",
	"dispatch.randomize":         "randomize",
	"dispatch.delay_min":         "delay-min",
	"dispatch.delay_max":         "delay-max",
	"dispatch.typing_simulation": "typing",
	"dispatch.typing_speed":      "typing-speed",
}

// newSendCmd creates and configures the `send` command.
func newSendCmd(a *app) *cobra.Command {
	var (
		texts  []string
		file   string
		preset string
	)

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send messages into the chat open in the browser",
		Long: `Opens WhatsApp Web, waits for you to log in and open a chat, then sends the
given messages into it. Messages come from --message (repeatable), a file of
blank-line separated messages, or a preset. Type 'stop' and press Enter to stop.`,
		Example: `  courier send -m "Good morning!" --repeat 3 --delay-min 2 --delay-max 5
  courier send --file messages.txt --randomize
  courier send --preset "Check-in" --typing`,
		Args: cobra.NoArgs,
		// Bind flags here so that flags given on the command line take precedence over
		// the config file and the environment.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.mgr.BindFlags(cmd.Flags(), sendFlagBindings)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(texts) == 0 && file == "" && preset == "" {
				return errors.New("nothing to send: use --message, --file or --preset")
			}
			return a.send(cmd, texts, file, preset)
		},
	}

	f := sendCmd.Flags()
	f.StringArrayVarP(&texts, "message", "m", nil, "message to send (repeatable)")
	f.StringVarP(&file, "file", "f", "", "file of messages separated by blank lines")
	f.StringVarP(&preset, "preset", "p", "", "preset name or number")
	f.Int("repeat", 1, "number of times each message is sent")
	f.Bool("randomize", false, "shuffle the messages after repeating them")
	f.Float64("delay-min", 1, "minimum delay between messages in seconds")
	f.Float64("delay-max", 1, "maximum delay between messages in seconds")
	f.Bool("typing", false, "type messages one character at a time")
	f.Float64("typing-speed", 0.05, "seconds per character when typing")
	return sendCmd
}

func (a *app) send(cmd *cobra.Command, texts []string, file, preset string) error {
	ctx := cmd.Context()
	out := newSyncWriter(cmd.OutOrStdout())
	logger := a.logger.Named("send")

	comps := newComponents(ctx, a.mgr, a.logger)
	defer comps.Shutdown()
	ctrl := comps.Controller

	// 1. Gather everything before the browser opens.
	batch, err := gatherMessages(texts, file, preset, ctrl.Presets())
	if err != nil {
		return err
	}
	if ctrl.Queue().Replace(batch) == 0 {
		out.Println("Nothing to send.")
		return nil
	}

	in := newLineReader(cmd.InOrStdin())
	defer in.Close()

	// 2. Log in and bind the chat the user opens.
	out.Println("Opening WhatsApp Web. Scan the QR code if asked.")
	if err := ctrl.Login(ctx); err != nil {
		return err
	}
	out.Println("Open the chat to send to, then press Enter.")
	if _, err := in.ReadLine(ctx); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	target, err := ctrl.SelectChat(ctx)
	if err != nil {
		return err
	}
	out.Printf("Sending %d message(s) to %s.\n", ctrl.Queue().Len(), target.Title)

	// 3. Run it in the foreground.
	h, err := ctrl.SendQueue(ctx, progressPrinter(out))
	if err != nil {
		return err
	}
	sum, err := watchRun(ctx, h, in, out)
	if err != nil {
		return err
	}
	logger.Info("Send finished.", zap.String("run_id", sum.RunID), zap.String("reason", string(sum.Reason)))
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d messages failed", sum.Failed, sum.Attempted)
	}
	return nil
}

// gatherMessages collects messages from flags, a file and a preset, in that order.
func gatherMessages(texts []string, file, preset string, store *presets.Store) ([]string, error) {
	batch := append([]string(nil), texts...)
	if file != "" {
		msgs, err := messages.LoadFile(file)
		if err != nil {
			return nil, err
		}
		batch = append(batch, msgs...)
	}
	if preset != "" {
		if store == nil {
			return nil, errors.New("presets are not available")
		}
		msgs, err := store.Messages(preset)
		if err != nil {
			return nil, err
		}
		batch = append(batch, msgs...)
	}
	return batch, nil
}
