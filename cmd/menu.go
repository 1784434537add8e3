// File: cmd/menu.go
package cmd

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/presets"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

const banner = `
  ____                 _
 / ___|___  _   _ _ __(_) ___ _ __
| |   / _ \| | | | '__| |/ _ \ '__|
| |__| (_) | |_| | |  | |  __/ |
 \____\___/ \__,_|_|  |_|\___|_|
`

// menu is the interactive front end. Every blocking read goes through in, so an
// interrupt ends the menu at the next prompt.
type menu struct {
	ctrl   *service.Controller
	mgr    *config.Manager
	in     *lineReader
	out    *syncWriter
	logger *zap.Logger

	// pacing is the dispatch section shown in the main menu header. It follows
	// every config change, including edits made to the file while the menu runs.
	pacing atomic.Pointer[config.DispatchConfig]
}

func newMenu(ctrl *service.Controller, mgr *config.Manager, in io.Reader, out io.Writer, logger *zap.Logger) *menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &menu{
		ctrl:   ctrl,
		mgr:    mgr,
		in:     newLineReader(in),
		out:    newSyncWriter(out),
		logger: logger.Named("menu"),
	}
	d := mgr.Current().Dispatch
	m.pacing.Store(&d)
	mgr.Subscribe(func(cfg *config.Config) {
		d := cfg.Dispatch
		m.pacing.Store(&d)
		m.logger.Debug("Pacing settings refreshed.",
			zap.Float64("delay_min", d.DelayMin),
			zap.Float64("delay_max", d.DelayMax))
	})
	return m
}

func (m *menu) close() { m.in.Close() }

// run shows the main menu until the user exits, the input ends or ctx is cancelled.
func (m *menu) run(ctx context.Context) error {
	m.out.Printf("%s", banner)
	for {
		m.printMain()
		choice, err := m.ask(ctx, "Choose an option: ")
		if err != nil {
			return m.exit(err)
		}

		switch choice {
		case "1":
			m.login(ctx)
		case "2":
			err = m.selectChat(ctx)
		case "3":
			err = m.messagesMenu(ctx)
		case "4":
			err = m.sendMenu(ctx)
		case "5":
			err = m.settingsMenu(ctx)
		case "6":
			err = m.presetsMenu(ctx)
		case "7", "exit", "quit", "q":
			m.out.Println("Goodbye.")
			return nil
		default:
			m.out.Println("Invalid choice.")
		}
		if err != nil {
			return m.exit(err)
		}
	}
}

// exit maps the error that ended input to the menu's return value.
func (m *menu) exit(err error) error {
	if errors.Is(err, io.EOF) {
		m.out.Println("\nGoodbye.")
		return nil
	}
	return err
}

func (m *menu) printMain() {
	chat := "none"
	if t := m.ctrl.Target(); !t.IsZero() {
		chat = t.Title
	}
	session := "not logged in"
	if m.ctrl.LoggedIn() {
		session = "logged in"
	}
	d := m.pacing.Load()
	m.out.Printf("\n=== Main Menu ===  [%s | chat: %s | queue: %d | delay: %s]\n",
		session, chat, m.ctrl.Queue().Len(), delayRange(d.DelayMin, d.DelayMax))
	m.out.Println("1. Log in to WhatsApp Web")
	m.out.Println("2. Select chat")
	m.out.Println("3. Manage messages")
	m.out.Println("4. Send messages")
	m.out.Println("5. Settings")
	m.out.Println("6. Presets")
	m.out.Println("7. Exit")
}

// ask prints label and returns the next input line with surrounding space removed.
func (m *menu) ask(ctx context.Context, label string) (string, error) {
	m.out.Printf("%s", label)
	line, err := m.in.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (m *menu) report(err error) {
	m.out.Printf("Error: %v\n", err)
}

// -- Session --

func (m *menu) login(ctx context.Context) {
	m.out.Println("Opening WhatsApp Web. Scan the QR code if asked...")
	if err := m.ctrl.Login(ctx); err != nil {
		m.report(err)
		return
	}
	m.out.Println("Logged in.")
}

func (m *menu) selectChat(ctx context.Context) error {
	if !m.ctrl.LoggedIn() {
		m.out.Println("Log in first (option 1).")
		return nil
	}
	if _, err := m.ask(ctx, "Open the chat in the browser, then press Enter."); err != nil {
		return err
	}
	target, err := m.ctrl.SelectChat(ctx)
	if err != nil {
		m.report(err)
		return nil
	}
	m.out.Printf("Selected chat: %s\n", target.Title)

	// 1. The user confirms the chat the header shows.
	answer, err := m.ask(ctx, "Is this the correct chat to message? [y/N] ")
	if err != nil {
		return err
	}
	if !isYes(answer) {
		m.ctrl.ClearChat()
		m.out.Println("Please open another chat and select it again.")
		return nil
	}

	// 2. An optional test message proves the chat accepts input.
	answer, err = m.ask(ctx, "Send a test message to confirm? [y/N] ")
	if err != nil || !isYes(answer) {
		return err
	}
	msg, err := m.ask(ctx, "Test message: ")
	if err != nil {
		return err
	}
	if msg == "" {
		m.out.Println("Test message was empty. No message sent.")
		return nil
	}
	if err := m.ctrl.SendTest(ctx, msg); err != nil {
		m.report(err)
		return nil
	}
	m.out.Println("Test message sent.")
	return nil
}

// -- Messages --

func (m *menu) messagesMenu(ctx context.Context) error {
	q := m.ctrl.Queue()
	for {
		m.out.Printf("\n--- Messages (%d queued) ---\n", q.Len())
		m.out.Println("1. Add a message")
		m.out.Println("2. Add several messages")
		m.out.Println("3. Load messages from a file")
		m.out.Println("4. View queue")
		m.out.Println("5. Clear queue")
		m.out.Println("6. Back")
		choice, err := m.ask(ctx, "Choose an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			msg, err := m.ask(ctx, "Message: ")
			if err != nil {
				return err
			}
			if q.Add(msg) {
				m.out.Printf("Added: %s\n", messages.Preview(msg, 30))
			} else {
				m.out.Println("Nothing added.")
			}
		case "2":
			m.out.Println("Enter one message per line. Leave a line empty to finish.")
			var batch []string
			for {
				line, err := m.ask(ctx, "> ")
				if err != nil {
					return err
				}
				if line == "" {
					break
				}
				batch = append(batch, line)
			}
			m.out.Printf("Added %d message(s).\n", q.AddMany(batch))
		case "3":
			path, err := m.ask(ctx, "Path to the message file: ")
			if err != nil {
				return err
			}
			msgs, err := messages.LoadFile(path)
			if err != nil {
				m.report(err)
				continue
			}
			m.out.Printf("Loaded %d message(s) from %s.\n", q.AddMany(msgs), path)
		case "4":
			m.printQueue()
		case "5":
			q.Clear()
			m.out.Println("Queue cleared.")
		case "6", "":
			return nil
		default:
			m.out.Println("Invalid choice.")
		}
	}
}

func (m *menu) printQueue() {
	msgs := m.ctrl.Queue().Snapshot()
	if len(msgs) == 0 {
		m.out.Println("Queue is empty.")
		return
	}
	for i, msg := range msgs {
		m.out.Printf("%d. %s\n", i+1, messages.Preview(msg, 50))
	}
}

// -- Send --

func (m *menu) sendMenu(ctx context.Context) error {
	for {
		chat := "none"
		if t := m.ctrl.Target(); !t.IsZero() {
			chat = t.Title
		}
		m.out.Printf("\n--- Send (chat: %s) ---\n", chat)
		m.out.Printf("1. Send queued messages (%d)\n", m.ctrl.Queue().Len())
		m.out.Println("2. Send one message several times")
		m.out.Println("3. Back")
		choice, err := m.ask(ctx, "Choose an option: ")
		if err != nil {
			return err
		}

		var h *service.RunHandle
		switch choice {
		case "1":
			h, err = m.ctrl.SendQueue(ctx, progressPrinter(m.out))
		case "2":
			msg, askErr := m.ask(ctx, "Message: ")
			if askErr != nil {
				return askErr
			}
			n, askErr := m.askInt(ctx, "How many times? ")
			if askErr != nil {
				return askErr
			}
			if n <= 0 {
				m.out.Println("Enter a whole number greater than zero.")
				continue
			}
			h, err = m.ctrl.SendRepeated(ctx, msg, n, progressPrinter(m.out))
		case "3", "":
			return nil
		default:
			m.out.Println("Invalid choice.")
			continue
		}
		if err != nil {
			m.report(err)
			continue
		}
		if _, err := watchRun(ctx, h, m.in, m.out); err != nil {
			return err
		}
	}
}

func (m *menu) askInt(ctx context.Context, label string) (int, error) {
	s, err := m.ask(ctx, label)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}

// -- Settings --

func (m *menu) settingsMenu(ctx context.Context) error {
	for {
		d := m.mgr.Current().Dispatch
		m.out.Println("\n--- Settings ---")
		m.out.Printf("1. Minimum delay: %.2fs\n", d.DelayMin)
		m.out.Printf("2. Maximum delay: %.2fs\n", d.DelayMax)
		m.out.Printf("3. Randomize order: %s\n", onOff(d.Randomize))
		m.out.Printf("4. Typing simulation: %s\n", onOff(d.TypingSimulation))
		m.out.Printf("5. Typing speed: %.3fs per character\n", d.TypingSpeed)
		m.out.Printf("6. Repeat count: %d\n", d.RepeatCount)
		m.out.Println("7. Back")
		choice, err := m.ask(ctx, "Choose an option: ")
		if err != nil {
			return err
		}

		var change func(*config.Config)
		switch choice {
		case "1", "2", "5":
			v, ok, err := m.askSeconds(ctx)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			switch choice {
			case "1":
				change = func(c *config.Config) { setDelayMin(&c.Dispatch, v) }
			case "2":
				change = func(c *config.Config) { setDelayMax(&c.Dispatch, v) }
			default:
				change = func(c *config.Config) { c.Dispatch.TypingSpeed = v }
			}
		case "3":
			change = func(c *config.Config) { c.Dispatch.Randomize = !c.Dispatch.Randomize }
		case "4":
			change = func(c *config.Config) { c.Dispatch.TypingSimulation = !c.Dispatch.TypingSimulation }
		case "6":
			n, err := m.askInt(ctx, "Repeat count: ")
			if err != nil {
				return err
			}
			change = func(c *config.Config) { c.Dispatch.RepeatCount = n }
		case "7", "":
			return nil
		default:
			m.out.Println("Invalid choice.")
			continue
		}

		if err := m.mgr.Update(change); err != nil {
			m.report(err)
			continue
		}
		if next := m.mgr.Current().Dispatch; next.DelayMin != d.DelayMin || next.DelayMax != d.DelayMax {
			m.out.Printf("Delay is now %s.\n", delayRange(next.DelayMin, next.DelayMax))
		}
		m.out.Println("Saved.")
	}
}

// askSeconds reads a non-negative number of seconds. ok is false for bad input.
func (m *menu) askSeconds(ctx context.Context) (float64, bool, error) {
	s, err := m.ask(ctx, "New value in seconds: ")
	if err != nil {
		return 0, false, err
	}
	v, convErr := strconv.ParseFloat(s, 64)
	if convErr != nil || v < 0 {
		m.out.Println("Enter a number of seconds, such as 1.5.")
		return 0, false, nil
	}
	return v, true, nil
}

// setDelayMin sets the lower bound and raises the upper one to match when needed,
// so the bounds can be edited one at a time in either order.
func setDelayMin(d *config.DispatchConfig, v float64) {
	d.DelayMin = v
	if d.DelayMax < v {
		d.DelayMax = v
	}
}

// setDelayMax sets the upper bound and lowers the lower one to match when needed.
func setDelayMax(d *config.DispatchConfig, v float64) {
	d.DelayMax = v
	if d.DelayMin > v {
		d.DelayMin = v
	}
}

func delayRange(lo, hi float64) string {
	if lo == hi {
		return strconv.FormatFloat(lo, 'f', -1, 64) + "s"
	}
	return strconv.FormatFloat(lo, 'f', -1, 64) + "-" + strconv.FormatFloat(hi, 'f', -1, 64) + "s"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// -- Presets --

func (m *menu) presetsMenu(ctx context.Context) error {
	store := m.ctrl.Presets()
	if store == nil {
		m.out.Println("Presets are not available.")
		return nil
	}
	for {
		m.out.Println("\n--- Presets ---")
		m.out.Println("1. List presets")
		m.out.Println("2. Load a preset into the queue")
		m.out.Println("3. Save the queue as a preset")
		m.out.Println("4. Delete a preset")
		m.out.Println("5. Restore default presets")
		m.out.Println("6. Back")
		choice, err := m.ask(ctx, "Choose an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			writePresetTable(m.out, store.List())
		case "2":
			ref, err := m.ask(ctx, "Preset name or number: ")
			if err != nil {
				return err
			}
			msgs, err := store.Messages(ref)
			if err != nil {
				m.report(err)
				continue
			}
			m.out.Printf("Loaded %d message(s) into the queue.\n", m.ctrl.Queue().Replace(msgs))
		case "3":
			if err := m.savePreset(ctx, store); err != nil {
				return err
			}
		case "4":
			ref, err := m.ask(ctx, "Preset name or number: ")
			if err != nil {
				return err
			}
			i, err := store.Index(ref)
			if err == nil {
				err = store.Delete(i)
			}
			if err != nil {
				m.report(err)
				continue
			}
			m.out.Println("Preset deleted.")
		case "5":
			answer, err := m.ask(ctx, "This removes every preset you created. Continue? [y/N] ")
			if err != nil {
				return err
			}
			if !isYes(answer) {
				m.out.Println("Cancelled.")
				continue
			}
			if err := store.Reset(); err != nil {
				m.report(err)
				continue
			}
			m.out.Println("Presets restored to the defaults.")
		case "6", "":
			return nil
		default:
			m.out.Println("Invalid choice.")
		}
	}
}

func (m *menu) savePreset(ctx context.Context, store *presets.Store) error {
	msgs := m.ctrl.Queue().Snapshot()
	if len(msgs) == 0 {
		m.out.Println("Queue is empty.")
		return nil
	}
	name, err := m.ask(ctx, "Preset name: ")
	if err != nil {
		return err
	}
	desc, err := m.ask(ctx, "Description (optional): ")
	if err != nil {
		return err
	}
	if err := store.Add(presets.New(name, msgs, desc)); err != nil {
		m.report(err)
		return nil
	}
	m.out.Printf("Saved preset %q with %d message(s).\n", name, len(msgs))
	return nil
}
