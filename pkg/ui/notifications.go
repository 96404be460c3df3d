package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification.
type NotificationSender interface {
	Send(title, message string) error
}

// CommandSender runs an external notifier program.
type CommandSender struct {
	build func(title, message string) *exec.Cmd
}

func (c *CommandSender) Send(title, message string) error {
	return c.build(title, message).Run()
}

// PlatformSender returns the notifier for the running OS, or nil.
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &CommandSender{build: func(title, message string) *exec.Cmd {
			return exec.Command("notify-send", title, message)
		}}
	case "darwin":
		return &CommandSender{build: func(title, message string) *exec.Cmd {
			script := fmt.Sprintf("display notification %q with title %q", message, title)
			return exec.Command("osascript", "-e", script)
		}}
	default:
		return nil
	}
}

// Notifier prints a message and, when a sender is set, also raises a desktop
// notification. Send failures are ignored.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a notifier. A nil sender only prints.
func NewNotifier(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

func (n *Notifier) SendNotification(title, message string) {
	printTo(false, fmt.Sprintf("\n%s: %s\n", Cyan(title), Yellow(message)))
	n.send(title, message)
}

func (n *Notifier) SendError(title, message string) {
	printTo(true, fmt.Sprintf("\n%s: %s\n", Red(title), Red(message)))
	n.send(title, message)
}

func (n *Notifier) SendSuccess(title, message string) {
	printTo(false, fmt.Sprintf("\n%s: %s\n", Green(title), Green(message)))
	n.send(title, message)
}
