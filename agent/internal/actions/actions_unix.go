//go:build linux || darwin

package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"device-tracker/agent/internal/logger"
)

type platformActions struct{}

func (platformActions) ShowMessage(title, body string) (string, error) {
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf(`display dialog %q with title %q buttons {"OK"} default button "OK"`, body, title)
		if err := run(5*time.Second, "osascript", "-e", script); err == nil {
			return "message displayed via osascript", nil
		}
	} else {
		if err := run(5*time.Second, "notify-send", title, body); err == nil {
			return "message displayed via notify-send", nil
		}
		if err := run(5*time.Second, "zenity", "--info", "--title="+title, "--text="+body); err == nil {
			return "message displayed via zenity", nil
		}
	}
	logger.Warnf("ALERT - %s: %s", title, body)
	fmt.Fprintf(os.Stderr, "\n==== TRACKER ALERT: %s ====\n%s\n====\n", title, body)
	return "message displayed in console", nil
}

func (platformActions) PlayChime(repeat int) (string, error) {
	if repeat <= 0 {
		repeat = 3
	}
	for i := 0; i < repeat; i++ {
		fmt.Print("\a")
		_ = run(2*time.Second, "tput", "bel")
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Sprintf("played %d beeps", repeat), nil
}

func (platformActions) LockScreen() (string, error) {
	var attempts [][]string
	if runtime.GOOS == "darwin" {
		attempts = [][]string{{"pmset", "displaysleepnow"}}
	} else {
		attempts = [][]string{
			{"loginctl", "lock-session"},
			{"gnome-screensaver-command", "--lock"},
			{"xdg-screensaver", "lock"},
			{"xscreensaver-command", "-lock"},
		}
	}
	for _, cmd := range attempts {
		if err := run(2*time.Second, cmd[0], cmd[1:]...); err == nil {
			return "screen locked using " + cmd[0], nil
		}
	}
	return "", fmt.Errorf("no screen lock method available")
}

func run(d time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run()
}
