package main

import (
	"flag"
	"fmt"
	"os"

	"device-tracker/cmd/trackerctl/ui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:9400", "Backend base URL")
	flag.Parse()

	p := tea.NewProgram(ui.NewRootModel(*server), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "trackerctl:", err)
		os.Exit(1)
	}
}
