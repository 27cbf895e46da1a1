package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"finpro/internal/api"
	"finpro/internal/tui"
)

func main() {
	_ = godotenv.Load()

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	// A corrupt session file is not fatal; start at the login view.
	session, err := tui.LoadSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not restore session:", err)
	}

	p := tea.NewProgram(tui.New(api.New(apiURL), session))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
