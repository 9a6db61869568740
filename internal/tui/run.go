package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/dossier/internal/engine"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the account browser and blocks until the operator quits or ctx
// is cancelled.
func Run(ctx context.Context, session *engine.Session, opts ...Option) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Restore the terminal even if the program dies mid-frame.
	defer func() {
		_, _ = os.Stdout.Write([]byte("\033[?1049l")) // Exit alternate screen
		_, _ = os.Stdout.Write([]byte("\033[?25h"))   // Show cursor
		_, _ = os.Stdout.Write([]byte("\033[m"))      // Reset colors
	}()

	p := tea.NewProgram(newModel(ctx, session, cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
