package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/service"
	"github.com/schollz/progressbar/v3"
)

var _ service.Progress = (*BusyIndicator)(nil)

// NewExportProgress returns a progress bar over total documents and a
// ProgressFunc that advances it.
func NewExportProgress(w io.Writer, total int) (*progressbar.ProgressBar, document.ProgressFunc) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Generating documents...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	report := func(done, _ int, accountKey string) {
		bar.Describe(fmt.Sprintf("[cyan][bold]Generating documents...[reset] %s", accountKey))
		if err := bar.Set(done); err != nil {
			slog.Debug("Failed to update progress bar", "error", err)
		}
	}
	return bar, report
}

// BusyIndicator shows a spinner while a session operation is busy.
type BusyIndicator struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	stop   chan struct{}
	done   chan struct{}
	mu     sync.Mutex
}

// NewBusyIndicator creates a spinner that renders to w.
func NewBusyIndicator(w io.Writer) *BusyIndicator {
	return &BusyIndicator{writer: w}
}

// Busy starts the spinner with message, or stops and clears it.
func (b *BusyIndicator) Busy(busy bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !busy {
		b.halt()
		return
	}
	description := fmt.Sprintf("[cyan]%s...[reset]", message)
	if b.bar != nil {
		b.bar.Describe(description)
		return
	}

	b.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(b.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
	if err := b.bar.RenderBlank(); err != nil {
		slog.Debug("Failed to render spinner", "error", err)
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go spin(b.bar, b.stop, b.done)
}

func (b *BusyIndicator) halt() {
	if b.bar == nil {
		return
	}
	close(b.stop)
	<-b.done
	if err := b.bar.Finish(); err != nil {
		slog.Debug("Failed to clear spinner", "error", err)
	}
	b.bar = nil
}

func spin(bar *progressbar.ProgressBar, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}
