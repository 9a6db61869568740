package tui

import (
	"github.com/Veraticus/dossier/internal/engine"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/model"
)

// Results of long operations. Each one ends the busy state.
type refreshedMsg struct {
	err error
}

type loadedMsg struct {
	err    error
	result ingest.LoadResult
}

type exportedMsg struct {
	err    error
	report engine.Report
}

type detailsLoadedMsg struct {
	err     error
	records []model.DetailRecord
	account model.AccountSummary
}
