package tui

import (
	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/search"
)

// SnapshotMsg carries a session state change into the program.
type SnapshotMsg search.Snapshot

// fetchDoneMsg reports the outcome of a search or load-more command.
type fetchDoneMsg struct {
	err error
}

// actionDoneMsg reports the outcome of the finalising channel call.
type actionDoneMsg struct {
	channel *domain.Channel
	err     error
}
