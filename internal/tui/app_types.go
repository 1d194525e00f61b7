package tui

import "posadmin/internal/bulk"

type screen int

const (
	screenList screen = iota
	screenDetail
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeInline
	modeConfirm
)

// Results of work run off the UI goroutine. page indexes appModel.pages.

type loadedMsg struct {
	page int
	err  error
}

type savedMsg struct {
	page int
	err  error
}

type bulkDoneMsg struct {
	page int
	op   string
	out  bulk.Outcome
}

// bannerDoneMsg closes the banner of page if it is still showing seq.
type bannerDoneMsg struct {
	page int
	seq  uint64
}
