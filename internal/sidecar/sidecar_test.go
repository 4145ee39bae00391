package sidecar_test

import (
	"testing"
	"time"

	"github.com/whiskdesk/whisk/internal/sidecar"
)

// eventRecorder forwards listener callbacks onto channels so tests can wait
// for events fired from the manager's reader goroutine.
type eventRecorder struct {
	ready   chan struct{}
	tokens  chan []string
	errs    chan string
	stopped chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{
		ready:   make(chan struct{}, 4),
		tokens:  make(chan []string, 4),
		errs:    make(chan string, 4),
		stopped: make(chan struct{}, 4),
	}
}

func (r *eventRecorder) Ready()   { r.ready <- struct{}{} }
func (r *eventRecorder) Stopped() { r.stopped <- struct{}{} }

func (r *eventRecorder) TokensReceived(ts []string, _ string) { r.tokens <- ts }
func (r *eventRecorder) Error(msg string)                     { r.errs <- msg }

func TestCommandsFailSoftWithoutProcess(t *testing.T) {
	m := sidecar.NewManager("", sidecar.ActionVideoGeneration)
	if m.RequestTokens(3, "IMAGE_GENERATION") {
		t.Error("RequestTokens must return false with no process")
	}
	if m.Ping() {
		t.Error("Ping must return false with no process")
	}
	if m.RestartBrowser() {
		t.Error("RestartBrowser must return false with no process")
	}
	if m.Running() {
		t.Error("Running must be false with no process")
	}
}

func TestStartWithoutPrerequisitesReportsErrorAndStops(t *testing.T) {
	// The test's working directory has neither a pucaptcha/ nor a captcha/
	// script, so startup must fail with exactly one Error followed by Stopped.
	m := sidecar.NewManager("", sidecar.ActionVideoGeneration)
	rec := newEventRecorder()
	m.AddListener(rec)

	m.Start()

	select {
	case <-rec.errs:
	case <-time.After(5 * time.Second):
		t.Fatal("no Error notification from failed startup")
	}
	select {
	case <-rec.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("no Stopped notification after failed startup")
	}
	select {
	case msg := <-rec.errs:
		t.Errorf("extra Error notification: %q", msg)
	default:
	}
	if m.Running() {
		t.Error("Running must be false after failed startup")
	}
}
