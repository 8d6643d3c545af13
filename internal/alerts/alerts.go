// Package alerts forwards refresh failures to chat channels, suppressing
// repeats of the same alert within a cooldown window.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/monumentd/internal/logger"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarn:
		return "warn"
	default:
		return "info"
	}
}

type NotifyFunc func(message string) error

// Fanout sends every message to each notifier, logging individual failures.
func Fanout(notifiers ...NotifyFunc) NotifyFunc {
	return func(message string) error {
		var failed int
		for _, notify := range notifiers {
			if err := notify(message); err != nil {
				logger.Error("alert delivery failed", "error", err)
				failed++
			}
		}
		if failed > 0 && failed == len(notifiers) {
			return fmt.Errorf("all %d notifiers failed", failed)
		}
		return nil
	}
}

type Alerter struct {
	mu        sync.Mutex
	notify    NotifyFunc
	cooldowns map[string]time.Time
	cooldown  time.Duration
}

// New returns an alerter. A nil notify turns every alert into a log line.
func New(notify NotifyFunc, cooldown time.Duration) *Alerter {
	return &Alerter{
		notify:    notify,
		cooldowns: make(map[string]time.Time),
		cooldown:  cooldown,
	}
}

func (a *Alerter) Alert(severity Severity, component, message string, err error) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := component + ":" + message

	if lastSent, ok := a.cooldowns[key]; ok && time.Since(lastSent) < a.cooldown {
		logger.Debug("alert suppressed", "component", component, "message", message)
		return
	}

	var text string
	switch severity {
	case SeverityCritical:
		text = fmt.Sprintf("🚨 monumentd %s: %s", component, message)
	case SeverityWarn:
		text = fmt.Sprintf("⚠️ monumentd %s: %s", component, message)
	default:
		text = fmt.Sprintf("ℹ️ monumentd %s: %s", component, message)
	}

	if err != nil {
		text += fmt.Sprintf("\n\nError: %v", err)
	}

	if a.notify == nil {
		logger.Warn("alert", "component", component, "severity", severity.String(), "message", message)
		return
	}

	if err := a.notify(text); err != nil {
		logger.Error("alert not sent", "component", component, "error", err)
		return
	}

	a.cooldowns[key] = time.Now()
	logger.Info("alert sent", "component", component, "severity", severity.String())
}

func (a *Alerter) Critical(component, message string, err error) {
	a.Alert(SeverityCritical, component, message, err)
}

func (a *Alerter) Warn(component, message string, err error) {
	a.Alert(SeverityWarn, component, message, err)
}
