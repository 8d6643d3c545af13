package alerts

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type recorder struct {
	messages []string
	err      error
}

func (r *recorder) notify(message string) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

func TestAlertCooldown(t *testing.T) {
	rec := &recorder{}
	a := New(rec.notify, time.Hour)

	a.Critical("refresh", "cycle failed", errors.New("timeout"))
	a.Critical("refresh", "cycle failed", errors.New("timeout"))
	a.Warn("refresh", "other problem", nil)

	if len(rec.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %v", len(rec.messages), rec.messages)
	}
	if !strings.Contains(rec.messages[0], "cycle failed") || !strings.Contains(rec.messages[0], "timeout") {
		t.Errorf("unexpected message %q", rec.messages[0])
	}
}

func TestAlertCooldownExpires(t *testing.T) {
	rec := &recorder{}
	a := New(rec.notify, time.Millisecond)

	a.Critical("refresh", "cycle failed", nil)
	time.Sleep(5 * time.Millisecond)
	a.Critical("refresh", "cycle failed", nil)

	if len(rec.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rec.messages))
	}
}

func TestFailedDeliveryIsRetried(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	a := New(rec.notify, time.Hour)

	a.Critical("refresh", "cycle failed", nil)

	rec.err = nil
	a.Critical("refresh", "cycle failed", nil)

	if len(rec.messages) != 1 {
		t.Fatalf("failed delivery should not start cooldown, got %d messages", len(rec.messages))
	}
}

func TestNilAlerter(t *testing.T) {
	var a *Alerter
	a.Critical("refresh", "cycle failed", nil)

	New(nil, time.Hour).Warn("refresh", "no sink", nil)
}

func TestFanout(t *testing.T) {
	ok := &recorder{}
	broken := &recorder{err: errors.New("down")}

	if err := Fanout(ok.notify, broken.notify)("hello"); err != nil {
		t.Fatalf("one working notifier should be enough: %v", err)
	}
	if len(ok.messages) != 1 {
		t.Errorf("expected delivery to working notifier")
	}

	if err := Fanout(broken.notify)("hello"); err == nil {
		t.Error("expected error when every notifier fails")
	}
}
