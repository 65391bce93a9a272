package rtest

import (
	"testing"
	"time"
)

// ScaleMs is the base duration for "soon" helpers.
// 5 seconds is far beyond any expected wait in these tests,
// while still failing a hung test before the package timeout.
const ScaleMs = 5000

// ReceiveSoon returns a value received from ch,
// or fails the test if nothing arrives within the timeout.
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(ScaleMs * time.Millisecond)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatal("timed out waiting to receive")
		panic("unreachable")
	}
}

// SendSoon sends v on ch,
// or fails the test if the send does not complete within the timeout.
func SendSoon[T any](t *testing.T, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(ScaleMs * time.Millisecond)
	defer timer.Stop()

	select {
	case ch <- v:
	case <-timer.C:
		t.Fatal("timed out waiting to send")
	}
}

// IsSending asserts that ch has a value immediately available
// and returns it.
// For a closed signaling channel this is the zero value.
func IsSending[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	default:
		t.Fatal("expected channel to be sending, but it was not ready")
		panic("unreachable")
	}
}

// NotSending asserts that ch has no value immediately available.
func NotSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("expected channel not to be sending, but a receive succeeded")
	default:
	}
}
