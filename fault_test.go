package submitq

import "testing"

func TestFaultIgnoresNonFatal(t *testing.T) {
	var f faultState
	f.set(NotReady)
	f.set(Success)
	if f.fatal() {
		t.Error("non-fatal results latched a fault")
	}
	if got := f.last(); got != NotReady {
		t.Errorf("last() = %v, want NotReady", got)
	}
}

func TestFaultFirstFatalWins(t *testing.T) {
	var f faultState
	f.set(DeviceLost)
	f.set(ErrorSubmitFailed)
	if got := f.last(); got != DeviceLost {
		t.Errorf("last() = %v, want the first fatal result DeviceLost", got)
	}
	if !f.fatal() {
		t.Error("fatal() = false after a fatal result")
	}
}

func TestFaultNotClearedBySuccess(t *testing.T) {
	var f faultState
	f.set(ErrorSubmitFailed)
	f.set(Success)
	if got := f.last(); got != ErrorSubmitFailed {
		t.Errorf("last() = %v, want ErrorSubmitFailed", got)
	}
}
