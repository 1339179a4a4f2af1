package trade

import (
	"testing"

	"github.com/jpleclerc/linktrade/pkg/legalize"
)

func TestFormatCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{12345678, "1234 5678"},
		{0, "0000 0000"},
		{42, "0000 0042"},
		{99999999, "9999 9999"},
	}
	for _, tt := range tests {
		if got := FormatCode(tt.code); got != tt.want {
			t.Errorf("FormatCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestWorkItem_DeliverNeverBlocks(t *testing.T) {
	item := NewWorkItem(1, 1, legalize.Payload{}, false, nil)

	item.Deliver(Outcome{Kind: OutcomeCompleted})
	// Nobody drained the first outcome; a second delivery must not block.
	item.Deliver(Outcome{Kind: OutcomeCanceled})

	out := <-item.Done
	if out.Kind != OutcomeCompleted {
		t.Fatalf("outcome = %+v, want the first delivery", out)
	}
}

func TestWorkItem_CancelFlag(t *testing.T) {
	item := NewWorkItem(1, 1, legalize.Payload{}, false, nil)
	if item.Canceled() {
		t.Fatal("fresh item must not be canceled")
	}
	item.MarkCanceled()
	if !item.Canceled() {
		t.Fatal("flag should stick")
	}
}
