package conversation

import "testing"

func TestStatusRank(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusSent, 0},
		{StatusDelivered, 1},
		{StatusSeen, 2},
		{Status("read"), -1},
		{Status(""), -1},
	}
	for _, tt := range tests {
		if got := tt.status.Rank(); got != tt.want {
			t.Errorf("Rank(%q) = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusSent, StatusDelivered, StatusSeen} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "read", "SENT"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestSenderValid(t *testing.T) {
	if !SenderVisitor.Valid() || !SenderAgentAI.Valid() {
		t.Error("known senders should be valid")
	}
	if Sender("bot").Valid() {
		t.Error("unknown sender should be invalid")
	}
}
