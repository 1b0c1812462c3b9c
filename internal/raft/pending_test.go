package raft

import "testing"

func TestPendingResponseSendRecv(t *testing.T) {
	p := NewPendingResponse[AddLearnerResponse, *AddLearnerError]()
	p.Send(AddLearnerResponse{Matched: logID(1, 1)}, nil)

	resp, err, ok := p.Recv()
	if !ok {
		t.Fatalf("expected ok=true after Send")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Matched == nil || resp.Matched.Index != 1 {
		t.Fatalf("expected matched (1,1), got %v", resp.Matched)
	}
}

func TestPendingResponseSecondSendIsNoop(t *testing.T) {
	p := NewPendingResponse[AddLearnerResponse, *AddLearnerError]()
	p.Send(AddLearnerResponse{Matched: logID(1, 1)}, nil)
	p.Send(AddLearnerResponse{Matched: logID(9, 9)}, &AddLearnerError{Exists: func() *NodeId { id := NodeId(1); return &id }()})

	resp, err, ok := p.Recv()
	if !ok || err != nil {
		t.Fatalf("expected the first Send to win, got resp=%v err=%v ok=%v", resp, err, ok)
	}
	if resp.Matched.Index != 1 {
		t.Fatalf("expected the first Send's value to be observed, got %v", resp.Matched)
	}
}

func TestPendingResponseCancelIsObservedAsCancellation(t *testing.T) {
	p := NewPendingResponse[AddLearnerResponse, *AddLearnerError]()
	p.Cancel()

	_, _, ok := p.Recv()
	if ok {
		t.Fatalf("expected ok=false to signal cancellation")
	}
}

func TestPendingResponseCancelAfterSendIsNoop(t *testing.T) {
	p := NewPendingResponse[AddLearnerResponse, *AddLearnerError]()
	p.Send(AddLearnerResponse{Matched: logID(1, 1)}, nil)
	p.Cancel()

	resp, err, ok := p.Recv()
	if !ok || err != nil {
		t.Fatalf("expected the Send to still win, got resp=%v err=%v ok=%v", resp, err, ok)
	}
	if resp.Matched.Index != 1 {
		t.Fatalf("expected the Send's value to be observed, got %v", resp.Matched)
	}
}

func TestPendingResponseSendAfterCancelIsNoop(t *testing.T) {
	p := NewPendingResponse[AddLearnerResponse, *AddLearnerError]()
	p.Cancel()
	p.Send(AddLearnerResponse{Matched: logID(1, 1)}, nil)

	_, _, ok := p.Recv()
	if ok {
		t.Fatalf("expected the Cancel to still win, got ok=true")
	}
}
