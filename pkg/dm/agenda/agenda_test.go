package agenda

import "testing"

func TestWalksScriptInOrder(t *testing.T) {
	m := New([]Step{
		{Act: "greeting", ExpectAct: "greeting"},
		{Act: "request_info", ExpectAct: "provide_info"},
		{Act: "goodbye"},
	})

	act, _ := m.NextAct()
	if act != "greeting" {
		t.Fatalf("expected greeting, got %s", act)
	}

	m.ProcessAct("greeting", nil)
	act, _ = m.NextAct()
	if act != "request_info" {
		t.Fatalf("expected request_info, got %s", act)
	}

	m.ProcessAct("provide_info", nil)
	act, _ = m.NextAct()
	if act != "goodbye" {
		t.Fatalf("expected goodbye, got %s", act)
	}
}

func TestFuzzyMatchAcceptsNoisyReply(t *testing.T) {
	m := New([]Step{
		{Act: "greeting", ExpectAct: "greeting"},
		{Act: "goodbye"},
	})
	_, _ = m.NextAct()
	m.ProcessAct("greting", nil) // noisy ASR output, one letter dropped
	act, _ := m.NextAct()
	if act != "goodbye" {
		t.Fatalf("expected fuzzy match to advance past greeting, got %s", act)
	}
}

func TestExhaustedScriptReturnsGoodbye(t *testing.T) {
	m := New([]Step{{Act: "greeting"}})
	_, _ = m.NextAct()
	act, _ := m.NextAct()
	if act != "goodbye" {
		t.Fatalf("expected goodbye after script exhausted, got %s", act)
	}
}
