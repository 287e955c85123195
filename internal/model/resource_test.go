package model

import "testing"

func TestNetwork_TransferTime_IntraResourceIsFree(t *testing.T) {
	n := NewNetwork()
	r1, _ := n.AddResource("R1", 4, 8<<30, 0.02)

	got, err := n.TransferTime(r1, r1, 50e6, 10)
	if err != nil {
		t.Fatalf("TransferTime: %v", err)
	}
	if got != 0 {
		t.Errorf("intra-resource transfer time = %v, want 0", got)
	}
}

func TestNetwork_TransferTime_CrossResource(t *testing.T) {
	n := NewNetwork()
	r1, _ := n.AddResource("R1", 4, 8<<30, 0.02)
	r2, _ := n.AddResource("R2", 4, 8<<30, 0.005)
	n.SetEdge(r1, r2, 100e6, 10, 0)

	// 10 outputs of 50MB each over 100MB/s + 10ms latency.
	got, err := n.TransferTime(r1, r2, 50e6, 10)
	if err != nil {
		t.Fatalf("TransferTime: %v", err)
	}
	want := (50e6*10)/100e6 + 0.01
	if got != want {
		t.Errorf("TransferTime = %v, want %v", got, want)
	}
}

func TestNetwork_TransferTime_MissingEdge(t *testing.T) {
	n := NewNetwork()
	r1, _ := n.AddResource("R1", 4, 8<<30, 0.02)
	r2, _ := n.AddResource("R2", 4, 8<<30, 0.005)

	if _, err := n.TransferTime(r1, r2, 1, 1); err == nil {
		t.Error("expected error for missing network edge")
	}
}

func TestNetwork_TransferCost(t *testing.T) {
	n := NewNetwork()
	r1, _ := n.AddResource("R1", 4, 8<<30, 0.02)
	r2, _ := n.AddResource("R2", 4, 8<<30, 0.005)
	n.SetEdge(r1, r2, 100e6, 10, 1e-9)

	got := n.TransferCost(r1, r2, 50e6, 10)
	want := 1e-9 * 50e6 * 10
	if got != want {
		t.Errorf("TransferCost = %v, want %v", got, want)
	}
	if n.TransferCost(r1, r1, 50e6, 10) != 0 {
		t.Error("intra-resource transfer cost should be 0")
	}
}
