package journal

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestAppendAndSummarize(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	entries := []OrderEntry{
		{ContractID: "FED-CUT", OutcomeID: "YES", Side: "BUY", Qty: 100, Price: 0.60, Status: "FILLED"},
		{ContractID: "FED-CUT", OutcomeID: "YES", Side: "SELL", Qty: 40, Price: 0.70, Status: "FILLED"},
		{ContractID: "FED-CUT", OutcomeID: "YES", Side: "BUY", Qty: 50, Price: 0.55, Status: "REJECTED", Reason: "insufficient_liquidity"},
	}
	for _, e := range entries {
		if err := AppendOrder(e); err != nil {
			t.Fatalf("AppendOrder failed: %v", err)
		}
	}

	p, err := SummarizeDay(time.Now().UTC())
	if err != nil {
		t.Fatalf("SummarizeDay failed: %v", err)
	}
	if p == "" {
		t.Fatal("expected a summary file")
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)
	if !strings.Contains(body, "FED-CUT,100,60.00,40,28.00") {
		t.Errorf("rejected orders must not count toward the summary, got:\n%s", body)
	}
}

func TestSummarizeEmptyDay(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	p, err := SummarizeDay(time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "" {
		t.Errorf("expected no summary for an empty day, got %s", p)
	}
}
