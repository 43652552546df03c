package journal

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

type summaryRow struct {
	ContractID string
	BuyQty     int
	BuyValue   float64
	SellQty    int
	SellValue  float64
}

func summaryCSVPath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "summary", d+".csv")
}

// SummarizeDay aggregates the day's filled orders per contract into a
// CSV. Returns the written path, or "" when there is nothing to report.
func SummarizeDay(t time.Time) (string, error) {
	inPath := ordersFilepath(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows := map[string]*summaryRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e OrderEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if e.Status != "FILLED" {
			continue
		}
		row := rows[e.ContractID]
		if row == nil {
			row = &summaryRow{ContractID: e.ContractID}
			rows[e.ContractID] = row
		}
		if e.Side == "BUY" {
			row.BuyQty += e.Qty
			row.BuyValue += float64(e.Qty) * e.Price
		}
		if e.Side == "SELL" {
			row.SellQty += e.Qty
			row.SellValue += float64(e.Qty) * e.Price
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	outPath := summaryCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	if err := w.Write([]string{"contract", "buy_qty", "buy_value", "sell_qty", "sell_value", "net_flow"}); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := rows[id]
		rec := []string{
			r.ContractID,
			strconv.Itoa(r.BuyQty),
			strconv.FormatFloat(r.BuyValue, 'f', 2, 64),
			strconv.Itoa(r.SellQty),
			strconv.FormatFloat(r.SellValue, 'f', 2, 64),
			strconv.FormatFloat(r.SellValue-r.BuyValue, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

// SummarizeToday summarizes the current UTC day.
func SummarizeToday() (string, error) {
	return SummarizeDay(time.Now().UTC())
}
