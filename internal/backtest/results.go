package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveResults writes the trade log and equity curve as CSV files under dir,
// creating it when needed.
func SaveResults(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	tradeRows := [][]string{{
		"Trade#", "ID", "Direction", "Volume", "Entry", "EntryTime",
		"Exit", "ExitTime", "StopLoss", "TakeProfit", "PnL", "CloseReason",
	}}
	for i, t := range res.Trades {
		tradeRows = append(tradeRows, []string{
			fmt.Sprintf("%d", i+1),
			t.ID,
			t.Direction.String(),
			fmt.Sprintf("%.2f", t.Volume),
			fmt.Sprintf("%.5f", t.EntryPrice),
			t.EntryTime.Format(time.RFC3339),
			fmt.Sprintf("%.5f", t.ExitPrice),
			t.ExitTime.Format(time.RFC3339),
			fmt.Sprintf("%.5f", t.StopLoss),
			fmt.Sprintf("%.5f", t.TakeProfit),
			fmt.Sprintf("%.2f", t.RealizedPnL),
			string(t.CloseReason),
		})
	}

	equityRows := [][]string{{"Step", "Equity"}}
	for i, eq := range res.EquityCurve {
		equityRows = append(equityRows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", eq),
		})
	}

	if err := saveCSV(filepath.Join(dir, "backtest_trades.csv"), tradeRows); err != nil {
		return err
	}
	return saveCSV(filepath.Join(dir, "backtest_equity.csv"), equityRows)
}

func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create csv file %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv file %s: %w", filename, err)
		}
	}
	return nil
}
