package excel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"qrmenu/model"
)

const (
	SummarySheet = "Summary"
	OrdersSheet  = "Orders"
)

// WriteAnalytics renders the summary and the order log as a workbook.
func WriteAnalytics(w io.Writer, summary *model.AnalyticsSummary, orders []model.Order) error {
	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if _, err := xl.NewSheet(OrdersSheet); err != nil {
		return err
	}

	bold, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSummary(xl, bold, summary); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	if err := writeOrders(xl, bold, orders); err != nil {
		return fmt.Errorf("write orders sheet: %w", err)
	}

	xl.SetActiveSheet(0)
	return xl.Write(w)
}

type sheetWriter struct {
	xl    *excelize.File
	sheet string
	row   int
}

func (s *sheetWriter) add(values ...interface{}) error {
	s.row++
	cellName, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.xl.SetSheetRow(s.sheet, cellName, &values)
}

func (s *sheetWriter) header(style int, values ...interface{}) error {
	if err := s.add(values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row)
	last, _ := excelize.CoordinatesToCellName(len(values), s.row)
	return s.xl.SetCellStyle(s.sheet, first, last, style)
}

func optional(v *float64) interface{} {
	if v == nil {
		return "-"
	}
	return *v
}

func writeSummary(xl *excelize.File, bold int, summary *model.AnalyticsSummary) error {
	s := &sheetWriter{xl: xl, sheet: SummarySheet}

	busiest := interface{}("-")
	if summary.BusiestTable != nil {
		busiest = fmt.Sprintf("%s (%d orders)", summary.BusiestTable.TableID, summary.BusiestTable.Orders)
	}

	rows := [][]interface{}{
		{"Daily orders", summary.DailyOrders},
		{"Satisfaction", optional(summary.Satisfaction)},
		{"Busiest table", busiest},
		{"Avg prep minutes", optional(summary.AvgPrepMinutes)},
	}
	if err := s.header(bold, "Metric", "Value"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.add(row...); err != nil {
			return err
		}
	}

	for _, block := range []struct {
		title string
		sales []model.ItemSales
	}{
		{"Top selling", summary.TopSelling},
		{"Least selling", summary.LeastSelling},
	} {
		s.row++
		if err := s.header(bold, block.title, "Qty"); err != nil {
			return err
		}
		for _, sale := range block.sales {
			if err := s.add(sale.Name, sale.Qty); err != nil {
				return err
			}
		}
	}

	return xl.SetColWidth(SummarySheet, "A", "A", 24)
}

func writeOrders(xl *excelize.File, bold int, orders []model.Order) error {
	s := &sheetWriter{xl: xl, sheet: OrdersSheet}
	if err := s.header(bold, "ID", "Table", "Status", "Total", "Items", "Notes", "Created At", "Served At"); err != nil {
		return err
	}

	for _, order := range orders {
		servedAt := ""
		if order.ServedAt != nil {
			servedAt = order.ServedAt.Format(time.RFC3339)
		}
		err := s.add(
			order.ID,
			order.TableID,
			string(order.Status),
			order.Total,
			describeItems(order.Items),
			order.Notes,
			order.CreatedAt.Format(time.RFC3339),
			servedAt,
		)
		if err != nil {
			return err
		}
	}

	return xl.SetColWidth(OrdersSheet, "A", "A", 38)
}

func describeItems(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}
