/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package ledger

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary   = "Summary"
	sheetOrders    = "Orders"
	sheetPayments  = "Payments"
	sheetStatement = "Statement"

	// Built-in Excel number format "#,##0.00".
	moneyNumFmt = 4
)

// Filename suggests a download name for a leader's workbook.
func Filename(v View, now time.Time) string {
	name := v.Leader.Name
	if name == "" {
		name = "leader"
	}
	return fmt.Sprintf("ledger_%s_%s.xlsx", slug(name), now.Format("20060102"))
}

// WriteXLSX writes the view as a workbook with summary, orders, payments and
// statement sheets.
func WriteXLSX(w io.Writer, v View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{sheetOrders, sheetPayments, sheetStatement} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	sw := sheetWriter{f: f, bold: bold, money: money}

	sw.rows(sheetSummary, []string{"Field", "Value"}, [][]any{
		{"Leader", v.Leader.Name},
		{"Type", string(v.Leader.Type)},
		{"Contact", v.Leader.Contact},
		{"Opening balance", amount(v.OpeningBalance)},
		{"Total orders", v.Summary.TotalOrders},
		{"Total order amount", amount(v.Summary.TotalOrderAmount)},
		{"Total paid", amount(v.Summary.TotalPaid)},
		{"Total outstanding", amount(v.Summary.TotalOutstanding)},
		{"Unallocated payments", amount(v.Summary.UnallocatedTotal)},
		{"Net outstanding", amount(v.Summary.NetOutstanding)},
	}, "B")

	var orderRows [][]any
	for _, e := range v.Orders {
		orderRows = append(orderRows, []any{
			e.Order.OrderNumber, dateCell(e.Order.OrderDate), string(e.Status),
			amount(e.Order.TotalAmount), amount(e.PaidAmount), amount(e.Balance), len(e.Payments),
		})
	}
	sw.rows(sheetOrders, []string{"Order", "Date", "Status", "Total", "Paid", "Balance", "Payments"}, orderRows, "D", "E", "F")

	var paymentRows [][]any
	for _, e := range v.Orders {
		for _, p := range e.Payments {
			paymentRows = append(paymentRows, []any{
				dateCell(p.PaymentDate), e.Order.OrderNumber, string(p.Method), p.ReferenceNumber, amount(p.Amount),
			})
		}
	}
	for _, p := range v.UnallocatedPayments {
		paymentRows = append(paymentRows, []any{
			dateCell(p.PaymentDate), "Unallocated", string(p.Method), p.ReferenceNumber, amount(p.Amount),
		})
	}
	sw.rows(sheetPayments, []string{"Date", "Order", "Method", "Reference", "Amount"}, paymentRows, "E")

	var statementRows [][]any
	for _, line := range v.Statement() {
		statementRows = append(statementRows, []any{
			dateCell(line.Date), line.Description, line.Reference,
			amount(line.Debit), amount(line.Credit), amount(line.Balance),
		})
	}
	sw.rows(sheetStatement, []string{"Date", "Description", "Reference", "Debit", "Credit", "Balance"}, statementRows, "D", "E", "F")

	if sw.err != nil {
		return sw.err
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f     *excelize.File
	bold  int
	money int
	err   error
}

// rows writes a header and data rows to sheet and applies the money format
// to moneyCols. The first error sticks.
func (sw *sheetWriter) rows(sheet string, header []string, rows [][]any, moneyCols ...string) {
	if sw.err != nil {
		return
	}
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		sw.err = fmt.Errorf("failed to write %s header: %w", sheet, err)
		return
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := sw.f.SetCellStyle(sheet, "A1", lastCol+"1", sw.bold); err != nil {
		sw.err = fmt.Errorf("failed to style %s header: %w", sheet, err)
		return
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.f.SetSheetRow(sheet, cell, &row); err != nil {
			sw.err = fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
			return
		}
	}

	if len(rows) > 0 {
		for _, col := range moneyCols {
			last := fmt.Sprintf("%s%d", col, len(rows)+1)
			if err := sw.f.SetCellStyle(sheet, col+"2", last, sw.money); err != nil {
				sw.err = fmt.Errorf("failed to style %s column %s: %w", sheet, col, err)
				return
			}
		}
	}
	if err := sw.f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		sw.err = fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func dateCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case len(out) > 0 && out[len(out)-1] != '-':
			out = append(out, '-')
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "leader"
	}
	return string(out)
}
