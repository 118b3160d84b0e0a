/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	htmltemplate "html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/ledger"
)

func chartValue(d decimal.Decimal) float64 {
	return d.Round(currency.Places).InexactFloat64()
}

// renderDashboardChart draws the money totals of the dashboard as bars.
func renderDashboardChart(stats *api.DashboardStats, pref currency.Preference) (htmltemplate.HTML, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:   "100%",
			Height:  "320px",
			ChartID: "dashboard_totals",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  pref.Code,
			Scale: opts.Bool(true),
		}),
	)

	bar.SetXAxis([]string{"Revenue", "Payments", "Expenses", "Net Profit"}).
		AddSeries("Totals", []opts.BarData{
			{Value: chartValue(stats.TotalRevenue)},
			{Value: chartValue(stats.TotalPayments)},
			{Value: chartValue(stats.TotalExpenses)},
			{Value: chartValue(stats.NetProfit)},
		})

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}
	return htmltemplate.HTML(buf.String()), nil
}

// renderLedgerChart stacks paid against outstanding for every order of a
// leader, oldest first.
func renderLedgerChart(view ledger.View, pref currency.Preference) (htmltemplate.HTML, error) {
	if len(view.Orders) == 0 {
		return "", nil
	}

	labels := make([]string, 0, len(view.Orders))
	paid := make([]opts.BarData, 0, len(view.Orders))
	outstanding := make([]opts.BarData, 0, len(view.Orders))
	for _, entry := range view.Orders {
		labels = append(labels, entry.Order.OrderNumber)
		paid = append(paid, opts.BarData{Value: chartValue(entry.PaidAmount)})
		outstanding = append(outstanding, opts.BarData{Value: chartValue(entry.Balance)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:   "100%",
			Height:  "320px",
			ChartID: "ledger_orders",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{
				Rotate:      35,
				HideOverlap: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: pref.Code,
		}),
	)

	bar.SetXAxis(labels).
		AddSeries("Paid", paid, charts.WithBarChartOpts(opts.BarChart{Stack: "total"})).
		AddSeries("Outstanding", outstanding, charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}
	return htmltemplate.HTML(buf.String()), nil
}
