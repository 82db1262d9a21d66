package services

import (
	"fmt"
	"io"
	"time"

	"sponup-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Rewards"

var reportHeader = []interface{}{
	"Athlete", "Status", "Submitted at", "Images", "Delivery method",
	"Redemption code", "Tracking number", "Carrier", "Estimated delivery", "Notes", "Rewarded at",
}

// WriteRewardReport writes one row per submission of challenge to w as an
// XLSX workbook
func WriteRewardReport(w io.Writer, challenge *models.Challenge, items []*ReviewItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	if err := f.SetSheetRow(reportSheet, "A1", &[]interface{}{challenge.Title, challenge.Reward}); err != nil {
		return fmt.Errorf("failed to write report title: %w", err)
	}
	if err := f.SetSheetRow(reportSheet, "A3", &reportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create report style: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A1", "K1", bold); err != nil {
		return fmt.Errorf("failed to style report title: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A3", "K3", bold); err != nil {
		return fmt.Errorf("failed to style report header: %w", err)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return err
		}
		row := reportRow(item)
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(reportSheet, "A", "K", 20); err != nil {
		return fmt.Errorf("failed to size report columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func reportRow(item *ReviewItem) []interface{} {
	row := []interface{}{
		item.AthleteName,
		string(item.Status),
		item.SubmittedAt.UTC().Format(time.RFC3339),
		len(item.ImageURLs),
	}

	d := item.Delivery
	if d == nil {
		d = &models.Delivery{}
	}
	row = append(row,
		string(d.Method),
		deref(d.RedemptionCode),
		deref(d.TrackingNumber),
		deref(d.Carrier),
		formatTime(d.EstimatedDeliveryDate),
		deref(d.Notes),
		formatTime(item.RewardedAt),
	)
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
