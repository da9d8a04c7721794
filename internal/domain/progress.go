package domain

import (
	"math"
	"time"
)

type ChannelProgress struct {
	Queued     int `json:"queued"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func (p *ChannelProgress) add(status DeliveryStatus, n int) {
	switch status {
	case StatusQueued:
		p.Queued += n
	case StatusSent:
		p.Sent += n
	case StatusFailed:
		p.Failed += n
	}
}

func (p *ChannelProgress) finish() {
	p.Processed = p.Sent + p.Failed
	p.Total = p.Queued + p.Processed
	p.Percentage = percentage(p.Processed, p.Total)
}

type ProgressReport struct {
	ItemType    ItemType                    `json:"itemType"`
	ItemID      string                      `json:"itemId"`
	ByChannel   map[Channel]ChannelProgress `json:"byChannel"`
	Global      ChannelProgress             `json:"global"`
	Percentage  int                         `json:"percentage"`
	IsComplete  bool                        `json:"isComplete"`
	StartedAt   *time.Time                  `json:"startedAt"`
	CompletedAt *time.Time                  `json:"completedAt"`
}

// BuildProgressReport folds grouped ledger counts into a report. Every
// channel of the fixed set is present, zeroed when it has no rows.
func BuildProgressReport(itemType ItemType, itemID string, counts []ChannelStatusCount, bounds LedgerBounds) ProgressReport {
	byChannel := make(map[Channel]ChannelProgress, len(Channels))
	for _, c := range Channels {
		byChannel[c] = ChannelProgress{}
	}

	for _, row := range counts {
		p, ok := byChannel[row.Channel]
		if !ok {
			continue
		}
		p.add(row.Status, int(row.Count))
		byChannel[row.Channel] = p
	}

	var global ChannelProgress
	for _, c := range Channels {
		p := byChannel[c]
		p.finish()
		byChannel[c] = p

		global.Queued += p.Queued
		global.Sent += p.Sent
		global.Failed += p.Failed
	}
	global.finish()

	report := ProgressReport{
		ItemType:   itemType,
		ItemID:     itemID,
		ByChannel:  byChannel,
		Global:     global,
		Percentage: global.Percentage,
		IsComplete: global.Total > 0 && global.Queued == 0,
		StartedAt:  bounds.FirstCreatedAt,
	}
	if report.IsComplete {
		report.CompletedAt = bounds.LastUpdatedAt
	}

	return report
}

func percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
