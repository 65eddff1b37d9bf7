package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
)

// HealthSource returns a user's blood-pressure history as the JSON document
// the analysis prompt embeds verbatim.
type HealthSource interface {
	Fetch(ctx context.Context, userID string) (string, error)
}

// ParseHealthHistory decodes a HealthSource document.
func ParseHealthHistory(raw string) (model.HealthHistory, error) {
	var h model.HealthHistory
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return model.HealthHistory{}, fmt.Errorf("decode health history: %w", err)
	}
	return h, nil
}

func encodeHistory(userID string, records []model.HealthRecord) (string, error) {
	if records == nil {
		records = []model.HealthRecord{}
	}
	b, err := json.Marshal(model.HealthHistory{Status: "success", UserID: userID, History: records})
	if err != nil {
		return "", fmt.Errorf("encode health history: %w", err)
	}
	return string(b), nil
}

// StaticHealthSource serves a fixed history for every user.
type StaticHealthSource struct {
	records []model.HealthRecord
}

// NewStaticHealthSource uses records, or the bundled 2025 readings when nil.
func NewStaticHealthSource(records []model.HealthRecord) *StaticHealthSource {
	if records == nil {
		records = readings2025
	}
	return &StaticHealthSource{records: records}
}

func (s *StaticHealthSource) Fetch(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return encodeHistory(userID, s.records)
}

var readings2025 = []model.HealthRecord{
	{Date: "2025-01-05", Systolic: 118, Diastolic: 78, Pulse: 72},
	{Date: "2025-01-20", Systolic: 122, Diastolic: 80, Pulse: 75},
	{Date: "2025-02-12", Systolic: 125, Diastolic: 82, Pulse: 68},
	{Date: "2025-02-25", Systolic: 120, Diastolic: 79, Pulse: 70},
	{Date: "2025-03-08", Systolic: 119, Diastolic: 77, Pulse: 74},
	{Date: "2025-03-22", Systolic: 121, Diastolic: 81, Pulse: 71},
	{Date: "2025-04-10", Systolic: 124, Diastolic: 83, Pulse: 73},
	{Date: "2025-04-28", Systolic: 118, Diastolic: 76, Pulse: 69},
	{Date: "2025-05-15", Systolic: 117, Diastolic: 75, Pulse: 72},
	{Date: "2025-05-30", Systolic: 120, Diastolic: 78, Pulse: 76},
	{Date: "2025-06-11", Systolic: 122, Diastolic: 80, Pulse: 70},
	{Date: "2025-06-25", Systolic: 126, Diastolic: 84, Pulse: 74},
	{Date: "2025-07-04", Systolic: 123, Diastolic: 81, Pulse: 75},
	{Date: "2025-07-19", Systolic: 121, Diastolic: 79, Pulse: 72},
	{Date: "2025-08-05", Systolic: 119, Diastolic: 78, Pulse: 71},
	{Date: "2025-08-20", Systolic: 120, Diastolic: 80, Pulse: 73},
	{Date: "2025-09-12", Systolic: 122, Diastolic: 82, Pulse: 68},
	{Date: "2025-09-28", Systolic: 118, Diastolic: 77, Pulse: 70},
	{Date: "2025-10-03", Systolic: 125, Diastolic: 85, Pulse: 77},
	{Date: "2025-10-21", Systolic: 121, Diastolic: 80, Pulse: 74},
	{Date: "2025-11-09", Systolic: 123, Diastolic: 81, Pulse: 72},
	{Date: "2025-11-24", Systolic: 119, Diastolic: 78, Pulse: 70},
	{Date: "2025-12-10", Systolic: 126, Diastolic: 83, Pulse: 75},
	{Date: "2025-12-25", Systolic: 122, Diastolic: 80, Pulse: 71},
}

type bpReading struct {
	bun.BaseModel `bun:"table:bp_readings"`

	UserID     string    `bun:"user_id"`
	MeasuredOn time.Time `bun:"measured_on"`
	Systolic   int       `bun:"systolic"`
	Diastolic  int       `bun:"diastolic"`
	Pulse      int       `bun:"pulse"`
}

// PostgresHealthSource reads readings from the bp_readings table.
type PostgresHealthSource struct {
	db bun.IDB
}

func NewPostgresHealthSource(db bun.IDB) *PostgresHealthSource {
	return &PostgresHealthSource{db: db}
}

func (s *PostgresHealthSource) Fetch(ctx context.Context, userID string) (string, error) {
	var rows []bpReading
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("measured_on ASC").
		Scan(ctx)
	if err != nil {
		return "", errx.WrapPostgres(err)
	}

	records := make([]model.HealthRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, model.HealthRecord{
			Date:      r.MeasuredOn.Format(time.DateOnly),
			Systolic:  r.Systolic,
			Diastolic: r.Diastolic,
			Pulse:     r.Pulse,
		})
	}
	return encodeHistory(userID, records)
}
