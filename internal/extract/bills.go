package extract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aniketwaliyan/tap-fastly/internal/singer"
)

const billEndTimeLayout = "2006-01-02T15:04:05Z"

func (s *Syncer) syncBills(ctx context.Context, schema json.RawMessage) error {
	start, ok, err := s.state.Stream(Bills.String()).Time("start_time")
	if err != nil {
		return err
	}
	if !ok {
		start = s.startDate
	}
	return s.SyncBillsPeriod(ctx, schema, start, s.now())
}

// SyncBillsPeriod emits the bill of every calendar month from start to end,
// inclusive. Each bill is written as soon as it arrives and the start_time
// bookmark advances to its period end.
func (s *Syncer) SyncBillsPeriod(ctx context.Context, schema json.RawMessage, start, end time.Time) error {
	log := s.logger.With("stream", Bills.String())
	if err := s.writeSchema(ctx, Bills, schema); err != nil {
		return err
	}

	emitted := 0
	for _, at := range months(start, end) {
		if err := ctx.Err(); err != nil {
			return err
		}
		bill := s.client.Bill(ctx, at)
		if len(bill) == 0 {
			log.Warn("no bill for month, skipping", "month", at.Format("2006-01"))
			continue
		}
		if err := s.writeRecord(ctx, Bills, singer.Record(bill)); err != nil {
			return err
		}
		emitted++

		raw, _ := bill.EndTime()
		periodEnd, err := time.Parse(billEndTimeLayout, raw)
		if err != nil {
			log.Error("unparsable bill end_time, bookmark not advanced", "month", at.Format("2006-01"), "end_time", raw, "error", err)
			continue
		}
		if err := s.advance(ctx, Bills, "start_time", periodEnd); err != nil {
			return err
		}
	}
	log.Info("sync finished", "records", emitted)
	return nil
}

// months returns the first instant of every calendar month touched by
// [start, end].
func months(start, end time.Time) []time.Time {
	start, end = start.UTC(), end.UTC()
	var out []time.Time
	for at := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !at.After(end); at = at.AddDate(0, 1, 0) {
		out = append(out, at)
	}
	return out
}
