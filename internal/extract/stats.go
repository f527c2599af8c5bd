package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/aniketwaliyan/tap-fastly/internal/fastly"
	"github.com/aniketwaliyan/tap-fastly/internal/singer"
	"github.com/aniketwaliyan/tap-fastly/internal/state"
)

func (s *Syncer) syncStats(ctx context.Context, schema json.RawMessage) error {
	log := s.logger.With("stream", Stats.String())
	if err := s.writeSchema(ctx, Stats, schema); err != nil {
		return err
	}

	from, ok, err := s.state.Stream(Stats.String()).Time("from")
	if err != nil {
		return err
	}
	if !ok {
		from = s.startDate
	}
	// The API takes whole seconds.
	from = time.Unix(from.Unix(), 0).UTC()
	to := time.Unix(s.now().Unix(), 0).UTC()

	result := s.client.Stats(ctx, from, to)
	if result == nil {
		log.Warn("no stats returned", "from", from.Unix(), "to", to.Unix())
		return nil
	}

	ids := make([]string, 0, len(result.Data))
	for id := range result.Data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	services := make(map[string]*fastly.Service, len(ids))
	emitted := 0
	for _, id := range ids {
		svc, seen := services[id]
		if !seen {
			svc = s.client.Service(ctx, id)
			services[id] = svc
			if svc == nil {
				log.Warn("service metadata unavailable, emitting rows without it", "service_id", id)
			}
		}
		for _, row := range result.Data[id] {
			if err := s.writeRecord(ctx, Stats, enrich(id, row, svc)); err != nil {
				return err
			}
			emitted++
		}
	}

	windowEnd, err := time.Parse(state.LegacyLayout, result.Meta.To)
	if err != nil {
		log.Error("unparsable stats window end, bookmark not advanced", "to", result.Meta.To, "error", err)
		return nil
	}
	if err := s.advance(ctx, Stats, "from", windowEnd); err != nil {
		return err
	}
	log.Info("sync finished", "records", emitted, "services", len(services))
	return nil
}

// enrich copies a stats row and attaches the service's metadata. When svc is
// nil the service fields are present and null.
func enrich(serviceID string, row map[string]any, svc *fastly.Service) singer.Record {
	rec := make(singer.Record, len(row)+9)
	for k, v := range row {
		rec[k] = v
	}
	if _, ok := rec["service_id"]; !ok {
		rec["service_id"] = serviceID
	}
	if svc == nil {
		for _, f := range []string{
			"service_name", "service_versions", "service_customer_id", "service_publish_key",
			"service_comment", "service_deleted_at", "service_updated_at", "service_created_at",
		} {
			rec[f] = nil
		}
		return rec
	}
	rec["service_name"] = deref(svc.Name)
	rec["service_versions"] = versionsJSON(svc.Versions)
	rec["service_customer_id"] = deref(svc.CustomerID)
	rec["service_publish_key"] = deref(svc.PublishKey)
	rec["service_comment"] = deref(svc.Comment)
	rec["service_deleted_at"] = deref(svc.DeletedAt)
	rec["service_updated_at"] = deref(svc.UpdatedAt)
	rec["service_created_at"] = deref(svc.CreatedAt)
	return rec
}

// versionsJSON renders versions the way Python's json.dumps does by default:
// ", " and ": " separators and non-ASCII characters escaped.
func versionsJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}

	var out strings.Builder
	inString, escaped := false, false
	for _, r := range compact.String() {
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
				out.WriteRune(r)
			case r == '\\':
				escaped = true
				out.WriteRune(r)
			case r == '"':
				inString = false
				out.WriteRune(r)
			case r > unicode.MaxASCII:
				writeUnicodeEscape(&out, r)
			default:
				out.WriteRune(r)
			}
		case r == '"':
			inString = true
			out.WriteRune(r)
		case r == ',' || r == ':':
			out.WriteRune(r)
			out.WriteByte(' ')
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func writeUnicodeEscape(out *strings.Builder, r rune) {
	if r1, r2 := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
		fmt.Fprintf(out, "\\u%04x\\u%04x", r1, r2)
		return
	}
	fmt.Fprintf(out, "\\u%04x", r)
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
