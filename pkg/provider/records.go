package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Field names consulted, in order, when resolving a record attribute from a
// machine-readable listing. Different client versions key the action
// differently; the first non-empty string value wins.
var (
	FileNameFields  = []string{"fileName"}
	ActionFields    = []string{"action", "Action"}
	VersionIDFields = []string{"fileId", "versionId"}
)

type rawRecord map[string]json.RawMessage

// ParseRecords decodes a listing response into version records.
//
// The input is a sequence of top-level JSON values, each either an array of
// objects or a single object, so all of these normalize to one sequence:
//   - a single JSON array of objects
//   - newline-delimited (or simply concatenated) JSON objects
//   - several arrays, as printed by a CLI that flushes per page
//
// Any other value, or trailing data that is not JSON, fails the whole
// listing with ErrMalformedListing. An empty or whitespace-only input
// yields an empty, non-nil slice.
func ParseRecords(r io.Reader) ([]VersionRecord, error) {
	dec := json.NewDecoder(r)

	var raws []rawRecord
	for n := 1; ; n++ {
		var value json.RawMessage
		err := dec.Decode(&value)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformedListing, n, err)
		}

		switch value[0] {
		case '[':
			var batch []rawRecord
			if err := json.Unmarshal(value, &batch); err != nil {
				return nil, fmt.Errorf("%w: value %d: %v", ErrMalformedListing, n, err)
			}
			raws = append(raws, batch...)
		case '{':
			var raw rawRecord
			if err := json.Unmarshal(value, &raw); err != nil {
				return nil, fmt.Errorf("%w: value %d: %v", ErrMalformedListing, n, err)
			}
			raws = append(raws, raw)
		default:
			return nil, fmt.Errorf("%w: value %d: expected an object or an array", ErrMalformedListing, n)
		}
	}

	records := make([]VersionRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, raw.toVersionRecord())
	}
	return records, nil
}

func (raw rawRecord) toVersionRecord() VersionRecord {
	rec := VersionRecord{
		FileName:  resolveField(raw, FileNameFields),
		Action:    resolveField(raw, ActionFields),
		VersionID: resolveField(raw, VersionIDFields),
	}

	if v, ok := raw["contentLength"]; ok {
		_ = json.Unmarshal(v, &rec.Size)
	} else if v, ok := raw["size"]; ok {
		_ = json.Unmarshal(v, &rec.Size)
	}

	// B2 reports upload time in milliseconds since the epoch.
	if v, ok := raw["uploadTimestamp"]; ok {
		var ms int64
		if err := json.Unmarshal(v, &ms); err == nil && ms > 0 {
			rec.LastModified = time.UnixMilli(ms).UTC()
		}
	}

	return rec
}

// resolveField returns the first non-empty value among fields.
//
// Strings are returned as-is and numbers in their decimal form. Missing
// fields, nulls, and other JSON types are skipped. If nothing matches the
// result is "".
func resolveField(raw rawRecord, fields []string) string {
	for _, name := range fields {
		v, ok := raw[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil && n != "" {
			if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
				return n.String()
			}
		}
	}
	return ""
}
