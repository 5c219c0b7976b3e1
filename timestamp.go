package cloudbalance

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// The API server is written against zone-less local date-times and may
// serialize them either as ISO-8601 strings without an offset or as arrays of
// their components. Zone-less values are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp is a point in time as reported by the API server.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		parts := []int{}
		if err := json.Unmarshal(data, &parts); err != nil {
			return errors.Wrap(err, "error unmarshaling timestamp components")
		}
		if len(parts) < 3 {
			return errors.Errorf("timestamp %s has too few components", data)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		t.Time = time.Date(
			parts[0],
			time.Month(parts[1]),
			parts[2],
			parts[3],
			parts[4],
			parts[5],
			parts[6],
			time.UTC,
		)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "error unmarshaling timestamp")
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, str, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errors.Errorf("unrecognized timestamp %q", str)
}

const dateLayout = "2006-01-02"

// Date is a calendar date, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(str string) (Date, error) {
	parsed, err := time.ParseInLocation(dateLayout, str, time.UTC)
	if err != nil {
		return Date{}, errors.Wrapf(err, "error parsing date %q", str)
	}
	return Date{Time: parsed}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "error unmarshaling date")
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
