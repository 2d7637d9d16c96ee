package energy_counters

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// OutputRecord is one complete reading of a counter.
type OutputRecord struct {
	CompanyId   string
	Timestamp   time.Time
	CounterId   int
	CounterName string
	Model       string
	Values      map[string]float64
	keys        []string
}

// NewOutputRecord builds a record for counter. keys gives the schema order of values.
func NewOutputRecord(counter CounterConfiguration, model string, timestamp time.Time,
	values map[string]float64, keys []string) *OutputRecord {
	return &OutputRecord{
		CompanyId:   counter.CompanyId,
		Timestamp:   timestamp,
		CounterId:   counter.CounterId,
		CounterName: counter.CounterName,
		Model:       model,
		Values:      values,
		keys:        append([]string(nil), keys...),
	}
}

// Keys returns the measurement keys in schema order.
func (r *OutputRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *OutputRecord) Get(key string) (float64, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// ISOTimestamp returns the timestamp in ISO-8601 with millisecond precision.
func (r *OutputRecord) ISOTimestamp() string {
	return r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
}

// MarshalJSON writes the identity fields first and then every value in schema order.
// Non-finite values (float registers reporting "not available") are written as null.
func (r *OutputRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if err := write("companyId", r.CompanyId); err != nil {
		return nil, err
	}
	if err := write("timestamp", r.ISOTimestamp()); err != nil {
		return nil, err
	}
	if err := write("counterId", r.CounterId); err != nil {
		return nil, err
	}
	if err := write("counterName", r.CounterName); err != nil {
		return nil, err
	}
	for _, key := range r.keys {
		var value any = r.Values[key]
		if v := r.Values[key]; math.IsNaN(v) || math.IsInf(v, 0) {
			value = nil
		}
		if err := write(key, value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
