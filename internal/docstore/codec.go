package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Documents are serialized with the typed value envelope of the Firestore
// REST API so numbers, timestamps and nulls survive a round trip.

type wireValue struct {
	StringValue    *string         `json:"stringValue,omitempty"`
	IntegerValue   *string         `json:"integerValue,omitempty"`
	DoubleValue    *float64        `json:"doubleValue,omitempty"`
	BooleanValue   *bool           `json:"booleanValue,omitempty"`
	NullValue      *struct{}       `json:"nullValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
	ArrayValue     *wireArrayValue `json:"arrayValue,omitempty"`
}

type wireArrayValue struct {
	Values []wireValue `json:"values,omitempty"`
}

type wireDocument struct {
	Fields     map[string]wireValue `json:"fields"`
	UpdateTime string               `json:"updateTime,omitempty"`
}

// EncodeDocument serializes fields plus update time.
func EncodeDocument(d Data, updateTime time.Time) ([]byte, error) {
	doc := wireDocument{Fields: make(map[string]wireValue, len(d))}
	for k, v := range d {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("docstore: encode field %q: %w", k, err)
		}
		doc.Fields[k] = wv
	}
	if !updateTime.IsZero() {
		doc.UpdateTime = updateTime.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(doc)
}

// DecodeDocument is the inverse of EncodeDocument.
func DecodeDocument(b []byte) (Data, time.Time, error) {
	var doc wireDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, time.Time{}, fmt.Errorf("docstore: decode document: %w", err)
	}
	out := make(Data, len(doc.Fields))
	for k, wv := range doc.Fields {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("docstore: decode field %q: %w", k, err)
		}
		out[k] = v
	}
	var updated time.Time
	if doc.UpdateTime != "" {
		t, err := time.Parse(time.RFC3339Nano, doc.UpdateTime)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("docstore: decode updateTime: %w", err)
		}
		updated = t
	}
	return out, updated, nil
}

func encodeValue(v any) (wireValue, error) {
	switch v := v.(type) {
	case nil:
		return wireValue{NullValue: &struct{}{}}, nil
	case string:
		return wireValue{StringValue: &v}, nil
	case int64:
		s := strconv.FormatInt(v, 10)
		return wireValue{IntegerValue: &s}, nil
	case int:
		s := strconv.Itoa(v)
		return wireValue{IntegerValue: &s}, nil
	case float64:
		return wireValue{DoubleValue: &v}, nil
	case bool:
		return wireValue{BooleanValue: &v}, nil
	case time.Time:
		s := v.UTC().Format(time.RFC3339Nano)
		return wireValue{TimestampValue: &s}, nil
	case []string:
		arr := &wireArrayValue{Values: make([]wireValue, 0, len(v))}
		for i := range v {
			arr.Values = append(arr.Values, wireValue{StringValue: &v[i]})
		}
		return wireValue{ArrayValue: arr}, nil
	}
	return wireValue{}, fmt.Errorf("unsupported value type %T", v)
}

func decodeValue(wv wireValue) (any, error) {
	switch {
	case wv.StringValue != nil:
		return *wv.StringValue, nil
	case wv.IntegerValue != nil:
		return strconv.ParseInt(*wv.IntegerValue, 10, 64)
	case wv.DoubleValue != nil:
		return *wv.DoubleValue, nil
	case wv.BooleanValue != nil:
		return *wv.BooleanValue, nil
	case wv.TimestampValue != nil:
		return time.Parse(time.RFC3339Nano, *wv.TimestampValue)
	case wv.ArrayValue != nil:
		out := make([]string, 0, len(wv.ArrayValue.Values))
		for _, e := range wv.ArrayValue.Values {
			if e.StringValue != nil {
				out = append(out, *e.StringValue)
			}
		}
		return out, nil
	}
	return nil, nil
}
