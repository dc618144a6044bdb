package geoip

import (
	"bytes"
	"encoding/json"
)

// PropertyMap is an insertion-ordered label to value mapping. Values are
// either string or bool.
type PropertyMap struct {
	labels []string
	values map[string]any
}

func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]any)}
}

// Set stores value under label. An existing label keeps its position.
func (m *PropertyMap) Set(label string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.values[label] = value
}

func (m *PropertyMap) Get(label string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[label]
	return v, ok
}

func (m *PropertyMap) String(label string) string {
	v, _ := m.Get(label)
	s, _ := v.(string)
	return s
}

func (m *PropertyMap) Bool(label string) bool {
	v, _ := m.Get(label)
	b, _ := v.(bool)
	return b
}

func (m *PropertyMap) Labels() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.labels...)
}

func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.labels)
}

func (m *PropertyMap) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if err := m.writeFields(buf, nil); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *PropertyMap) writeFields(buf *bytes.Buffer, skip map[string]bool) error {
	if m == nil {
		return nil
	}
	for _, label := range m.labels {
		if skip[label] {
			continue
		}
		if err := writeField(buf, label, m.values[label]); err != nil {
			return err
		}
	}
	return nil
}

func writeField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if buf.Len() > 1 {
		buf.WriteByte(',')
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// LookupResult is the extracted property map stamped with the address it
// describes and the time it took to fetch and parse, in milliseconds.
type LookupResult struct {
	Ip         string
	Elapsed    int64
	Properties *PropertyMap
}

// MarshalJSON flattens the result into a single object: provider labels in
// page order followed by Elapsed and Ip.
func (r *LookupResult) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	err := r.Properties.writeFields(buf, map[string]bool{"Elapsed": true, "Ip": true})
	if err != nil {
		return nil, err
	}
	if err := writeField(buf, "Elapsed", r.Elapsed); err != nil {
		return nil, err
	}
	if err := writeField(buf, "Ip", r.Ip); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decorate returns a copy of result describing ip. A nil result is passed
// through unchanged.
func Decorate(result *LookupResult, ip string) *LookupResult {
	if result == nil {
		return nil
	}
	decorated := *result
	decorated.Ip = ip
	return &decorated
}
