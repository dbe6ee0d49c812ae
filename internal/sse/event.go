// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"encoding/json"
	"strings"
)

// Heartbeat is a comment frame. Clients ignore it, proxies see traffic.
const Heartbeat = ": heartbeat\n\n"

// Event is a single frame on a text/event-stream response.
type Event struct {
	Name string
	Data string
}

// String renders the frame. Every line of Data gets its own data field,
// and CRLF or CR line breaks are treated like LF.
func (e Event) String() string {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString("event: ")
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}

	data := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(e.Data)
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// FormatEvent renders a frame with an optional event name.
func FormatEvent(eventName, data string) string {
	return Event{Name: eventName, Data: data}.String()
}

// FormatJSONEvent renders v as the JSON payload of a named frame.
func FormatJSONEvent(eventName string, v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Event{Name: eventName, Data: string(payload)}.String(), nil
}
