package contracts

import (
	"bufio"
	"encoding/json"
	"io"
	"time"
)

type resultJSON struct {
	Name       string      `json:"name"`
	Command    []string    `json:"command,omitempty"`
	Status     CheckStatus `json:"status"`
	ExitCode   int         `json:"exit_code"`
	DurationMS int64       `json:"duration_ms"`
	Reasons    []string    `json:"reasons,omitempty"`
	LogPath    string      `json:"log_path,omitempty"`
}

type SummaryRecord struct {
	RunID      string   `json:"run_id"`
	Manifest   string   `json:"manifest,omitempty"`
	Status     string   `json:"status"`
	Total      int      `json:"total"`
	Passed     int      `json:"passed"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	DurationMS int64    `json:"duration_ms"`
	FailedIDs  []string `json:"failed_checks,omitempty"`
}

type eventJSON struct {
	Type      EventType         `json:"type"`
	RunID     string            `json:"run_id,omitempty"`
	CheckName string            `json:"check,omitempty"`
	QueuePos  int               `json:"queue_pos,omitempty"`
	Total     int               `json:"total,omitempty"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Result    *resultJSON       `json:"result,omitempty"`
	Summary   *SummaryRecord    `json:"summary,omitempty"`
	TS        string            `json:"ts"`
}

func MarshalEventJSON(event Event) ([]byte, error) {
	payload := eventJSON{
		Type:      event.Type,
		RunID:     event.RunID,
		CheckName: event.CheckName,
		QueuePos:  event.QueuePos,
		Total:     event.Total,
		Message:   event.Message,
		Metadata:  event.Metadata,
		TS:        event.Timestamp.UTC().Format(time.RFC3339),
	}
	if event.Result != nil {
		payload.Result = &resultJSON{
			Name:       event.Result.Name,
			Command:    event.Result.Command,
			Status:     event.Result.Status,
			ExitCode:   event.Result.ExitCode,
			DurationMS: event.Result.Duration.Milliseconds(),
			Reasons:    event.Result.Reasons,
			LogPath:    event.Result.LogPath,
		}
	}
	if event.Summary != nil {
		summary := NewSummaryRecord(*event.Summary)
		payload.Summary = &summary
	}
	return json.Marshal(payload)
}

// NewSummaryRecord builds the wire form of a run summary shared by the event
// stream and the report sinks.
func NewSummaryRecord(summary RunSummary) SummaryRecord {
	return SummaryRecord{
		RunID:      summary.RunID,
		Manifest:   summary.Manifest,
		Status:     summary.Status(),
		Total:      len(summary.Results),
		Passed:     summary.Passed(),
		Failed:     summary.Failed(),
		Skipped:    summary.Skipped(),
		DurationMS: summary.Duration().Milliseconds(),
		FailedIDs:  summary.FailedNames(),
	}
}

func MarshalEventJSONL(event Event) (string, error) {
	data, err := MarshalEventJSON(event)
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

type EventStream struct {
	w io.Writer
}

func NewEventStream(writer io.Writer) *EventStream {
	return &EventStream{w: writer}
}

func (s *EventStream) Write(event Event) error {
	if s == nil || s.w == nil {
		return nil
	}
	line, err := MarshalEventJSONL(event)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.w, line)
	return err
}

type EventDecoder struct {
	scanner *bufio.Scanner
}

func NewEventDecoder(reader io.Reader) *EventDecoder {
	if reader == nil {
		return &EventDecoder{}
	}
	return &EventDecoder{scanner: bufio.NewScanner(reader)}
}

func (d *EventDecoder) Next() (Event, error) {
	if d == nil || d.scanner == nil {
		return Event{}, io.EOF
	}
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return Event{}, err
		}
		return Event{}, io.EOF
	}
	return ParseEventJSONLLine(d.scanner.Bytes())
}

// ParseEventJSONLLine decodes one stream line. Summaries are not rebuilt
// because the wire form only carries aggregate counts.
func ParseEventJSONLLine(line []byte) (Event, error) {
	var payload eventJSON
	if err := json.Unmarshal(line, &payload); err != nil {
		return Event{}, err
	}
	timestamp := time.Time{}
	if payload.TS != "" {
		parsed, err := time.Parse(time.RFC3339, payload.TS)
		if err != nil {
			return Event{}, err
		}
		timestamp = parsed
	}
	event := Event{
		Type:      payload.Type,
		RunID:     payload.RunID,
		CheckName: payload.CheckName,
		QueuePos:  payload.QueuePos,
		Total:     payload.Total,
		Message:   payload.Message,
		Metadata:  payload.Metadata,
		Timestamp: timestamp,
	}
	if payload.Result != nil {
		event.Result = &CheckResult{
			Name:     payload.Result.Name,
			Command:  payload.Result.Command,
			Status:   payload.Result.Status,
			ExitCode: payload.Result.ExitCode,
			Duration: time.Duration(payload.Result.DurationMS) * time.Millisecond,
			Reasons:  payload.Result.Reasons,
			LogPath:  payload.Result.LogPath,
		}
	}
	return event, nil
}
