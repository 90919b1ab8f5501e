package service

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
)

// Format names an order file encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat parses a format token, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL:
		return f, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: csv, jsonl", s)
	}
}

// Record is one decoded request. Err is set when the row could not be
// turned into a request; the caller decides whether to skip it.
type Record struct {
	Line    int
	Request SubmitOrderRequest
	Err     error
}

// Decode reads requests in format f from r and calls fn for each one in
// file order. Errors affecting the whole input, or returned by fn, stop
// decoding.
func Decode(f Format, r io.Reader, fn func(Record) error) error {
	switch f {
	case FormatCSV:
		return DecodeCSV(r, fn)
	case FormatJSONL:
		return DecodeJSONL(r, fn)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// counterparty field aliases, in order of preference.
var counterpartyColumns = []string{"counterparty_id", "trade_id", "dealer_or_broker_id"}

// DecodeCSV reads a CSV file with a header row. Column names are matched
// case-insensitively; counterparty_id may also be named trade_id or
// dealer_or_broker_id.
func DecodeCSV(r io.Reader, fn func(Record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"type", "side", "quantity"} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("csv header is missing column %q", required)
		}
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				if ferr := fn(Record{Line: line, Err: err}); ferr != nil {
					return ferr
				}
				continue
			}
			return fmt.Errorf("read csv: %w", err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := Record{Line: line}
		rec.Request, rec.Err = buildRequest(rawRequest{
			Type:           field("type"),
			Side:           field("side"),
			Quantity:       field("quantity"),
			CounterpartyID: firstNonEmpty(field, counterpartyColumns),
			Symbol:         field("symbol"),
			Price:          field("price"),
			Timestamp:      field("timestamp"),
		})
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// jsonRequest accepts numbers either as JSON numbers or as strings.
type jsonRequest struct {
	Type             string      `json:"type"`
	Side             string      `json:"side"`
	Quantity         json.Number `json:"quantity"`
	CounterpartyID   string      `json:"counterparty_id"`
	TradeID          string      `json:"trade_id"`
	DealerOrBrokerID string      `json:"dealer_or_broker_id"`
	Symbol           string      `json:"symbol"`
	Price            json.Number `json:"price"`
	Timestamp        string      `json:"timestamp"`
}

// DecodeJSONL reads one JSON object per line. Blank lines are skipped.
func DecodeJSONL(r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		rec := Record{Line: line}
		var jr jsonRequest
		if err := json.Unmarshal([]byte(text), &jr); err != nil {
			rec.Err = &domain.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
		} else {
			fields := map[string]string{
				"counterparty_id":     jr.CounterpartyID,
				"trade_id":            jr.TradeID,
				"dealer_or_broker_id": jr.DealerOrBrokerID,
			}
			rec.Request, rec.Err = buildRequest(rawRequest{
				Type:           jr.Type,
				Side:           jr.Side,
				Quantity:       jr.Quantity.String(),
				CounterpartyID: firstNonEmpty(func(name string) string { return fields[name] }, counterpartyColumns),
				Symbol:         jr.Symbol,
				Price:          jr.Price.String(),
				Timestamp:      jr.Timestamp,
			})
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}

// rawRequest holds the string fields common to every encoding.
type rawRequest struct {
	Type           string
	Side           string
	Quantity       string
	CounterpartyID string
	Symbol         string
	Price          string
	Timestamp      string
}

func buildRequest(raw rawRequest) (SubmitOrderRequest, error) {
	req := SubmitOrderRequest{
		Type:           strings.TrimSpace(raw.Type),
		Side:           strings.TrimSpace(raw.Side),
		CounterpartyID: strings.TrimSpace(raw.CounterpartyID),
		Symbol:         strings.TrimSpace(raw.Symbol),
	}

	qty := strings.TrimSpace(raw.Quantity)
	if qty == "" {
		return req, &domain.ValidationError{Message: "quantity is required"}
	}
	n, err := strconv.ParseInt(qty, 10, 64)
	if err != nil {
		return req, &domain.ValidationError{Message: fmt.Sprintf("quantity %q must be an integer", qty)}
	}
	req.Quantity = n

	if p := strings.TrimSpace(raw.Price); p != "" {
		req.Price = &p
	}

	if ts := strings.TrimSpace(raw.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return req, &domain.ValidationError{Message: fmt.Sprintf("timestamp %q must be RFC 3339", ts)}
		}
		req.Timestamp = &parsed
	}

	return req, nil
}

func firstNonEmpty(field func(string) string, names []string) string {
	for _, name := range names {
		if v := field(name); v != "" {
			return v
		}
	}
	return ""
}
