package ingest

import (
	"strconv"
	"strings"
)

const placeholderPrefix = "column_"

var (
	timestampCandidates = []string{"ds", "date", "datetime", "timestamp", "month", "quarter", "period", "time"}
	valueCandidates     = []string{"y", "value", "values", "target", "sales", "demand", "count", "amount", "volume", "price", "close", "passengers"}
)

func placeholder(i int) string {
	return placeholderPrefix + strconv.Itoa(i+1)
}

func isPlaceholder(name string) bool {
	rest, ok := strings.CutPrefix(name, placeholderPrefix)
	if !ok {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// InferColumns guesses the timestamp and value columns from a header.
func InferColumns(headers []string) (timestamp, value string) {
	if len(headers) == 0 {
		return "", ""
	}

	timestamp = pick(headers, timestampCandidates, "")
	if timestamp == "" {
		for _, h := range headers {
			if isPlaceholder(h) {
				timestamp = h
				break
			}
		}
	}
	if timestamp == "" {
		timestamp = headers[0]
	}

	value = pick(headers, valueCandidates, timestamp)
	if value == "" {
		for _, h := range headers {
			if h != timestamp {
				value = h
				break
			}
		}
	}
	return timestamp, value
}

// pick returns the header matching the earliest candidate, skipping exclude.
func pick(headers, candidates []string, exclude string) string {
	for _, candidate := range candidates {
		for _, h := range headers {
			if h == exclude {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(h), candidate) {
				return h
			}
		}
	}
	return ""
}
