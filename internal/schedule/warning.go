package schedule

import "log/slog"

type WarningKind uint8

const (
	WarningParse WarningKind = iota
	WarningMissingDate
	WarningMetadata
	WarningInvariant
	WarningTitle
	WarningYear
	WarningOverlap
	WarningEmpty
)

func (k WarningKind) String() string {
	switch k {
	case WarningParse:
		return "parse"
	case WarningMissingDate:
		return "missing-date"
	case WarningMetadata:
		return "metadata"
	case WarningInvariant:
		return "invariant"
	case WarningTitle:
		return "title"
	case WarningYear:
		return "year"
	case WarningOverlap:
		return "overlap"
	case WarningEmpty:
		return "empty"
	}
	return "unknown"
}

// Warning is a non-fatal problem found while reading or checking a schedule.
// Date is the zero CalendarDate when the problem is not tied to a day.
type Warning struct {
	Kind    WarningKind
	Date    CalendarDate
	Message string
}

func (w Warning) String() string {
	if w.Date.IsZero() {
		return "Warning, " + w.Message
	}
	return w.Date.String() + ", Warning, " + w.Message
}

// LogValue lets warnings be passed straight to slog.
func (w Warning) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", w.Kind.String()),
		slog.String("message", w.Message),
	}
	if !w.Date.IsZero() {
		attrs = append(attrs, slog.String("date", w.Date.String()))
	}
	return slog.GroupValue(attrs...)
}

func newWarning(kind WarningKind, date CalendarDate, msg string) Warning {
	return Warning{Kind: kind, Date: date, Message: msg}
}
