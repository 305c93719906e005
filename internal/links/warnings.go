package links

import (
	"go.uber.org/zap"
)

// WarningCode categorizes non-fatal conditions met while resolving links.
type WarningCode string

const (
	MissingTitle             WarningCode = "MissingTitle"
	DuplicateTitle           WarningCode = "DuplicateTitle"
	MissingParameterName     WarningCode = "MissingParameterName"
	MissingRequiredParameter WarningCode = "MissingRequiredParameter"
)

// Warning describes a non-fatal condition. Only the fields relevant to the
// code are set.
type Warning struct {
	Code      WarningCode
	Message   string
	Document  string
	Operation string
	Link      string
	Parameter string
}

func (w Warning) fields() []zap.Field {
	fields := []zap.Field{zap.String("code", string(w.Code))}
	if w.Document != "" {
		fields = append(fields, zap.String("document", w.Document))
	}
	if w.Operation != "" {
		fields = append(fields, zap.String("operation", w.Operation))
	}
	if w.Link != "" {
		fields = append(fields, zap.String("link", w.Link))
	}
	if w.Parameter != "" {
		fields = append(fields, zap.String("parameter", w.Parameter))
	}
	return fields
}

// warnings accumulates warnings for one unit of work. Workers each own one;
// the engine merges them in a fixed order and logs on merge.
type warnings []Warning

func (ws *warnings) add(w Warning) { *ws = append(*ws, w) }

func (ws warnings) log(logger *zap.Logger) {
	for _, w := range ws {
		logger.Warn(w.Message, w.fields()...)
	}
}
